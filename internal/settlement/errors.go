package settlement

import "errors"

var (
	ErrGameNotFound    = errors.New("game not found")
	ErrNotAParticipant = errors.New("user is not a participant in this game")
	ErrNoParticipants  = errors.New("game has no participants")
	ErrPriceNotSet     = errors.New("game price not set")
	ErrPriceRequired   = errors.New("game price required")
	ErrInvalidPrice    = errors.New("invalid game price")
)
