package games

import (
	"errors"

	"github.com/angelmondragon/turfpay-backend/internal/settlement"
)

var (
	ErrGameNotFound      = settlement.ErrGameNotFound
	ErrPriceNotSet       = settlement.ErrPriceNotSet
	ErrInvalidPrice      = settlement.ErrInvalidPrice
	ErrGameClosed        = errors.New("game has no available spots")
	ErrAlreadyJoined     = errors.New("user already in game")
	ErrNotInGame         = errors.New("user not in game")
	ErrNotManager        = errors.New("only the creator or captain can manage this game")
	ErrCannotKickCreator = errors.New("cannot remove the game creator")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidTransition = errors.New("invalid game status transition")
	ErrNoOpenGames       = errors.New("no open games")
)
