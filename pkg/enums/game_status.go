package enums

import "fmt"

// GameStatus tracks where a game is in its lifecycle.
type GameStatus string

const (
	GameStatusUpcoming  GameStatus = "upcoming"
	GameStatusOngoing   GameStatus = "ongoing"
	GameStatusFinished  GameStatus = "finished"
	GameStatusCancelled GameStatus = "cancelled"
)

var validGameStatuses = []GameStatus{
	GameStatusUpcoming,
	GameStatusOngoing,
	GameStatusFinished,
	GameStatusCancelled,
}

var gameStatusTransitions = map[GameStatus][]GameStatus{
	GameStatusUpcoming: {GameStatusOngoing, GameStatusCancelled},
	GameStatusOngoing:  {GameStatusFinished, GameStatusCancelled},
}

func (s GameStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known GameStatus.
func (s GameStatus) IsValid() bool {
	for _, candidate := range validGameStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in one step.
// Finished and cancelled games are terminal.
func (s GameStatus) CanTransitionTo(next GameStatus) bool {
	for _, candidate := range gameStatusTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseGameStatus converts raw input into a GameStatus.
func ParseGameStatus(value string) (GameStatus, error) {
	for _, candidate := range validGameStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid game status %q", value)
}
