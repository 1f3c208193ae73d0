package enums

import (
	"fmt"
	"strings"
)

// SharePolicy selects the divisor used to split a game's turf price.
type SharePolicy string

const (
	// SharePolicyCapacity divides by the game's team size.
	SharePolicyCapacity SharePolicy = "capacity"
	// SharePolicyOccupancy divides by the number of players currently on the roster.
	SharePolicyOccupancy SharePolicy = "occupancy"
)

func (p SharePolicy) IsValid() bool {
	return p == SharePolicyCapacity || p == SharePolicyOccupancy
}

// Divisor returns the number of shares for a game with the given size and roster.
func (p SharePolicy) Divisor(teamSize, players int) int {
	if p == SharePolicyOccupancy {
		return players
	}
	return teamSize
}

func ParseSharePolicy(value string) (SharePolicy, error) {
	p := SharePolicy(strings.ToLower(strings.TrimSpace(value)))
	if !p.IsValid() {
		return "", fmt.Errorf("invalid share policy %q", value)
	}
	return p, nil
}
