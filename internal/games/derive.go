package games

import (
	"github.com/angelmondragon/turfpay-backend/pkg/db/models"
	"github.com/angelmondragon/turfpay-backend/pkg/enums"
)

// Derive recomputes the stored roster-dependent fields from the loaded players
// and status. Every roster or status write calls it before saving.
func Derive(g *models.Game) {
	if g == nil {
		return
	}
	spots := g.TeamSize - len(g.Players)
	if spots < 0 {
		spots = 0
	}
	g.AvailableSpots = spots
	g.IsOpen = spots > 0 && g.Status == enums.GameStatusUpcoming
}

func nextPosition(g *models.Game) int {
	max := 0
	for _, p := range g.Players {
		if p.Position > max {
			max = p.Position
		}
	}
	return max + 1
}
