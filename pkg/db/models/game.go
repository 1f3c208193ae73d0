package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/turfpay-backend/pkg/enums"
)

// Game is a scheduled pickup game at a turf. AvailableSpots and IsOpen are
// derived from the roster and status and are rewritten on every mutation.
type Game struct {
	ID             uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TeamName       string              `gorm:"column:team_name;not null"`
	TeamSize       int                 `gorm:"column:team_size;not null"`
	GameType       string              `gorm:"column:game_type;not null"`
	TurfLocation   string              `gorm:"column:turf_location;not null"`
	TurfDateTime   time.Time           `gorm:"column:turf_date_time;not null"`
	TurfPrice      decimal.NullDecimal `gorm:"column:turf_price;type:numeric(12,2)"`
	CreatedBy      uuid.UUID           `gorm:"column:created_by;type:uuid;not null"`
	CaptainID      *uuid.UUID          `gorm:"column:captain_id;type:uuid"`
	Status         enums.GameStatus    `gorm:"column:status;type:text;not null;default:upcoming"`
	AvailableSpots int                 `gorm:"column:available_spots;not null"`
	IsOpen         bool                `gorm:"column:is_open;not null"`
	Version        int                 `gorm:"column:version;not null;default:0"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Players []GamePlayer `gorm:"-"`
}

func (g *Game) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// PriceSet reports whether a positive turf price has been recorded.
func (g Game) PriceSet() bool {
	return g.TurfPrice.Valid && g.TurfPrice.Decimal.IsPositive()
}

// HasPlayer reports whether userID is on the loaded roster.
func (g Game) HasPlayer(userID uuid.UUID) bool {
	for _, p := range g.Players {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// IsManagedBy reports whether userID may manage the roster (creator or captain).
func (g Game) IsManagedBy(userID uuid.UUID) bool {
	if g.CreatedBy == userID {
		return true
	}
	return g.CaptainID != nil && *g.CaptainID == userID
}

// GamePlayer is one roster slot. Position preserves join order.
type GamePlayer struct {
	GameID   uuid.UUID `gorm:"column:game_id;type:uuid;primaryKey"`
	UserID   uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	Position int       `gorm:"column:position;not null"`
	JoinedAt time.Time `gorm:"column:joined_at;autoCreateTime"`
}

func (GamePlayer) TableName() string { return "game_players" }
