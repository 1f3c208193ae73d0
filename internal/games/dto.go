package games

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/turfpay-backend/internal/users"
	"github.com/angelmondragon/turfpay-backend/pkg/db/models"
	"github.com/angelmondragon/turfpay-backend/pkg/enums"
	"github.com/angelmondragon/turfpay-backend/pkg/money"
)

// CreateGameInput carries the fields accepted when scheduling a game. A nil or
// zero TurfPrice leaves the price unset.
type CreateGameInput struct {
	TeamName     string
	TeamSize     int
	GameType     string
	TurfLocation string
	TurfDateTime time.Time
	TurfPrice    *decimal.Decimal
}

func (in CreateGameInput) normalized() CreateGameInput {
	in.TeamName = strings.TrimSpace(in.TeamName)
	in.GameType = strings.TrimSpace(in.GameType)
	in.TurfLocation = strings.TrimSpace(in.TurfLocation)
	in.TurfDateTime = in.TurfDateTime.UTC()
	return in
}

type PlayerDTO struct {
	UserID   uuid.UUID `json:"userId"`
	Position int       `json:"position"`
	JoinedAt time.Time `json:"joinedAt"`
}

type GameDTO struct {
	ID             uuid.UUID        `json:"id"`
	TeamName       string           `json:"teamName"`
	TeamSize       int              `json:"teamSize"`
	GameType       string           `json:"gameType"`
	TurfLocation   string           `json:"turfLocation"`
	TurfDateTime   time.Time        `json:"turfDateTime"`
	TurfPrice      *money.Amount    `json:"turfPrice"`
	CreatedBy      uuid.UUID        `json:"createdBy"`
	CaptainID      *uuid.UUID       `json:"captainId"`
	Status         enums.GameStatus `json:"status"`
	AvailableSpots int              `json:"availableSpots"`
	IsOpen         bool             `json:"isOpen"`
	Players        []PlayerDTO      `json:"players"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

func FromModel(g *models.Game) *GameDTO {
	if g == nil {
		return nil
	}
	dto := &GameDTO{
		ID:             g.ID,
		TeamName:       g.TeamName,
		TeamSize:       g.TeamSize,
		GameType:       g.GameType,
		TurfLocation:   g.TurfLocation,
		TurfDateTime:   g.TurfDateTime,
		CreatedBy:      g.CreatedBy,
		CaptainID:      g.CaptainID,
		Status:         g.Status,
		AvailableSpots: g.AvailableSpots,
		IsOpen:         g.IsOpen,
		Players:        make([]PlayerDTO, 0, len(g.Players)),
		CreatedAt:      g.CreatedAt,
		UpdatedAt:      g.UpdatedAt,
	}
	if g.TurfPrice.Valid {
		price := money.NewAmount(money.Round2(g.TurfPrice.Decimal))
		dto.TurfPrice = &price
	}
	for _, p := range g.Players {
		dto.Players = append(dto.Players, PlayerDTO{UserID: p.UserID, Position: p.Position, JoinedAt: p.JoinedAt})
	}
	return dto
}

func FromModels(rows []models.Game) []GameDTO {
	out := make([]GameDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

// RosterDTO is the players view with public profiles. Players whose profile is
// missing are skipped.
type RosterDTO struct {
	GameID   uuid.UUID       `json:"gameId"`
	TeamName string          `json:"teamName"`
	Captain  *users.UserDTO  `json:"captain"`
	Players  []users.UserDTO `json:"players"`
}

// JoinedGame is the compact game view returned after a wallet join.
type JoinedGame struct {
	ID             uuid.UUID `json:"id"`
	TeamName       string    `json:"teamName"`
	Players        int       `json:"players"`
	AvailableSpots int       `json:"availableSpots"`
}

type JoinResult struct {
	WalletBalance  money.Amount `json:"walletBalance"`
	AmountDeducted money.Amount `json:"amountDeducted"`
	Game           JoinedGame   `json:"game"`
}

// LifecycleResult counts the transitions applied by one AdvanceLifecycle pass.
type LifecycleResult struct {
	Started  int
	Finished int
}
