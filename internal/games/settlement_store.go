package games

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/turfpay-backend/internal/settlement"
	"github.com/angelmondragon/turfpay-backend/pkg/db/models"
)

type settlementStore struct {
	repo Repository
}

// NewSettlementStore exposes the game repository to the settlement engine.
func NewSettlementStore(repo Repository) settlement.GameStore {
	return &settlementStore{repo: repo}
}

func (s *settlementStore) LockGame(ctx context.Context, tx *gorm.DB, gameID uuid.UUID) (*models.Game, error) {
	return s.repo.WithTx(tx).LockByID(ctx, gameID)
}

func (s *settlementStore) LoadGame(ctx context.Context, gameID uuid.UUID) (*models.Game, error) {
	return s.repo.FindByID(ctx, gameID)
}

func (s *settlementStore) SetPrice(ctx context.Context, tx *gorm.DB, game *models.Game, price decimal.Decimal) error {
	game.TurfPrice = decimal.NullDecimal{Decimal: price, Valid: true}
	Derive(game)
	return s.repo.WithTx(tx).Save(ctx, game)
}
