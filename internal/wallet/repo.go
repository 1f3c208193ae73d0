package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/turfpay-backend/pkg/db"
	"github.com/angelmondragon/turfpay-backend/pkg/db/models"
)

// Repository persists wallet heads.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	EnsureExists(ctx context.Context, userID uuid.UUID) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	LockByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	UpdateBalance(ctx context.Context, wallet *models.Wallet, balance decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// EnsureExists inserts a zero wallet unless one is already present. Concurrent
// callers race on the user_id unique index and the losers insert nothing.
func (r *repository) EnsureExists(ctx context.Context, userID uuid.UUID) error {
	row := &models.Wallet{UserID: userID, Balance: decimal.Zero}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(row).Error
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *repository) LockByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// UpdateBalance writes the new balance if the row still has the version that was
// read, then bumps the version on the passed model.
func (r *repository) UpdateBalance(ctx context.Context, wallet *models.Wallet, balance decimal.Decimal) error {
	if wallet == nil {
		return errors.New("wallet required")
	}
	res := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ? AND version = ?", wallet.ID, wallet.Version).
		Updates(map[string]any{
			"balance": balance,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.ErrConcurrentUpdate
	}
	wallet.Balance = balance
	wallet.Version++
	return nil
}
