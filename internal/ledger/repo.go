package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/turfpay-backend/pkg/db/models"
	"github.com/angelmondragon/turfpay-backend/pkg/enums"
)

// Repository manages persistence for wallet ledger entries. Entries are
// append-only: there is no update or delete.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.WalletTransaction) error
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.WalletTransaction, int64, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*models.WalletTransaction, error)
	FindGamePayment(ctx context.Context, userID, gameID uuid.UUID) (*models.WalletTransaction, error)
	ListGamePayments(ctx context.Context, gameID uuid.UUID) ([]models.WalletTransaction, error)
	ListUserGamePayments(ctx context.Context, userID uuid.UUID) ([]models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.WalletTransaction, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.WalletTransaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *repository) FindByPaymentID(ctx context.Context, paymentID string) (*models.WalletTransaction, error) {
	var entry models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("razorpay_payment_id = ?", paymentID).
		First(&entry).Error
	return entryOrNil(&entry, err)
}

func (r *repository) FindGamePayment(ctx context.Context, userID, gameID uuid.UUID) (*models.WalletTransaction, error) {
	var entry models.WalletTransaction
	err := r.gamePayments(ctx).
		Where("user_id = ? AND game_id = ?", userID, gameID).
		First(&entry).Error
	return entryOrNil(&entry, err)
}

func (r *repository) ListGamePayments(ctx context.Context, gameID uuid.UUID) ([]models.WalletTransaction, error) {
	var entries []models.WalletTransaction
	if err := r.gamePayments(ctx).
		Where("game_id = ?", gameID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListUserGamePayments(ctx context.Context, userID uuid.UUID) ([]models.WalletTransaction, error) {
	var entries []models.WalletTransaction
	if err := r.gamePayments(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) gamePayments(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("type = ? AND reason = ? AND game_id IS NOT NULL", enums.TransactionDebit, enums.ReasonGameJoin)
}

func entryOrNil(entry *models.WalletTransaction, err error) (*models.WalletTransaction, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}
