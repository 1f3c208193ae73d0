package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/turfpay-backend/pkg/db"
	"github.com/angelmondragon/turfpay-backend/pkg/db/models"
	"github.com/angelmondragon/turfpay-backend/pkg/money"
	"github.com/angelmondragon/turfpay-backend/pkg/pagination"
)

var (
	// ErrDuplicateExternalReference means a ledger entry already carries the gateway payment id.
	ErrDuplicateExternalReference = errors.New("ledger entry already exists for payment")
	// ErrDuplicateGamePayment means the user already has a game payment debit for the game.
	ErrDuplicateGamePayment = errors.New("game payment already recorded")
	// ErrInvalidEntry wraps every Append validation failure.
	ErrInvalidEntry = errors.New("invalid ledger entry")
)

// Constraint names as Postgres reports them, plus the "table.column" fragments
// SQLite prints for the same indexes.
var (
	paymentIDConstraints = []string{"ux_wallet_transactions_razorpay_payment_id", "wallet_transactions.razorpay_payment_id"}
	gameJoinConstraints  = []string{"ux_wallet_transactions_game_join", "wallet_transactions.game_id"}
)

const DefaultRecentLimit = 10

// Page is one page of a user's ledger, newest first.
type Page struct {
	Transactions []models.WalletTransaction `json:"transactions"`
	Pagination   pagination.Meta            `json:"pagination"`
}

// Service is the ledger store used by the wallet, settlement and top-up flows.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Append(ctx context.Context, entry *models.WalletTransaction) error
	Query(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error)
	Recent(ctx context.Context, userID uuid.UUID, n int) ([]models.WalletTransaction, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*models.WalletTransaction, error)
	FindGamePayment(ctx context.Context, userID, gameID uuid.UUID) (*models.WalletTransaction, error)
	ListGamePayments(ctx context.Context, gameID uuid.UUID) ([]models.WalletTransaction, error)
	ListUserGamePayments(ctx context.Context, userID uuid.UUID) ([]models.WalletTransaction, error)
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

// Append validates and persists an entry. Unique index hits are reported as
// ErrDuplicateExternalReference or ErrDuplicateGamePayment; on Postgres the
// surrounding transaction is aborted at that point and must be rolled back.
func (s *service) Append(ctx context.Context, entry *models.WalletTransaction) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is required", ErrInvalidEntry)
	}
	if entry.UserID == uuid.Nil {
		return fmt.Errorf("%w: user id is required", ErrInvalidEntry)
	}
	if !entry.Type.IsValid() {
		return fmt.Errorf("%w: type %q", ErrInvalidEntry, entry.Type)
	}
	if !entry.Reason.IsValid() {
		return fmt.Errorf("%w: reason %q", ErrInvalidEntry, entry.Reason)
	}
	entry.Amount = money.Round2(entry.Amount)
	if !entry.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidEntry)
	}
	entry.BalanceAfter = money.Round2(entry.BalanceAfter)
	if entry.BalanceAfter.IsNegative() {
		return fmt.Errorf("%w: balance after cannot be negative", ErrInvalidEntry)
	}
	if entry.RazorpayPaymentID != nil && strings.TrimSpace(*entry.RazorpayPaymentID) == "" {
		entry.RazorpayPaymentID = nil
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		switch {
		case db.IsUniqueViolation(err, paymentIDConstraints...):
			return ErrDuplicateExternalReference
		case db.IsUniqueViolation(err, gameJoinConstraints...):
			return ErrDuplicateGamePayment
		}
		return err
	}
	return nil
}

func (s *service) Query(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error) {
	params = params.Normalize()
	entries, total, err := s.repo.ListByUser(ctx, userID, params.Offset(), params.Limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.WalletTransaction{}
	}
	return &Page{
		Transactions: entries,
		Pagination:   pagination.NewMeta(params, total),
	}, nil
}

func (s *service) Recent(ctx context.Context, userID uuid.UUID, n int) ([]models.WalletTransaction, error) {
	if n <= 0 {
		n = DefaultRecentLimit
	}
	entries, _, err := s.repo.ListByUser(ctx, userID, 0, n)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.WalletTransaction{}
	}
	return entries, nil
}

func (s *service) FindByPaymentID(ctx context.Context, paymentID string) (*models.WalletTransaction, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, nil
	}
	return s.repo.FindByPaymentID(ctx, paymentID)
}

func (s *service) FindGamePayment(ctx context.Context, userID, gameID uuid.UUID) (*models.WalletTransaction, error) {
	return s.repo.FindGamePayment(ctx, userID, gameID)
}

func (s *service) ListGamePayments(ctx context.Context, gameID uuid.UUID) ([]models.WalletTransaction, error) {
	return s.repo.ListGamePayments(ctx, gameID)
}

func (s *service) ListUserGamePayments(ctx context.Context, userID uuid.UUID) ([]models.WalletTransaction, error) {
	return s.repo.ListUserGamePayments(ctx, userID)
}
