package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/turfpay-backend/internal/ledger"
	"github.com/angelmondragon/turfpay-backend/pkg/db/models"
	"github.com/angelmondragon/turfpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/turfpay-backend/pkg/errors"
	"github.com/angelmondragon/turfpay-backend/pkg/money"
)

// GamePayment is a settled game share, derived from the GAME_JOIN debit.
type GamePayment struct {
	GameID uuid.UUID           `json:"gameId"`
	Amount money.Amount        `json:"amount"`
	Status enums.PaymentStatus `json:"status"`
	PaidAt time.Time           `json:"paidAt"`
}

// Summary is the wallet read model for the profile screen.
type Summary struct {
	Balance      money.Amount               `json:"balance"`
	Transactions []models.WalletTransaction `json:"transactions"`
	GamePayments []GamePayment              `json:"gamePayments"`
}

// Service owns the wallet head. Credit and Debit only move the balance; callers
// append the matching ledger entry in the same transaction.
type Service interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	Summary(ctx context.Context, userID uuid.UUID, recent int) (*Summary, error)
	Credit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) (*models.Wallet, error)
	Debit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) (*models.Wallet, error)
}

type service struct {
	repo   Repository
	ledger ledger.Service
}

// NewService wires the wallet accessor.
func NewService(repo Repository, ledgerSvc ledger.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{repo: repo, ledger: ledgerSvc}, nil
}

func (s *service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if err := s.repo.EnsureExists(ctx, userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create wallet")
	}
	w, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wallet")
	}
	return w, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	w, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

func (s *service) Summary(ctx context.Context, userID uuid.UUID, recent int) (*Summary, error) {
	w, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledger.Recent(ctx, userID, recent)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load recent transactions")
	}
	debits, err := s.ledger.ListUserGamePayments(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load game payments")
	}
	payments := make([]GamePayment, 0, len(debits))
	for _, debit := range debits {
		payments = append(payments, PaymentFromEntry(debit))
	}
	return &Summary{
		Balance:      money.NewAmount(w.Balance),
		Transactions: entries,
		GamePayments: payments,
	}, nil
}

// PaymentFromEntry derives the payment record for a GAME_JOIN debit.
func PaymentFromEntry(entry models.WalletTransaction) GamePayment {
	p := GamePayment{
		Amount: money.NewAmount(entry.Amount),
		Status: enums.PaymentStatusPaid,
		PaidAt: entry.CreatedAt,
	}
	if entry.GameID != nil {
		p.GameID = *entry.GameID
	}
	return p
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) (*models.Wallet, error) {
	return s.move(ctx, tx, userID, amount, false)
}

func (s *service) Debit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) (*models.Wallet, error) {
	return s.move(ctx, tx, userID, amount, true)
}

func (s *service) move(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal, debit bool) (*models.Wallet, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	amount = money.Round2(amount)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	if err := repo.EnsureExists(ctx, userID); err != nil {
		return nil, err
	}
	w, err := repo.LockByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	next := w.Balance.Add(amount)
	if debit {
		if w.Balance.LessThan(amount) {
			return nil, InsufficientBalance(amount, w.Balance)
		}
		next = w.Balance.Sub(amount)
	}
	if err := repo.UpdateBalance(ctx, w, money.Round2(next)); err != nil {
		return nil, err
	}
	return w, nil
}
