package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/turfpay-backend/internal/ledger"
	"github.com/angelmondragon/turfpay-backend/pkg/db"
	"github.com/angelmondragon/turfpay-backend/pkg/db/dbtest"
	"github.com/angelmondragon/turfpay-backend/pkg/db/models"
	"github.com/angelmondragon/turfpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/turfpay-backend/pkg/errors"
)

type fixture struct {
	client *db.Client
	repo   Repository
	ledger ledger.Service
	svc    Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.Open(t)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(client.DB()))
	require.NoError(t, err)
	repo := NewRepository(client.DB())
	svc, err := NewService(repo, ledgerSvc)
	require.NoError(t, err)
	return fixture{client: client, repo: repo, ledger: ledgerSvc, svc: svc}
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestGetOrCreateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := f.svc.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	assert.True(t, first.Balance.IsZero())

	second, err := f.svc.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, f.client.DB().Model(&models.Wallet{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = f.svc.GetOrCreate(ctx, uuid.Nil)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestCreditThenDebitRestoresBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	err := f.client.WithTx(ctx, func(tx *gorm.DB) error {
		w, err := f.svc.Credit(ctx, tx, userID, d("120.505"))
		if err != nil {
			return err
		}
		assert.True(t, w.Balance.Equal(d("120.51")))
		_, err = f.svc.Debit(ctx, tx, userID, d("120.51"))
		return err
	})
	require.NoError(t, err)

	balance, err := f.svc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	w, err := f.repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, w.Version)
}

func TestDebitInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, f.client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := f.svc.Credit(ctx, tx, userID, d("10"))
		return err
	}))

	err := f.client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := f.svc.Debit(ctx, tx, userID, d("25"))
		return err
	})
	require.ErrorIs(t, err, ErrInsufficientBalance)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeBusinessRule, typed.Code())
	details, ok := typed.Details().(ShortfallDetails)
	require.True(t, ok)
	assert.True(t, details.Required.Equal(d("25")))
	assert.True(t, details.CurrentBalance.Equal(d("10")))
	assert.True(t, details.Shortfall.Equal(d("15")))

	balance, err := f.svc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(d("10")))
}

func TestMoveValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Credit(ctx, nil, uuid.New(), d("1"))
	require.Error(t, err)

	err = f.client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := f.svc.Debit(ctx, tx, uuid.New(), d("-3"))
		return err
	})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestUpdateBalanceDetectsConcurrentWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	stale, err := f.svc.GetOrCreate(ctx, userID)
	require.NoError(t, err)

	fresh, err := f.repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, f.repo.UpdateBalance(ctx, fresh, d("50")))

	err = f.repo.UpdateBalance(ctx, stale, d("10"))
	require.ErrorIs(t, err, db.ErrConcurrentUpdate)
	assert.True(t, db.IsRetryable(err))

	current, err := f.repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, current.Balance.Equal(d("50")))
}

func TestSummaryIncludesRecentAndGamePayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	gameID := uuid.New()
	paidAt := time.Date(2026, 9, 14, 18, 30, 0, 0, time.UTC)

	require.NoError(t, f.client.WithTx(ctx, func(tx *gorm.DB) error {
		w, err := f.svc.Credit(ctx, tx, userID, d("100"))
		if err != nil {
			return err
		}
		if err := f.ledger.WithTx(tx).Append(ctx, &models.WalletTransaction{
			UserID: userID, Type: enums.TransactionCredit, Reason: enums.ReasonAddMoney,
			Amount: d("100"), BalanceAfter: w.Balance, CreatedAt: paidAt.Add(-time.Hour),
		}); err != nil {
			return err
		}
		w, err = f.svc.Debit(ctx, tx, userID, d("25"))
		if err != nil {
			return err
		}
		return f.ledger.WithTx(tx).Append(ctx, &models.WalletTransaction{
			UserID: userID, Type: enums.TransactionDebit, Reason: enums.ReasonGameJoin,
			Amount: d("25"), GameID: &gameID, BalanceAfter: w.Balance, CreatedAt: paidAt,
		})
	}))

	summary, err := f.svc.Summary(ctx, userID, 10)
	require.NoError(t, err)
	assert.True(t, summary.Balance.Equal(d("75")))
	require.Len(t, summary.Transactions, 2)
	assert.Equal(t, enums.TransactionDebit, summary.Transactions[0].Type)
	require.Len(t, summary.GamePayments, 1)
	payment := summary.GamePayments[0]
	assert.Equal(t, gameID, payment.GameID)
	assert.Equal(t, enums.PaymentStatusPaid, payment.Status)
	assert.True(t, payment.Amount.Equal(d("25")))
	assert.True(t, payment.PaidAt.Equal(paidAt))

	fresh, err := f.svc.Summary(ctx, uuid.New(), 0)
	require.NoError(t, err)
	assert.True(t, fresh.Balance.IsZero())
	assert.Empty(t, fresh.Transactions)
	assert.NotNil(t, fresh.GamePayments)
}
