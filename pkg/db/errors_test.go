package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_wallet_transactions_razorpay_payment_id"}
	sqliteErr := errors.New("UNIQUE constraint failed: wallet_transactions.user_id, wallet_transactions.game_id")

	assert.False(t, IsUniqueViolation(nil))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", pgErr)))
	assert.True(t, IsUniqueViolation(pgErr, "razorpay_payment_id"))
	assert.False(t, IsUniqueViolation(pgErr, "ux_wallet_transactions_game_join"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))

	assert.True(t, IsUniqueViolation(sqliteErr))
	assert.True(t, IsUniqueViolation(sqliteErr, "ux_wallet_transactions_game_join", "wallet_transactions.game_id"))
	assert.False(t, IsUniqueViolation(sqliteErr, "razorpay_payment_id"))

	assert.True(t, IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "wallets_user_id_key"`), "wallets_user_id_key"))
	assert.False(t, IsUniqueViolation(errors.New("connection reset")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("debit: %w", ErrConcurrentUpdate)))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("boom")))
	assert.False(t, IsRetryable(nil))
}
