package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countingRunner struct {
	calls int
}

func (r *countingRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	r.calls++
	return fn(nil)
}

func TestRetryTxRetriesConcurrentUpdates(t *testing.T) {
	runner := &countingRunner{}
	policy := RetryPolicy{Attempts: 3, Delay: time.Millisecond}

	attempts := 0
	err := RetryTx(context.Background(), runner, policy, func(tx *gorm.DB) error {
		attempts++
		if attempts < 3 {
			return ErrConcurrentUpdate
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, runner.calls)
}

func TestRetryTxGivesUpAfterAttempts(t *testing.T) {
	runner := &countingRunner{}
	err := RetryTx(context.Background(), runner, RetryPolicy{Attempts: 2}, func(tx *gorm.DB) error {
		return ErrConcurrentUpdate
	})
	require.ErrorIs(t, err, ErrConcurrentUpdate)
	require.Equal(t, 2, runner.calls)
}

func TestRetryTxDoesNotRetryOtherErrors(t *testing.T) {
	runner := &countingRunner{}
	boom := errors.New("boom")
	err := RetryTx(context.Background(), runner, DefaultRetryPolicy(), func(tx *gorm.DB) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, runner.calls)
}

func TestRetryTxStopsOnCancelledContext(t *testing.T) {
	runner := &countingRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryTx(ctx, runner, RetryPolicy{Attempts: 3, Delay: time.Second}, func(tx *gorm.DB) error {
		return ErrConcurrentUpdate
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, runner.calls)
}
