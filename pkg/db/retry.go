package db

import (
	"context"
	"time"

	"gorm.io/gorm"
)

const (
	DefaultTxAttempts   = 3
	DefaultTxRetryDelay = 10 * time.Millisecond
)

// TxRunner is satisfied by *Client and by test doubles that run fn inline.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: DefaultTxAttempts, Delay: DefaultTxRetryDelay}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultTxAttempts
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// RetryTx runs fn in a fresh transaction up to policy.Attempts times, retrying
// only failures reported by IsRetryable. The delay grows linearly per attempt.
func RetryTx(ctx context.Context, runner TxRunner, policy RetryPolicy, fn func(tx *gorm.DB) error) error {
	policy = policy.normalized()

	var err error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		err = runner.WithTx(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == policy.Attempts {
			break
		}

		timer := time.NewTimer(time.Duration(attempt) * policy.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
