package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/turfpay-backend/internal/games"
	"github.com/angelmondragon/turfpay-backend/pkg/logger"
)

type fakeAdvancer struct {
	now      time.Time
	duration time.Duration
	result   games.LifecycleResult
	err      error
}

func (f *fakeAdvancer) AdvanceLifecycle(ctx context.Context, now time.Time, gameDuration time.Duration) (games.LifecycleResult, error) {
	f.now = now
	f.duration = gameDuration
	return f.result, f.err
}

func TestGameLifecycleJobAdvancesGames(t *testing.T) {
	now := time.Date(2026, 11, 2, 20, 0, 0, 0, time.UTC)
	advancer := &fakeAdvancer{result: games.LifecycleResult{Started: 2, Finished: 1}}
	jobIface, err := NewGameLifecycleJob(GameLifecycleJobParams{Logger: logger.Nop(), Games: advancer})
	if err != nil {
		t.Fatalf("NewGameLifecycleJob: %v", err)
	}
	job := jobIface.(*gameLifecycleJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !advancer.now.Equal(now) {
		t.Fatalf("expected now %s, got %s", now, advancer.now)
	}
	if advancer.duration != defaultGameDuration {
		t.Fatalf("expected default duration, got %s", advancer.duration)
	}
	if job.Name() != "game-lifecycle" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
}

func TestGameLifecycleJobPropagatesError(t *testing.T) {
	advancer := &fakeAdvancer{err: errors.New("db down")}
	job, err := NewGameLifecycleJob(GameLifecycleJobParams{Logger: logger.Nop(), Games: advancer, GameDuration: time.Hour})
	if err != nil {
		t.Fatalf("NewGameLifecycleJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if advancer.duration != time.Hour {
		t.Fatalf("expected configured duration, got %s", advancer.duration)
	}
}
