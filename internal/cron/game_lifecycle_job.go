package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/turfpay-backend/internal/games"
	"github.com/angelmondragon/turfpay-backend/pkg/logger"
)

const defaultGameDuration = 2 * time.Hour

type lifecycleAdvancer interface {
	AdvanceLifecycle(ctx context.Context, now time.Time, gameDuration time.Duration) (games.LifecycleResult, error)
}

type GameLifecycleJobParams struct {
	Logger       *logger.Logger
	Games        lifecycleAdvancer
	GameDuration time.Duration
}

// NewGameLifecycleJob moves started games to ongoing and finished ones to
// finished.
func NewGameLifecycleJob(params GameLifecycleJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Games == nil {
		return nil, fmt.Errorf("games service required")
	}
	duration := params.GameDuration
	if duration <= 0 {
		duration = defaultGameDuration
	}
	return &gameLifecycleJob{
		logg:     params.Logger,
		games:    params.Games,
		duration: duration,
		now:      time.Now,
	}, nil
}

type gameLifecycleJob struct {
	logg     *logger.Logger
	games    lifecycleAdvancer
	duration time.Duration
	now      func() time.Time
}

func (j *gameLifecycleJob) Name() string { return "game-lifecycle" }

func (j *gameLifecycleJob) Run(ctx context.Context) error {
	res, err := j.games.AdvanceLifecycle(ctx, j.now().UTC(), j.duration)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"started":  res.Started,
		"finished": res.Finished,
	})
	if err != nil {
		return fmt.Errorf("game lifecycle: %w", err)
	}
	j.logg.Info(logCtx, "game lifecycle pass complete")
	return nil
}
