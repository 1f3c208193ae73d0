package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/turfpay-backend/internal/cron"
	"github.com/angelmondragon/turfpay-backend/internal/games"
	"github.com/angelmondragon/turfpay-backend/internal/ledger"
	"github.com/angelmondragon/turfpay-backend/internal/users"
	"github.com/angelmondragon/turfpay-backend/internal/wallet"
	"github.com/angelmondragon/turfpay-backend/pkg/config"
	"github.com/angelmondragon/turfpay-backend/pkg/db"
	"github.com/angelmondragon/turfpay-backend/pkg/enums"
	"github.com/angelmondragon/turfpay-backend/pkg/instance"
	"github.com/angelmondragon/turfpay-backend/pkg/logger"
	"github.com/angelmondragon/turfpay-backend/pkg/metrics"
	"github.com/angelmondragon/turfpay-backend/pkg/migrate"
	"github.com/angelmondragon/turfpay-backend/pkg/outbox"
	"github.com/angelmondragon/turfpay-backend/pkg/redis"
)

const lockName = "cron-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gamesSvc, err := buildGames(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create games service", err)
		os.Exit(1)
	}

	lifecycleJob, err := cron.NewGameLifecycleJob(cron.GameLifecycleJobParams{
		Logger:       logg,
		Games:        gamesSvc,
		GameDuration: cfg.Cron.GameDuration,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create game lifecycle job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:       logg,
		DB:           dbClient,
		Outbox:       outbox.NewRepository(dbClient.DB()),
		DLQ:          outbox.NewDLQRepository(dbClient.DB()),
		Retention:    cfg.Cron.OutboxRetention,
		DLQRetention: cfg.Cron.DLQRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(lifecycleJob, retentionJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
		"interval":    cfg.Cron.Interval.String(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildGames(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (games.Service, error) {
	conn := dbClient.DB()
	joinPolicy, err := enums.ParseSharePolicy(cfg.Settlement.JoinDivisor)
	if err != nil {
		return nil, err
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return nil, err
	}
	walletSvc, err := wallet.NewService(wallet.NewRepository(conn), ledgerSvc)
	if err != nil {
		return nil, err
	}
	return games.NewService(games.ServiceParams{
		Tx:         dbClient,
		Retry:      db.RetryPolicy{Attempts: cfg.Settlement.TxRetryAttempts, Delay: cfg.Settlement.TxRetryDelay},
		Repo:       games.NewRepository(conn),
		Users:      users.NewRepository(conn),
		Wallet:     walletSvc,
		Ledger:     ledgerSvc,
		Outbox:     outbox.NewService(outbox.NewRepository(conn), logg),
		JoinPolicy: joinPolicy,
		Logger:     logg,
	})
}
