package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/turfpay-backend/api/routes"
	"github.com/angelmondragon/turfpay-backend/internal/games"
	"github.com/angelmondragon/turfpay-backend/internal/ledger"
	"github.com/angelmondragon/turfpay-backend/internal/settlement"
	"github.com/angelmondragon/turfpay-backend/internal/topup"
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
	"github.com/angelmondragon/turfpay-backend/pkg/razorpay"
	"github.com/angelmondragon/turfpay-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	walletMetrics := metrics.NewWalletMetrics(reg)

	svc, err := buildServices(cfg, logg, dbClient, walletMetrics)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":              cfg.App.Env,
		"instance":         instance.GetID(),
		"addr":             addr,
		"razorpay_enabled": cfg.Razorpay.Enabled(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, reg, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, walletMetrics *metrics.WalletMetrics) (routes.Services, error) {
	conn := dbClient.DB()
	retry := db.RetryPolicy{Attempts: cfg.Settlement.TxRetryAttempts, Delay: cfg.Settlement.TxRetryDelay}

	payPolicy, err := enums.ParseSharePolicy(cfg.Settlement.PayShareDivisor)
	if err != nil {
		return routes.Services{}, err
	}
	statusPolicy, err := enums.ParseSharePolicy(cfg.Settlement.StatusDivisor)
	if err != nil {
		return routes.Services{}, err
	}
	joinPolicy, err := enums.ParseSharePolicy(cfg.Settlement.JoinDivisor)
	if err != nil {
		return routes.Services{}, err
	}

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}
	walletSvc, err := wallet.NewService(wallet.NewRepository(conn), ledgerSvc)
	if err != nil {
		return routes.Services{}, err
	}
	userRepo := users.NewRepository(conn)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)
	gameRepo := games.NewRepository(conn)

	// Without keys the top-up endpoints answer 503 and everything else keeps serving.
	var gateway topup.Gateway
	if cfg.Razorpay.Enabled() {
		client, err := razorpay.NewFromConfig(cfg.Razorpay, razorpay.WithObserver(walletMetrics))
		if err != nil {
			return routes.Services{}, err
		}
		gateway = client
	} else {
		logg.Warn(context.Background(), "razorpay credentials missing, top-ups disabled")
	}

	topupSvc, err := topup.NewService(topup.ServiceParams{
		Tx:        dbClient,
		Retry:     retry,
		Gateway:   gateway,
		Wallet:    walletSvc,
		Ledger:    ledgerSvc,
		Outbox:    outboxSvc,
		MinAmount: cfg.Razorpay.MinTopup(),
		Metrics:   walletMetrics,
		Logger:    logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	settlementSvc, err := settlement.NewService(settlement.ServiceParams{
		Tx:       dbClient,
		Retry:    retry,
		Games:    games.NewSettlementStore(gameRepo),
		Users:    userRepo,
		Wallet:   walletSvc,
		Ledger:   ledgerSvc,
		Outbox:   outboxSvc,
		Policies: settlement.Policies{PayShare: payPolicy, Status: statusPolicy},
		Metrics:  walletMetrics,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	gamesSvc, err := games.NewService(games.ServiceParams{
		Tx:         dbClient,
		Retry:      retry,
		Repo:       gameRepo,
		Users:      userRepo,
		Wallet:     walletSvc,
		Ledger:     ledgerSvc,
		Outbox:     outboxSvc,
		JoinPolicy: joinPolicy,
		Metrics:    walletMetrics,
		Logger:     logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Wallet:     walletSvc,
		Ledger:     ledgerSvc,
		Topup:      topupSvc,
		Settlement: settlementSvc,
		Games:      gamesSvc,
	}, nil
}
