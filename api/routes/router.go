package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/turfpay-backend/api/controllers"
	"github.com/angelmondragon/turfpay-backend/api/middleware"
	"github.com/angelmondragon/turfpay-backend/internal/games"
	"github.com/angelmondragon/turfpay-backend/internal/ledger"
	"github.com/angelmondragon/turfpay-backend/internal/settlement"
	"github.com/angelmondragon/turfpay-backend/internal/topup"
	"github.com/angelmondragon/turfpay-backend/internal/wallet"
	"github.com/angelmondragon/turfpay-backend/pkg/config"
	"github.com/angelmondragon/turfpay-backend/pkg/db"
	"github.com/angelmondragon/turfpay-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/turfpay-backend/pkg/redis"
)

// RedisStore is the slice of the Redis client the HTTP layer needs.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Services bundles what the routes dispatch to.
type Services struct {
	Wallet     wallet.Service
	Ledger     ledger.Service
	Topup      topup.Service
	Settlement settlement.Service
	Games      games.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisStore RedisStore,
	gatherer prometheus.Gatherer,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	topupPolicy := middleware.NewRateLimitPolicy(
		"topup",
		cfg.TopupRateLimit.Window,
		cfg.TopupRateLimit.Limit,
	)

	deps := map[string]controllers.Pinger{}
	if dbP != nil {
		deps["db"] = dbP
	}
	if redisStore != nil {
		deps["redis"] = redisStore
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	var (
		idemStore pkgredis.IdempotencyStore
		rateStore interface {
			FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error)
		}
	)
	if redisStore != nil {
		idemStore = redisStore
		rateStore = redisStore
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/games", controllers.GamesListOpen(svc.Games, logg))

		// Routes stay flat inside the group so middleware sees the full route pattern.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(idemStore, logg))

			r.With(middleware.RateLimit(topupPolicy, rateStore, logg)).Post("/wallet/create-order", controllers.WalletCreateOrder(svc.Topup, logg))
			r.Post("/wallet/verify-and-credit", controllers.WalletVerifyAndCredit(svc.Topup, logg))
			r.Get("/wallet/balance", controllers.WalletBalance(svc.Wallet, logg))
			r.Get("/wallet/me", controllers.WalletMe(svc.Wallet, logg))
			r.Get("/wallet/transactions", controllers.WalletTransactions(svc.Ledger, logg))
			r.Get("/wallet/games/{gameId}/status", controllers.WalletGameStatus(svc.Settlement, logg))
			r.Post("/wallet/games/{gameId}/pay", controllers.WalletPayShare(svc.Settlement, logg))

			r.Post("/games", controllers.GamesCreate(svc.Games, logg))
			r.Get("/games/mine", controllers.GamesListMine(svc.Games, logg))
			r.Post("/games/auto-join", controllers.GamesAutoJoin(svc.Games, logg))
			r.Get("/games/{gameId}/players", controllers.GamesRoster(svc.Games, logg))
			r.Post("/games/{gameId}/join", controllers.GamesJoin(svc.Games, logg))
			r.Post("/games/{gameId}/leave", controllers.GamesLeave(svc.Games, logg))
			r.Post("/games/{gameId}/add-player", controllers.GamesAddPlayer(svc.Games, logg))
			r.Post("/games/{gameId}/kick/{playerId}", controllers.GamesKickPlayer(svc.Games, logg))
			r.Post("/games/{gameId}/status", controllers.GamesUpdateStatus(svc.Games, logg))
			r.Post("/games/{gameId}/join-with-wallet", controllers.GamesJoinWithWallet(svc.Games, logg))
		})
	})

	return r
}
