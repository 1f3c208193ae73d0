package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/turfpay-backend/internal/games"
	"github.com/angelmondragon/turfpay-backend/internal/wallet"
	pkgAuth "github.com/angelmondragon/turfpay-backend/pkg/auth"
	"github.com/angelmondragon/turfpay-backend/pkg/config"
	"github.com/angelmondragon/turfpay-backend/pkg/logger"
	"github.com/angelmondragon/turfpay-backend/pkg/metrics"
	"github.com/angelmondragon/turfpay-backend/pkg/money"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type memoryRedis struct {
	mu     sync.Mutex
	data   map[string]string
	counts map[string]int64
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string { return "idem:" + scope + ":" + id }

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryRedis) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[scope]++
	return m.counts[scope] <= limit, m.counts[scope], nil
}

func (m *memoryRedis) Ping(context.Context) error { return nil }

// Embedded interfaces panic if a route reaches a method the test did not stub.
type stubWallet struct {
	wallet.Service
}

func (stubWallet) Balance(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return decimal.NewFromInt(75), nil
}

type stubGames struct {
	games.Service
	mu    sync.Mutex
	joins int
}

func (s *stubGames) ListOpen(context.Context, games.ListFilter) ([]games.GameDTO, error) {
	return []games.GameDTO{}, nil
}

func (s *stubGames) JoinWithWallet(_ context.Context, _ uuid.UUID, gameID uuid.UUID) (*games.JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joins++
	return &games.JoinResult{
		WalletBalance:  money.NewAmount(decimal.NewFromInt(75)),
		AmountDeducted: money.NewAmount(decimal.NewFromInt(25)),
		Game:           games.JoinedGame{ID: gameID},
	}, nil
}

type fixture struct {
	handler http.Handler
	games   *stubGames
	token   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		App:            config.AppConfig{Env: "test"},
		JWT:            config.JWTConfig{Secret: "secret", Issuer: "turfpay-auth"},
		TopupRateLimit: config.TopupRateLimitConfig{Window: time.Minute, Limit: 10},
	}
	reg := prometheus.NewRegistry()
	metrics.NewWalletMetrics(reg).IncDebit("GAME_JOIN")

	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), time.Hour, pkgAuth.AccessTokenPayload{UserID: uuid.New()})
	require.NoError(t, err)

	gs := &stubGames{}
	h := NewRouter(cfg, logger.Nop(), stubPinger{}, newMemoryRedis(), reg, Services{
		Wallet: stubWallet{},
		Games:  gs,
	})
	return &fixture{handler: h, games: gs, token: token}
}

func (f *fixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health/live", "", nil).Code)

	rec := f.do(http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"up"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wallet_debits_total")
}

func TestPublicGamesListNeedsNoToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/games", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWalletRoutesRequireAuth(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/wallet/balance", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/v1/games", `{}`, nil).Code)

	rec := f.do(http.MethodGet, "/api/v1/wallet/balance", "", map[string]string{"Authorization": "Bearer " + f.token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"balance":"75.00"}}`, rec.Body.String())
}

func TestJoinWithWalletIsIdempotent(t *testing.T) {
	f := newFixture(t)
	path := "/api/v1/games/" + uuid.NewString() + "/join-with-wallet"
	auth := map[string]string{"Authorization": "Bearer " + f.token}

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, path, "", auth).Code)

	auth["Idempotency-Key"] = "join-1"
	first := f.do(http.MethodPost, path, "", auth)
	second := f.do(http.MethodPost, path, "", auth)

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, f.games.joins)
}
