package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App            AppConfig
	Service        ServiceConfig
	DB             DBConfig
	Redis          RedisConfig
	JWT            JWTConfig
	FeatureFlags   FeatureFlagsConfig
	GCP            GCPConfig
	PubSub         PubSubConfig
	Outbox         OutboxConfig
	Razorpay       RazorpayConfig
	Settlement     SettlementConfig
	TopupRateLimit TopupRateLimitConfig
	Cron           CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Razorpay.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TURFPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"TURFPAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TURFPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TURFPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"TURFPAY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TURFPAY_DB_DSN"`
	Driver string `envconfig:"TURFPAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TURFPAY_DB_HOST"`
	LegacyPort     int    `envconfig:"TURFPAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TURFPAY_DB_USER"`
	LegacyPassword string `envconfig:"TURFPAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"TURFPAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"TURFPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TURFPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TURFPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TURFPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TURFPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TURFPAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TURFPAY_REDIS_ADDR"`
	Password     string        `envconfig:"TURFPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"TURFPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TURFPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TURFPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TURFPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TURFPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TURFPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig only covers verification; tokens are issued by the auth service.
type JWTConfig struct {
	Secret string `envconfig:"TURFPAY_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"TURFPAY_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TURFPAY_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"TURFPAY_GCP_PROJECT_ID" required:"true"`
}

type PubSubConfig struct {
	WalletTopic        string `envconfig:"TURFPAY_PUBSUB_WALLET_TOPIC" default:"turfpay-wallet-events"`
	WalletSubscription string `envconfig:"TURFPAY_PUBSUB_WALLET_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TURFPAY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TURFPAY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TURFPAY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// RazorpayConfig leaves the keys optional: without them top-ups report the gateway
// as unavailable while the rest of the API keeps serving.
type RazorpayConfig struct {
	KeyID          string        `envconfig:"TURFPAY_RAZORPAY_KEY_ID"`
	KeySecret      string        `envconfig:"TURFPAY_RAZORPAY_KEY_SECRET"`
	BaseURL        string        `envconfig:"TURFPAY_RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`
	Timeout        time.Duration `envconfig:"TURFPAY_RAZORPAY_TIMEOUT" default:"10s"`
	MinTopupAmount string        `envconfig:"TURFPAY_RAZORPAY_MIN_TOPUP_AMOUNT" default:"1"`
}

func (r RazorpayConfig) Enabled() bool {
	return strings.TrimSpace(r.KeyID) != "" && strings.TrimSpace(r.KeySecret) != ""
}

// MinTopup returns the configured minimum top-up in rupees.
func (r RazorpayConfig) MinTopup() decimal.Decimal {
	min, err := decimal.NewFromString(strings.TrimSpace(r.MinTopupAmount))
	if err != nil || min.IsNegative() {
		return decimal.NewFromInt(1)
	}
	return min
}

func (r RazorpayConfig) validate() error {
	if _, err := decimal.NewFromString(strings.TrimSpace(r.MinTopupAmount)); err != nil {
		return fmt.Errorf("%s must be a decimal amount: %w", EnvRazorpayMinTopup, err)
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvRazorpayTimeout)
	}
	return nil
}

type SettlementConfig struct {
	PayShareDivisor string        `envconfig:"TURFPAY_SETTLEMENT_PAY_SHARE_DIVISOR" default:"occupancy"`
	JoinDivisor     string        `envconfig:"TURFPAY_SETTLEMENT_JOIN_DIVISOR" default:"capacity"`
	StatusDivisor   string        `envconfig:"TURFPAY_SETTLEMENT_STATUS_DIVISOR" default:"capacity"`
	TxRetryAttempts int           `envconfig:"TURFPAY_SETTLEMENT_TX_RETRY_ATTEMPTS" default:"3"`
	TxRetryDelay    time.Duration `envconfig:"TURFPAY_SETTLEMENT_TX_RETRY_DELAY" default:"10ms"`
}

type TopupRateLimitConfig struct {
	Window time.Duration `envconfig:"TURFPAY_TOPUP_RATE_LIMIT_WINDOW" default:"1m"`
	Limit  int           `envconfig:"TURFPAY_TOPUP_RATE_LIMIT_LIMIT" default:"10"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"TURFPAY_CRON_INTERVAL" default:"1m"`
	LockTTL         time.Duration `envconfig:"TURFPAY_CRON_LOCK_TTL" default:"50s"`
	GameDuration    time.Duration `envconfig:"TURFPAY_CRON_GAME_DURATION" default:"2h"`
	OutboxRetention time.Duration `envconfig:"TURFPAY_CRON_OUTBOX_RETENTION" default:"168h"`
	DLQRetention    time.Duration `envconfig:"TURFPAY_CRON_DLQ_RETENTION" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
