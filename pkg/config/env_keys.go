package config

const EnvPrefix = "TURFPAY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "TURFPAY_APP_ENV"
	EnvPort     = "TURFPAY_APP_PORT"
	EnvLogLevel = "TURFPAY_LOG_LEVEL"

	EnvDBDSN  = "TURFPAY_DB_DSN"
	EnvDBHost = "TURFPAY_DB_HOST"
	EnvDBPort = "TURFPAY_DB_PORT"
	EnvDBUser = "TURFPAY_DB_USER"
	EnvDBPass = "TURFPAY_DB_PASSWORD"
	EnvDBName = "TURFPAY_DB_NAME"

	EnvRedisURL = "TURFPAY_REDIS_URL"

	EnvJWTSecret = "TURFPAY_JWT_SECRET"
	EnvJWTIssuer = "TURFPAY_JWT_ISSUER"

	EnvGCPProjectID       = "TURFPAY_GCP_PROJECT_ID"
	EnvPubSubWalletTopic  = "TURFPAY_PUBSUB_WALLET_TOPIC"
	EnvPubSubWalletSub    = "TURFPAY_PUBSUB_WALLET_SUBSCRIPTION"
	EnvAutoMigrate        = "TURFPAY_AUTO_MIGRATE"
	EnvRazorpayKeyID      = "TURFPAY_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret  = "TURFPAY_RAZORPAY_KEY_SECRET"
	EnvRazorpayTimeout    = "TURFPAY_RAZORPAY_TIMEOUT"
	EnvRazorpayMinTopup   = "TURFPAY_RAZORPAY_MIN_TOPUP_AMOUNT"
	EnvPayShareDivisor    = "TURFPAY_SETTLEMENT_PAY_SHARE_DIVISOR"
	EnvTopupRateLimitSize = "TURFPAY_TOPUP_RATE_LIMIT_LIMIT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
