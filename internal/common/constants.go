// Package common holds environment variable names, defaults, and error
// message strings shared across configuration and validation.
package common

import "time"

// Environment variable keys.
const (
	EnvAPIKey       = "API_KEY"
	EnvAPISecret    = "API_SECRET"
	EnvSymbol       = "SYMBOL"
	EnvEmaInterval  = "EMA_INTERVAL"
	EnvTestnet      = "TESTNET"
	EnvBotStartup   = "BOT_STARTUP"
	EnvBaseURL      = "BASE_URL"
	EnvTestnetURL   = "TESTNET_URL"
	EnvTickInterval = "TICK_INTERVAL"
	EnvTickDeadline = "TICK_DEADLINE"
	EnvRESTTimeout  = "REST_TIMEOUT"
	EnvMetricsPort  = "METRICS_PORT"
	EnvDataPath     = "DATA_PATH"
	EnvConfigFile   = "CONFIG_FILE"

	EnvTelegramBotToken = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID   = "TELEGRAM_CHAT_ID"

	EnvRateLimitRPS   = "RATE_LIMIT_RPS"
	EnvRateLimitBurst = "RATE_LIMIT_BURST"

	EnvMaxMarginPct = "MAX_MARGIN_PCT"
)

// Defaults.
const (
	DefaultBaseURL            = "https://api.phemex.com"
	DefaultTestnetURL         = "https://testnet-api.phemex.com"
	DefaultEmaIntervalMinutes = 1
	DefaultMetricsPort        = 8090
	DefaultRateLimitRPS       = 10.0
	DefaultRateLimitBurst     = 10

	DefaultTickInterval = time.Minute
	DefaultTickDeadline = 50 * time.Second
	DefaultRESTTimeout  = 10 * time.Second

	DefaultVolatilityATRRatio   = 1.5
	DefaultVolatilityBBWidthPct = 8.0
	DefaultVolatilityHistVol    = 5.0

	DefaultRetryMaxAttempts = 3
	DefaultRetryBaseDelay   = 500 * time.Millisecond
	DefaultRetryFactor      = 2.0
	DefaultRetryJitter      = 0.25

	DefaultMarginCriticalLevel = 2.0
	DefaultMarginWarningLevel = 1.5

	// Per-instrument strategy defaults applied when a SYMBOL triple does not
	// carry an explicit override (see cfg.Settings.GetSymbolConfig).
	DefaultLeverage                = 10
	DefaultProfitPnlTarget         = 0.10
	DefaultProfitBalanceThreshold  = 0.003
	DefaultPositionCeilingPct      = 0.10
	DefaultInitialEntryPct         = 0.006
	DefaultAddTriggerDropPct       = 0.02
)

// Error messages.
const (
	ErrMsgAPIKeyRequired    = "API_KEY and API_SECRET are required"
	ErrMsgSymbolRequired    = "at least one SYMBOL triple is required"
	ErrMsgInvalidSymbol     = "invalid SYMBOL triple (expected SYMBOL:SIDE:AUTO)"
	ErrMsgInvalidSide       = "side must be Long or Short"
	ErrMsgInvalidLeverage   = "leverage must be a positive integer"
)
