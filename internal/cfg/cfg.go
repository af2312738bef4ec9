// Package cfg provides configuration loading for the martingale averaging
// bot. It supports loading from environment variables (the stable,
// documented surface per spec.md §6) with an optional YAML override file
// selected via CONFIG_FILE, exactly as the teacher's internal/cfg package
// layers environment variables over a YAML ConfigFile.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"phemex-martingale-bot/internal/common"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Settings is the root configuration for one process invocation (one tick,
// or the interval loop around repeated ticks).
type Settings struct {
	APIKey    string
	APISecret string

	Instruments []InstrumentConfig

	Testnet      bool
	BotStartup   bool
	BaseURL      string

	TickInterval time.Duration
	TickDeadline time.Duration
	RESTTimeout  time.Duration

	MetricsPort int
	DataPath    string

	TelegramBotToken string
	TelegramChatID   int64

	RateLimitRPS   float64
	RateLimitBurst int

	SymbolConfigs map[string]SymbolConfig
}

// configFile is the optional YAML shape, mirroring the teacher's
// ConfigFile hierarchy (api/trading/system sections).
type configFile struct {
	API struct {
		Key     string `yaml:"key"`
		Secret  string `yaml:"secret"`
		BaseURL string `yaml:"baseURL"`
		Testnet bool   `yaml:"testnet"`
	} `yaml:"api"`

	Symbols []string `yaml:"symbols"` // raw "SYMBOL:SIDE:AUTO" triples

	System struct {
		TickInterval string `yaml:"tickInterval"`
		TickDeadline string `yaml:"tickDeadline"`
		RESTTimeout  string `yaml:"restTimeout"`
		MetricsPort  int    `yaml:"metricsPort"`
		DataPath     string `yaml:"dataPath"`
		BotStartup   bool   `yaml:"botStartup"`
		MaxMarginPct string `yaml:"maxMarginPct"`
	} `yaml:"system"`

	Telegram struct {
		BotToken string `yaml:"botToken"`
		ChatID   int64  `yaml:"chatID"`
	} `yaml:"telegram"`

	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rateLimit"`

	SymbolConfig map[string]SymbolConfig `yaml:"symbolConfig"`
}

// Load loads configuration the way the teacher's cfg.Load does: an
// optional .env file, then either a YAML file (if CONFIG_FILE is set) or
// pure environment variables. In YAML mode, environment variables win for
// the API credentials, SYMBOL, EMA_INTERVAL, MAX_MARGIN_PCT, BASE_URL,
// DATA_PATH and the Telegram settings; TESTNET and BOT_STARTUP are ORed
// with the file's values, so the environment can switch them on but not
// off; tick timing, REST timeout, metrics port and rate limits come from
// the file or the defaults, and their environment variables are not read.
func Load() (Settings, error) {
	_ = godotenv.Load()

	if path := os.Getenv(common.EnvConfigFile); path != "" {
		return loadFromYAML(path)
	}
	return loadFromEnv()
}

func loadFromEnv() (Settings, error) {
	key := os.Getenv(common.EnvAPIKey)
	secret := os.Getenv(common.EnvAPISecret)
	if key == "" || secret == "" {
		return Settings{}, fmt.Errorf(common.ErrMsgAPIKeyRequired)
	}

	rawSymbols := os.Getenv(common.EnvSymbol)
	if rawSymbols == "" {
		return Settings{}, fmt.Errorf(common.ErrMsgSymbolRequired)
	}

	instruments, err := parseInstruments(rawSymbols, getIntOrDefault(common.EnvEmaInterval, common.DefaultEmaIntervalMinutes), getNullDecimalFromEnv(common.EnvMaxMarginPct))
	if err != nil {
		return Settings{}, err
	}

	testnet := getBoolOrDefault(common.EnvTestnet, false)
	baseURL := common.DefaultBaseURL
	if testnet {
		baseURL = common.DefaultTestnetURL
	}
	baseURL = getEnvOrDefault(common.EnvBaseURL, baseURL)

	chatID, _ := strconv.ParseInt(os.Getenv(common.EnvTelegramChatID), 10, 64)

	s := Settings{
		APIKey:           key,
		APISecret:        secret,
		Instruments:      instruments,
		Testnet:          testnet,
		BotStartup:       getBoolOrDefault(common.EnvBotStartup, false),
		BaseURL:          baseURL,
		TickInterval:     getDurationOrDefault(common.EnvTickInterval, common.DefaultTickInterval),
		TickDeadline:     getDurationOrDefault(common.EnvTickDeadline, common.DefaultTickDeadline),
		RESTTimeout:      getDurationOrDefault(common.EnvRESTTimeout, common.DefaultRESTTimeout),
		MetricsPort:      getIntOrDefault(common.EnvMetricsPort, common.DefaultMetricsPort),
		DataPath:         os.Getenv(common.EnvDataPath),
		TelegramBotToken: os.Getenv(common.EnvTelegramBotToken),
		TelegramChatID:   chatID,
		RateLimitRPS:     getFloatOrDefault(common.EnvRateLimitRPS, common.DefaultRateLimitRPS),
		RateLimitBurst:   getIntOrDefault(common.EnvRateLimitBurst, common.DefaultRateLimitBurst),
		SymbolConfigs:    make(map[string]SymbolConfig),
	}

	if err := validate(&s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cf configFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	key := getEnvOrDefault(common.EnvAPIKey, cf.API.Key)
	secret := getEnvOrDefault(common.EnvAPISecret, cf.API.Secret)
	if key == "" || secret == "" {
		return Settings{}, fmt.Errorf(common.ErrMsgAPIKeyRequired)
	}

	rawSymbols := os.Getenv(common.EnvSymbol)
	if rawSymbols == "" {
		rawSymbols = strings.Join(cf.Symbols, ",")
	}
	if rawSymbols == "" {
		return Settings{}, fmt.Errorf(common.ErrMsgSymbolRequired)
	}

	maxMarginPct := getNullDecimalFromEnv(common.EnvMaxMarginPct)
	if !maxMarginPct.Valid && cf.System.MaxMarginPct != "" {
		if d, parseErr := decimal.NewFromString(cf.System.MaxMarginPct); parseErr == nil {
			maxMarginPct = decimal.NullDecimal{Decimal: d, Valid: true}
		}
	}

	instruments, err := parseInstruments(rawSymbols, getIntOrDefault(common.EnvEmaInterval, common.DefaultEmaIntervalMinutes), maxMarginPct)
	if err != nil {
		return Settings{}, err
	}

	testnet := cf.API.Testnet || getBoolOrDefault(common.EnvTestnet, false)
	baseURL := common.DefaultBaseURL
	if testnet {
		baseURL = common.DefaultTestnetURL
	}
	baseURL = getEnvOrDefault(common.EnvBaseURL, firstNonEmpty(cf.API.BaseURL, baseURL))

	s := Settings{
		APIKey:           key,
		APISecret:        secret,
		Instruments:      instruments,
		Testnet:          testnet,
		BotStartup:       cf.System.BotStartup || getBoolOrDefault(common.EnvBotStartup, false),
		BaseURL:          baseURL,
		TickInterval:     durationOrDefault(cf.System.TickInterval, common.DefaultTickInterval),
		TickDeadline:     durationOrDefault(cf.System.TickDeadline, common.DefaultTickDeadline),
		RESTTimeout:      durationOrDefault(cf.System.RESTTimeout, common.DefaultRESTTimeout),
		MetricsPort:      intOrDefault(cf.System.MetricsPort, common.DefaultMetricsPort),
		DataPath:         getEnvOrDefault(common.EnvDataPath, cf.System.DataPath),
		TelegramBotToken: getEnvOrDefault(common.EnvTelegramBotToken, cf.Telegram.BotToken),
		TelegramChatID:   firstNonZeroInt64(parseChatIDEnv(), cf.Telegram.ChatID),
		RateLimitRPS:     floatOrDefault(cf.RateLimit.RPS, common.DefaultRateLimitRPS),
		RateLimitBurst:   intOrDefault(cf.RateLimit.Burst, common.DefaultRateLimitBurst),
		SymbolConfigs:    cf.SymbolConfig,
	}
	if s.SymbolConfigs == nil {
		s.SymbolConfigs = make(map[string]SymbolConfig)
	}

	if err := validate(&s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// GetSymbolConfig returns the per-symbol override for the given instrument,
// falling back to the instrument's own config values when no override is
// registered (teacher's GetSymbolConfig pattern).
func (s Settings) GetSymbolConfig(ic InstrumentConfig) SymbolConfig {
	if sc, ok := s.SymbolConfigs[ic.Symbol]; ok {
		return sc
	}
	return SymbolConfig{
		ProfitPnlTarget:        ic.ProfitPnlTarget,
		ProfitBalanceThreshold: ic.ProfitBalanceThreshold,
		PositionCeilingPct:     ic.PositionCeilingPct,
		InitialEntryPct:        ic.InitialEntryPct,
		AddTriggerDropPct:      ic.AddTriggerDropPct,
		MaxMarginPct:           ic.MaxMarginPct,
	}
}

// parseInstruments implements spec.md §6's parsing rule: split on ',' then
// on ':' at most twice, trim whitespace, AUTO true iff the lowercased
// token is one of true/1/yes. Per-instrument numeric knobs beyond
// SYMBOL:SIDE:AUTO currently come from shared defaults / per-symbol YAML
// overrides (GetSymbolConfig); nothing in spec.md's SYMBOL grammar carries
// them inline.
func parseInstruments(raw string, emaInterval int, maxMarginPct decimal.NullDecimal) ([]InstrumentConfig, error) {
	parts := strings.Split(raw, ",")
	out := make([]InstrumentConfig, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fields := strings.SplitN(p, ":", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%s: %q", common.ErrMsgInvalidSymbol, p)
		}
		symbol := strings.TrimSpace(fields[0])
		sideRaw := strings.TrimSpace(fields[1])
		autoRaw := strings.ToLower(strings.TrimSpace(fields[2]))

		var side Side
		switch strings.ToLower(sideRaw) {
		case "long":
			side = Long
		case "short":
			side = Short
		default:
			return nil, fmt.Errorf("%s: %q", common.ErrMsgInvalidSide, sideRaw)
		}

		auto := autoRaw == "true" || autoRaw == "1" || autoRaw == "yes"

		out = append(out, InstrumentConfig{
			Symbol:                 symbol,
			Side:                   side,
			AutomaticMode:          auto,
			Leverage:               common.DefaultLeverage,
			EmaIntervalMinutes:     emaInterval,
			ProfitPnlTarget:        common.DefaultProfitPnlTarget,
			ProfitBalanceThreshold: common.DefaultProfitBalanceThreshold,
			PositionCeilingPct:     common.DefaultPositionCeilingPct,
			InitialEntryPct:        common.DefaultInitialEntryPct,
			AddTriggerDropPct:      common.DefaultAddTriggerDropPct,
			MaxMarginPct:           maxMarginPct,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf(common.ErrMsgSymbolRequired)
	}
	return out, nil
}

func validate(s *Settings) error {
	if s.APIKey == "" || s.APISecret == "" {
		return fmt.Errorf(common.ErrMsgAPIKeyRequired)
	}
	if len(s.Instruments) == 0 {
		return fmt.Errorf(common.ErrMsgSymbolRequired)
	}
	for _, ic := range s.Instruments {
		if ic.Leverage <= 0 {
			return fmt.Errorf(common.ErrMsgInvalidLeverage)
		}
		if ic.Side != Long && ic.Side != Short {
			return fmt.Errorf(common.ErrMsgInvalidSide)
		}
	}
	if s.TickDeadline <= 0 || s.TickDeadline >= s.TickInterval {
		return fmt.Errorf("tickDeadline must be positive and less than tickInterval")
	}
	if s.RESTTimeout <= 0 {
		return fmt.Errorf("restTimeout must be positive")
	}
	if s.RateLimitRPS <= 0 || s.RateLimitBurst <= 0 {
		return fmt.Errorf("rateLimit rps/burst must be positive")
	}
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolOrDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatOrDefault(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getDurationOrDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func durationOrDefault(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return def
}

func intOrDefault(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

func floatOrDefault(v, def float64) float64 {
	if v != 0 {
		return v
	}
	return def
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZeroInt64(vals ...int64) int64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func parseChatIDEnv() int64 {
	v, _ := strconv.ParseInt(os.Getenv(common.EnvTelegramChatID), 10, 64)
	return v
}

func getNullDecimalFromEnv(key string) decimal.NullDecimal {
	v := os.Getenv(key)
	if v == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
