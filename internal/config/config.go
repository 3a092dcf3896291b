package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	// Binance USDT-M futures
	BinanceAPIKey    string `validate:"required"`
	BinanceSecretKey string `validate:"required"`
	BinanceTestnet   bool
	BinanceBaseURL   string `validate:"omitempty,url"`
	QuoteAsset       string `validate:"required"`
	TimeSyncInterval time.Duration

	// Telegram bot: source channel is read, target channel receives notifications
	TelegramBotToken string
	SourceChannelID  string `validate:"required_with=TelegramBotToken"`
	TargetChannelID  string `validate:"required_with=TelegramBotToken"`

	// Admin HTTP API
	HTTPAddr        string `validate:"required"`
	JWTSecret       string `validate:"required,min=16"`
	MetricsUser     string
	MetricsPassword string `validate:"required_with=MetricsUser"`

	DatabaseURL string
	MappingFile string `validate:"required"`
	LogDir      string `validate:"required"`
	LogLevel    string `validate:"oneof=debug info warn error"`
	LogFormat   string `validate:"oneof=json console"`

	// Risk and sizing
	RiskPercent       float64 `validate:"gt=0,lte=10"`
	MaxLeverage       int     `validate:"min=1,max=125"`
	SizingMode        string  `validate:"oneof=wallet_ratio fixed_notional"`
	FixedNotional     float64 `validate:"gte=0,required_if=SizingMode fixed_notional"`
	SafetyBuffer      float64 `validate:"gte=0"`
	StopLossPercent   float64 `validate:"gt=0,lte=100"`
	TakeProfitPercent float64 `validate:"gt=0,lte=1000"`
	EntryMode         string  `validate:"oneof=market auto"`
	BracketMode       string  `validate:"oneof=managed signal"`

	// Notifications
	NotifyEntry       bool
	NotifyProfit      bool
	NotifyFailure     bool
	TakeProfitDisplay string `validate:"oneof=list average"`

	// Order monitor
	PollInterval       time.Duration `validate:"gt=0"`
	MaxPollInterval    time.Duration `validate:"gtefield=PollInterval"`
	BackoffEvery       int           `validate:"gte=0"`
	EntryFillAttempts  int           `validate:"gte=1"`
	PositionCheckEvery int           `validate:"gte=1"`
	ErrorBackoff       time.Duration `validate:"gt=0"`
	MaxLifetime        time.Duration `validate:"gte=0"`
	RecoverOnStart     bool
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	var errs []string
	p := parser{errs: &errs}

	cfg := &Config{
		BinanceAPIKey:    os.Getenv("BINANCE_API_KEY"),
		BinanceSecretKey: os.Getenv("BINANCE_API_SECRET_KEY"),
		BinanceTestnet:   p.bool("BINANCE_TESTNET", false),
		BinanceBaseURL:   os.Getenv("BINANCE_BASE_URL"),
		QuoteAsset:       getEnv("QUOTE_ASSET", "USDT"),
		TimeSyncInterval: p.duration("TIME_SYNC_INTERVAL", 5*time.Minute),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		SourceChannelID:  os.Getenv("SOURCE_CHANNEL_ID"),
		TargetChannelID:  os.Getenv("TARGET_CHANNEL_ID"),

		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		MetricsUser:     os.Getenv("METRICS_USER"),
		MetricsPassword: os.Getenv("METRICS_PASSWORD"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		MappingFile: getEnv("SYMBOL_MAPPING_FILE", "symbol_mappings.json"),
		LogDir:      getEnv("LOG_DIR", "logs"),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:   strings.ToLower(getEnv("LOG_FORMAT", "json")),

		RiskPercent:       p.float("DEFAULT_RISK_PERCENT", 2.0),
		MaxLeverage:       p.int("MAX_LEVERAGE", 20),
		SizingMode:        strings.ToLower(getEnv("SIZING_MODE", "wallet_ratio")),
		FixedNotional:     p.float("FIXED_NOTIONAL", 0),
		SafetyBuffer:      p.float("SAFETY_BUFFER", 0.5),
		StopLossPercent:   p.float("DEFAULT_SL_PERCENT", 5.0),
		TakeProfitPercent: p.float("DEFAULT_TP_PERCENT", 10.0),
		EntryMode:         strings.ToLower(getEnv("ENTRY_MODE", "market")),
		BracketMode:       strings.ToLower(getEnv("BRACKET_MODE", "managed")),

		NotifyEntry:       p.bool("NOTIFY_ENTRY", true),
		NotifyProfit:      p.bool("NOTIFY_PROFIT", true),
		NotifyFailure:     p.bool("NOTIFY_FAILURE", true),
		TakeProfitDisplay: strings.ToLower(getEnv("TP_DISPLAY_MODE", "list")),

		PollInterval:       p.duration("MONITOR_POLL_INTERVAL", 2*time.Second),
		MaxPollInterval:    p.duration("MONITOR_MAX_POLL_INTERVAL", 30*time.Second),
		BackoffEvery:       p.int("MONITOR_BACKOFF_EVERY", 10),
		EntryFillAttempts:  p.int("MONITOR_ENTRY_FILL_ATTEMPTS", 30),
		PositionCheckEvery: p.int("MONITOR_POSITION_CHECK_EVERY", 3),
		ErrorBackoff:       p.duration("MONITOR_ERROR_BACKOFF", 10*time.Second),
		MaxLifetime:        p.duration("MONITOR_MAX_LIFETIME", 7*24*time.Hour),
		RecoverOnStart:     p.bool("RECOVER_ON_START", true),
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks required settings and ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// parser collects conversion errors instead of failing on the first one.
type parser struct {
	errs *[]string
}

func (p parser) fail(key, v string, err error) {
	*p.errs = append(*p.errs, fmt.Sprintf("%s=%q: %v", key, v, err))
}

func (p parser) bool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p parser) int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p parser) float(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return f
}

func (p parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}
