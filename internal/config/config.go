package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL      string
	DatabaseMaxConns int
	HTTPPort         string
	LogLevel         string
	AdminAPIKey      string

	MarketDataURL         string
	MarketDataAPIKey      string
	MarketDataTimeout     time.Duration
	MarketDataRetryMax    int
	MarketDataConcurrency int

	RedisURL string
	CacheTTL time.Duration

	BaseCurrency       string
	BreakdownWorkers   int
	BreakdownMaxPoints int
	HistoryYears       int

	DCFShortTermGrowth  float64
	DCFLongTermGrowth   float64
	DCFDiscountRate     float64
	DCFTerminalMultiple float64

	FXWorkerInterval     time.Duration
	ReportWorkerInterval time.Duration

	GoogleSheetsID        string
	GoogleCredentialsJSON string
}

// Load reads configuration from environment variables with sensible defaults.
// Variables from a .env file in the working directory are loaded first without
// overriding the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("reading .env file", "error", err)
	}

	return Config{
		DatabaseURL:      envOrDefaultWarn("DATABASE_URL", ""),
		DatabaseMaxConns: envOrDefaultInt("DATABASE_MAX_CONNS", 0),
		HTTPPort:         envOrDefault("HTTP_PORT", "8080"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		AdminAPIKey:      os.Getenv("ADMIN_API_KEY"),

		MarketDataURL:         envOrDefault("MARKETDATA_URL", "https://financialmodelingprep.com"),
		MarketDataAPIKey:      envOrDefaultWarn("MARKETDATA_API_KEY", ""),
		MarketDataTimeout:     envOrDefaultDuration("MARKETDATA_TIMEOUT", 15*time.Second),
		MarketDataRetryMax:    envOrDefaultInt("MARKETDATA_RETRY_MAX", 3),
		MarketDataConcurrency: envOrDefaultInt("MARKETDATA_CONCURRENCY", 4),

		RedisURL: os.Getenv("REDIS_URL"),
		CacheTTL: envOrDefaultDuration("CACHE_TTL", 15*time.Minute),

		BaseCurrency:       strings.ToUpper(envOrDefault("BASE_CURRENCY", "EUR")),
		BreakdownWorkers:   envOrDefaultInt("BREAKDOWN_WORKERS", 0),
		BreakdownMaxPoints: envOrDefaultInt("BREAKDOWN_MAX_POINTS", 5_000_000),
		HistoryYears:       envOrDefaultInt("HISTORY_YEARS", 5),

		DCFShortTermGrowth:  envOrDefaultFloat("DCF_SHORT_TERM_GROWTH", 0.10),
		DCFLongTermGrowth:   envOrDefaultFloat("DCF_LONG_TERM_GROWTH", 0.04),
		DCFDiscountRate:     envOrDefaultFloat("DCF_DISCOUNT_RATE", 0.09),
		DCFTerminalMultiple: envOrDefaultFloat("DCF_TERMINAL_MULTIPLE", 15),

		FXWorkerInterval:     envOrDefaultDuration("FX_WORKER_INTERVAL", 6*time.Hour),
		ReportWorkerInterval: envOrDefaultDuration("REPORT_WORKER_INTERVAL", 24*time.Hour),

		GoogleSheetsID:        os.Getenv("GOOGLE_SHEETS_ID"),
		GoogleCredentialsJSON: os.Getenv("GOOGLE_CREDENTIALS_JSON"),
	}
}

// SlogLevel maps LogLevel to a slog level. Unknown values map to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// PoolSize is the database pool size: DATABASE_MAX_CONNS when set, otherwise the market data
// concurrency plus four, and never below four.
func (c Config) PoolSize() int32 {
	if c.DatabaseMaxConns > 0 {
		return int32(c.DatabaseMaxConns)
	}
	return int32(max(4, c.MarketDataConcurrency+4))
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid float env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return f
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
