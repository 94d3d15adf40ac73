package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might affect defaults
	for _, key := range []string{"MARKETDATA_URL", "DATABASE_URL", "HTTP_PORT", "MARKETDATA_RETRY_MAX", "BASE_CURRENCY", "DCF_DISCOUNT_RATE", "CACHE_TTL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.MarketDataURL != "https://financialmodelingprep.com" {
		t.Errorf("MarketDataURL = %q, want default", cfg.MarketDataURL)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
	if cfg.MarketDataRetryMax != 3 {
		t.Errorf("MarketDataRetryMax = %d, want 3", cfg.MarketDataRetryMax)
	}
	if cfg.BaseCurrency != "EUR" {
		t.Errorf("BaseCurrency = %q, want EUR", cfg.BaseCurrency)
	}
	if cfg.DCFDiscountRate != 0.09 {
		t.Errorf("DCFDiscountRate = %v, want 0.09", cfg.DCFDiscountRate)
	}
	if cfg.CacheTTL != 15*time.Minute {
		t.Errorf("CacheTTL = %v, want 15m", cfg.CacheTTL)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q, want 8080", cfg.HTTPPort)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MARKETDATA_URL", "https://marketdata.example.com")
	t.Setenv("DATABASE_URL", "postgres://localhost/testdb")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("MARKETDATA_RETRY_MAX", "10")
	t.Setenv("FX_WORKER_INTERVAL", "30m")
	t.Setenv("BASE_CURRENCY", "usd")
	t.Setenv("DCF_TERMINAL_MULTIPLE", "12.5")

	cfg := Load()

	if cfg.MarketDataURL != "https://marketdata.example.com" {
		t.Errorf("MarketDataURL = %q, want override", cfg.MarketDataURL)
	}
	if cfg.DatabaseURL != "postgres://localhost/testdb" {
		t.Errorf("DatabaseURL = %q, want override", cfg.DatabaseURL)
	}
	if cfg.HTTPPort != "9090" {
		t.Errorf("HTTPPort = %q, want 9090", cfg.HTTPPort)
	}
	if cfg.MarketDataRetryMax != 10 {
		t.Errorf("MarketDataRetryMax = %d, want 10", cfg.MarketDataRetryMax)
	}
	if cfg.FXWorkerInterval != 30*time.Minute {
		t.Errorf("FXWorkerInterval = %v, want 30m", cfg.FXWorkerInterval)
	}
	if cfg.BaseCurrency != "USD" {
		t.Errorf("BaseCurrency = %q, want USD", cfg.BaseCurrency)
	}
	if cfg.DCFTerminalMultiple != 12.5 {
		t.Errorf("DCFTerminalMultiple = %v, want 12.5", cfg.DCFTerminalMultiple)
	}
}

func TestLoadInvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("MARKETDATA_RETRY_MAX", "not-a-number")
	t.Setenv("MARKETDATA_TIMEOUT", "invalid-duration")
	t.Setenv("DCF_LONG_TERM_GROWTH", "four percent")

	cfg := Load()

	if cfg.MarketDataRetryMax != 3 {
		t.Errorf("MarketDataRetryMax = %d, want default 3 on invalid input", cfg.MarketDataRetryMax)
	}
	if cfg.MarketDataTimeout != 15*time.Second {
		t.Errorf("MarketDataTimeout = %v, want default 15s on invalid input", cfg.MarketDataTimeout)
	}
	if cfg.DCFLongTermGrowth != 0.04 {
		t.Errorf("DCFLongTermGrowth = %v, want default 0.04 on invalid input", cfg.DCFLongTermGrowth)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := (Config{LogLevel: tt.in}).SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPoolSize(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want int32
	}{
		{"explicit", Config{DatabaseMaxConns: 20, MarketDataConcurrency: 4}, 20},
		{"from concurrency", Config{MarketDataConcurrency: 8}, 12},
		{"floor", Config{}, 4},
	}
	for _, tt := range tests {
		if got := tt.cfg.PoolSize(); got != tt.want {
			t.Errorf("%s: PoolSize() = %d, want %d", tt.name, got, tt.want)
		}
	}
}
