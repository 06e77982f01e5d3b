package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	cfg.LogLevel = "loud"
	cfg.Redis.Addr = ""
	cfg.Detector.AlertThreshold = 1.5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "unknown log_level")
	assert.Contains(t, err.Error(), "redis: addr")
	assert.Contains(t, err.Error(), "alert_threshold")
}

func TestValidateMonitorSection(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "monitor"
	cfg.Monitor.LargeTradeUSD = 0
	cfg.Monitor.ContrarianPrice = 1.2

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "large_trade_usd")
	assert.Contains(t, err.Error(), "contrarian_price")

	// The monitor section is ignored when the monitor is off.
	cfg.Mode = "scan"
	cfg.Monitor.Enabled = false
	assert.NoError(t, cfg.Validate())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := []byte(`
mode = "backtest"
log_level = "debug"

[detector]
top_markets = 5

[monitor]
interval = "45s"
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "backtest", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5, cfg.Detector.TopMarkets)
	assert.Equal(t, 45*time.Second, cfg.Monitor.Interval.Duration)
	// Untouched sections keep their defaults.
	assert.Equal(t, "https://gamma-api.polymarket.com", cfg.Polymarket.GammaHost)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SENTINEL_MODE", "quickscan")
	t.Setenv("SENTINEL_DETECTOR_ALERT_THRESHOLD", "0.9")
	t.Setenv("SENTINEL_MONITOR_INTERVAL", "2m")
	t.Setenv("SENTINEL_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SENTINEL_DATABASE_PORT", "not-a-number") // ignored

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "quickscan", cfg.Mode)
	assert.InDelta(t, 0.9, cfg.Detector.AlertThreshold, 1e-9)
	assert.Equal(t, 2*time.Minute, cfg.Monitor.Interval.Duration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Database.Password = "hunter2"
	cfg.Kalshi.ApiKey = "key-123"
	cfg.Notify.TelegramToken = "tg-token"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Database.Password)
	assert.Equal(t, "***", red.Kalshi.ApiKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	// The original must be untouched.
	assert.Equal(t, "hunter2", cfg.Database.Password)
	// Empty secrets stay empty rather than turning into placeholders.
	assert.Empty(t, red.S3.SecretKey)
}
