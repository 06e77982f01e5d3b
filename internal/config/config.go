// Package config defines the top-level configuration for the sentinel
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SENTINEL_* environment variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Manifold   ManifoldConfig   `toml:"manifold"`
	Database   DatabaseConfig   `toml:"database"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Detector   DetectorConfig   `toml:"detector"`
	Monitor    MonitorConfig    `toml:"monitor"`
	Backtest   BacktestConfig   `toml:"backtest"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds Polymarket API endpoints.
type PolymarketConfig struct {
	GammaHost string `toml:"gamma_host"`
	DataHost  string `toml:"data_host"`
}

// KalshiConfig holds Kalshi exchange API parameters. The key fields are
// optional; public market data needs no authentication.
type KalshiConfig struct {
	BaseURL           string `toml:"base_url"`
	ApiKey            string `toml:"api_key"`
	RsaPrivateKeyPath string `toml:"rsa_private_key_path"`
}

// ManifoldConfig holds Manifold Markets API parameters.
type ManifoldConfig struct {
	BaseURL string `toml:"base_url"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// DetectorConfig holds scan-cycle parameters.
type DetectorConfig struct {
	TopMarkets     int     `toml:"top_markets"`
	TradeLimit     int     `toml:"trade_limit"`
	AlertThreshold float64 `toml:"alert_threshold"`
	QuickScanMin   float64 `toml:"quick_scan_min"`
}

// MonitorConfig holds live large-trade monitor parameters.
type MonitorConfig struct {
	Enabled           bool     `toml:"enabled"`
	Interval          duration `toml:"interval"`
	LargeTradeUSD     float64  `toml:"large_trade_usd"`
	FreshAccountMax   int      `toml:"fresh_account_max"`
	ContrarianPrice   float64  `toml:"contrarian_price"`
	TopMarkets        int      `toml:"top_markets"`
	TradesPerMarket   int      `toml:"trades_per_market"`
	CSVLogPath        string   `toml:"csv_log_path"`
	SeenRetentionDays int      `toml:"seen_retention_days"`
}

// BacktestConfig holds batch backtest parameters.
type BacktestConfig struct {
	MaxMarkets int `toml:"max_markets"`
	TradeLimit int `toml:"trade_limit"`
}

// PipelineConfig holds scan-loop and archival parameters.
type PipelineConfig struct {
	Enabled              bool     `toml:"enabled"`
	ScanInterval         duration `toml:"scan_interval"`
	ArchiveRetentionDays int      `toml:"archive_retention_days"`
	ArchiveCron          string   `toml:"archive_cron"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters. An empty APIKey disables
// authentication; a zero RateLimit disables per-client rate limiting.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
			DataHost:  "https://data-api.polymarket.com",
		},
		Kalshi: KalshiConfig{
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
		},
		Manifold: ManifoldConfig{
			BaseURL: "https://api.manifold.markets/v0",
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "sentinel",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "sentinel-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Detector: DetectorConfig{
			TopMarkets:     20,
			TradeLimit:     500,
			AlertThreshold: 0.7,
			QuickScanMin:   7.0,
		},
		Monitor: MonitorConfig{
			Enabled:           false,
			Interval:          duration{30 * time.Second},
			LargeTradeUSD:     400,
			FreshAccountMax:   10,
			ContrarianPrice:   0.20,
			TopMarkets:        50,
			TradesPerMarket:   50,
			CSVLogPath:        "trades_log.csv",
			SeenRetentionDays: 7,
		},
		Backtest: BacktestConfig{
			MaxMarkets: 50,
			TradeLimit: 1000,
		},
		Pipeline: PipelineConfig{
			Enabled:              true,
			ScanInterval:         duration{15 * time.Minute},
			ArchiveRetentionDays: 90,
			ArchiveCron:          "0 3 1 * *",
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"high_probability", "fresh_insider", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":      true,
	"quickscan": true,
	"monitor":   true,
	"backtest":  true,
	"serve":     true,
	"full":      true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, quickscan, monitor, backtest, serve, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Platform endpoints
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Polymarket.DataHost == "" {
		errs = append(errs, "polymarket: data_host must not be empty")
	}
	if c.Kalshi.BaseURL == "" {
		errs = append(errs, "kalshi: base_url must not be empty")
	}
	if c.Manifold.BaseURL == "" {
		errs = append(errs, "manifold: base_url must not be empty")
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Endpoint == "" {
		errs = append(errs, "s3: endpoint must not be empty")
	}
	if c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	// Detector
	if c.Detector.TopMarkets < 1 {
		errs = append(errs, "detector: top_markets must be >= 1")
	}
	if c.Detector.TradeLimit < 1 {
		errs = append(errs, "detector: trade_limit must be >= 1")
	}
	if c.Detector.AlertThreshold < 0 || c.Detector.AlertThreshold > 1 {
		errs = append(errs, fmt.Sprintf("detector: alert_threshold must be in [0,1], got %g", c.Detector.AlertThreshold))
	}
	if c.Detector.QuickScanMin < 0 || c.Detector.QuickScanMin > 10 {
		errs = append(errs, fmt.Sprintf("detector: quick_scan_min must be in [0,10], got %g", c.Detector.QuickScanMin))
	}

	// Monitor
	if c.Monitor.Enabled || c.Mode == "monitor" {
		if c.Monitor.Interval.Duration <= 0 {
			errs = append(errs, "monitor: interval must be positive")
		}
		if c.Monitor.LargeTradeUSD <= 0 {
			errs = append(errs, "monitor: large_trade_usd must be > 0")
		}
		if c.Monitor.ContrarianPrice <= 0 || c.Monitor.ContrarianPrice >= 1 {
			errs = append(errs, fmt.Sprintf("monitor: contrarian_price must be in (0,1), got %g", c.Monitor.ContrarianPrice))
		}
	}

	// Backtest
	if c.Backtest.MaxMarkets < 1 {
		errs = append(errs, "backtest: max_markets must be >= 1")
	}
	if c.Backtest.TradeLimit < 1 {
		errs = append(errs, "backtest: trade_limit must be >= 1")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be positive when rate_limit is set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
