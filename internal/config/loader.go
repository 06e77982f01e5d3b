package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SENTINEL_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SENTINEL_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "SENTINEL_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.DataHost, "SENTINEL_POLYMARKET_DATA_HOST")

	// ── Kalshi ──
	setStr(&cfg.Kalshi.BaseURL, "SENTINEL_KALSHI_BASE_URL")
	setStr(&cfg.Kalshi.ApiKey, "SENTINEL_KALSHI_API_KEY")
	setStr(&cfg.Kalshi.RsaPrivateKeyPath, "SENTINEL_KALSHI_RSA_PRIVATE_KEY_PATH")

	// ── Manifold ──
	setStr(&cfg.Manifold.BaseURL, "SENTINEL_MANIFOLD_BASE_URL")

	// ── Database ──
	setStr(&cfg.Database.DSN, "SENTINEL_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "SENTINEL_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "SENTINEL_DATABASE_HOST")
	setInt(&cfg.Database.Port, "SENTINEL_DATABASE_PORT")
	setStr(&cfg.Database.Database, "SENTINEL_DATABASE_NAME")
	setStr(&cfg.Database.User, "SENTINEL_DATABASE_USER")
	setStr(&cfg.Database.Password, "SENTINEL_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "SENTINEL_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "SENTINEL_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "SENTINEL_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "SENTINEL_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SENTINEL_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SENTINEL_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SENTINEL_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SENTINEL_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SENTINEL_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SENTINEL_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "SENTINEL_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SENTINEL_S3_REGION")
	setStr(&cfg.S3.Bucket, "SENTINEL_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SENTINEL_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SENTINEL_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SENTINEL_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SENTINEL_S3_FORCE_PATH_STYLE")

	// ── Detector ──
	setInt(&cfg.Detector.TopMarkets, "SENTINEL_DETECTOR_TOP_MARKETS")
	setInt(&cfg.Detector.TradeLimit, "SENTINEL_DETECTOR_TRADE_LIMIT")
	setFloat64(&cfg.Detector.AlertThreshold, "SENTINEL_DETECTOR_ALERT_THRESHOLD")
	setFloat64(&cfg.Detector.QuickScanMin, "SENTINEL_DETECTOR_QUICK_SCAN_MIN")

	// ── Monitor ──
	setBool(&cfg.Monitor.Enabled, "SENTINEL_MONITOR_ENABLED")
	setDuration(&cfg.Monitor.Interval, "SENTINEL_MONITOR_INTERVAL")
	setFloat64(&cfg.Monitor.LargeTradeUSD, "SENTINEL_MONITOR_LARGE_TRADE_USD")
	setInt(&cfg.Monitor.FreshAccountMax, "SENTINEL_MONITOR_FRESH_ACCOUNT_MAX")
	setFloat64(&cfg.Monitor.ContrarianPrice, "SENTINEL_MONITOR_CONTRARIAN_PRICE")
	setInt(&cfg.Monitor.TopMarkets, "SENTINEL_MONITOR_TOP_MARKETS")
	setInt(&cfg.Monitor.TradesPerMarket, "SENTINEL_MONITOR_TRADES_PER_MARKET")
	setStr(&cfg.Monitor.CSVLogPath, "SENTINEL_MONITOR_CSV_LOG_PATH")
	setInt(&cfg.Monitor.SeenRetentionDays, "SENTINEL_MONITOR_SEEN_RETENTION_DAYS")

	// ── Backtest ──
	setInt(&cfg.Backtest.MaxMarkets, "SENTINEL_BACKTEST_MAX_MARKETS")
	setInt(&cfg.Backtest.TradeLimit, "SENTINEL_BACKTEST_TRADE_LIMIT")

	// ── Pipeline ──
	setBool(&cfg.Pipeline.Enabled, "SENTINEL_PIPELINE_ENABLED")
	setDuration(&cfg.Pipeline.ScanInterval, "SENTINEL_PIPELINE_SCAN_INTERVAL")
	setInt(&cfg.Pipeline.ArchiveRetentionDays, "SENTINEL_PIPELINE_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Pipeline.ArchiveCron, "SENTINEL_PIPELINE_ARCHIVE_CRON")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SENTINEL_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SENTINEL_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SENTINEL_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SENTINEL_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "SENTINEL_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "SENTINEL_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SENTINEL_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SENTINEL_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SENTINEL_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SENTINEL_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SENTINEL_MODE")
	setStr(&cfg.LogLevel, "SENTINEL_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
