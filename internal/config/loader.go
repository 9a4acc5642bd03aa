package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MMBOT_* environment variable overrides, and
// returns the final Config. A missing file is not an error when path is
// empty; operators can run on env vars alone. The returned Config has NOT
// been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MMBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file. The LATOKEN_* and WIX_* names are accepted as compatibility aliases
// for deployments migrated from the original scripts.
func applyEnvOverrides(cfg *Config) {
	// ── Exchange ──
	setStr(&cfg.Exchange.BaseURL, "MMBOT_EXCHANGE_BASE_URL")
	setStr(&cfg.Exchange.BaseURL, "LATOKEN_BASE_URL") // compatibility alias
	setStr(&cfg.Exchange.BaseCurrency, "MMBOT_EXCHANGE_BASE_CURRENCY")
	setStr(&cfg.Exchange.BaseCurrency, "LATOKEN_CURRENCY_ID") // compatibility alias
	setStr(&cfg.Exchange.QuoteCurrency, "MMBOT_EXCHANGE_QUOTE_CURRENCY")
	setStr(&cfg.Exchange.QuoteCurrency, "LATOKEN_QUOTE_ID") // compatibility alias
	setStr(&cfg.Exchange.APIKey, "MMBOT_EXCHANGE_API_KEY")
	setStr(&cfg.Exchange.APIKey, "LATOKEN_API_KEY") // compatibility alias
	setStr(&cfg.Exchange.APISecret, "MMBOT_EXCHANGE_API_SECRET")
	setStr(&cfg.Exchange.APISecret, "LATOKEN_API_SECRET") // compatibility alias
	setStr(&cfg.Exchange.EncryptedSecretPath, "MMBOT_EXCHANGE_ENCRYPTED_SECRET_PATH")
	setStr(&cfg.Exchange.SecretPassword, "MMBOT_EXCHANGE_SECRET_PASSWORD")
	setStr(&cfg.Exchange.ProxyURL, "MMBOT_EXCHANGE_PROXY_URL")
	setInt(&cfg.Exchange.DepthLimit, "MMBOT_EXCHANGE_DEPTH_LIMIT")
	setDuration(&cfg.Exchange.RequestTimeout, "MMBOT_EXCHANGE_REQUEST_TIMEOUT")

	// ── Wix ──
	setStr(&cfg.Wix.APIURL, "MMBOT_WIX_API_URL")
	setStr(&cfg.Wix.APIKey, "MMBOT_WIX_API_KEY")
	setStr(&cfg.Wix.APIKey, "WIX_API_KEY") // compatibility alias
	setStr(&cfg.Wix.AccountID, "MMBOT_WIX_ACCOUNT_ID")
	setStr(&cfg.Wix.AccountID, "WIX_ACCOUNT_ID") // compatibility alias
	setStr(&cfg.Wix.SiteID, "MMBOT_WIX_SITE_ID")
	setStr(&cfg.Wix.SiteID, "WIX_SITE_ID") // compatibility alias
	setStr(&cfg.Wix.DailyBudgetItemID, "MMBOT_WIX_DAILY_BUDGET_ITEM_ID")
	setStr(&cfg.Wix.DailyBudgetItemID, "WIX_DAILY_BUDGET_DATA_ITEM_ID") // compatibility alias

	// ── Trading ──
	setBool(&cfg.Trading.Enabled, "MMBOT_TRADING_ENABLED")
	setDuration(&cfg.Trading.Interval, "MMBOT_TRADING_INTERVAL")
	setStr(&cfg.Trading.Condition, "MMBOT_TRADING_CONDITION")
	setInt(&cfg.Trading.MaxAuthFailures, "MMBOT_TRADING_MAX_AUTH_FAILURES")

	// ── Order (submit mode) ──
	setStr(&cfg.Order.Side, "MMBOT_ORDER_SIDE")
	setFloat64(&cfg.Order.Price, "MMBOT_ORDER_PRICE")
	setFloat64(&cfg.Order.Quantity, "MMBOT_ORDER_QUANTITY")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "MMBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "MMBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MMBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MMBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MMBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MMBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MMBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MMBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.MaxConns, "MMBOT_POSTGRES_MAX_CONNS")
	setInt(&cfg.Postgres.MinConns, "MMBOT_POSTGRES_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MMBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "MMBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "MMBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MMBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MMBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MMBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MMBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MMBOT_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.LockTTL, "MMBOT_REDIS_LOCK_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "MMBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "MMBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MMBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "MMBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MMBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MMBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MMBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MMBOT_S3_FORCE_PATH_STYLE")
	setInt(&cfg.S3.RetentionDays, "MMBOT_S3_RETENTION_DAYS")

	// ── Feed ──
	setStr(&cfg.Feed.WsURL, "MMBOT_FEED_WS_URL")
	setStr(&cfg.Feed.Pair, "MMBOT_FEED_PAIR")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MMBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MMBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MMBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MMBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MMBOT_MODE")
	setStr(&cfg.LogLevel, "MMBOT_LOG_LEVEL")
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
