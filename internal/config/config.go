// Package config defines the top-level configuration for the market maker
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MMBOT_* environment variables.
// One Config is constructed at startup and passed by reference into each
// component; there is no ambient global state.
type Config struct {
	Exchange ExchangeConfig `toml:"exchange"`
	Wix      WixConfig      `toml:"wix"`
	Trading  TradingConfig  `toml:"trading"`
	Order    OrderConfig    `toml:"order"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Feed     FeedConfig     `toml:"feed"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ExchangeConfig holds LATOKEN endpoint, pair, and credential parameters.
// BaseCurrency and QuoteCurrency are the exchange's asset identifiers, not
// tickers.
type ExchangeConfig struct {
	BaseURL             string   `toml:"base_url"`
	BaseCurrency        string   `toml:"base_currency"`
	QuoteCurrency       string   `toml:"quote_currency"`
	APIKey              string   `toml:"api_key"`
	APISecret           string   `toml:"api_secret"`
	EncryptedSecretPath string   `toml:"encrypted_secret_path"`
	SecretPassword      string   `toml:"secret_password"`
	ProxyURL            string   `toml:"proxy_url"`
	DepthLimit          int      `toml:"depth_limit"`
	RequestTimeout      duration `toml:"request_timeout"`
}

// WixConfig holds the Wix Data API parameters for the daily budget lookup.
type WixConfig struct {
	APIURL            string `toml:"api_url"`
	APIKey            string `toml:"api_key"`
	AccountID         string `toml:"account_id"`
	SiteID            string `toml:"site_id"`
	DailyBudgetItemID string `toml:"daily_budget_item_id"`
}

// TradingConfig holds the scheduler loop parameters. Enabled gates real
// order submission; with Enabled false the scheduler computes and logs plans
// without touching the order endpoint (dry run).
type TradingConfig struct {
	Enabled         bool     `toml:"enabled"`
	Interval        duration `toml:"interval"`
	Condition       string   `toml:"condition"`
	MaxAuthFailures int      `toml:"max_auth_failures"`
}

// OrderConfig describes the single order placed by submit mode, which
// exists so the submitter can be exercised in isolation.
type OrderConfig struct {
	Side     string  `toml:"side"`
	Price    float64 `toml:"price"`
	Quantity float64 `toml:"quantity"`
}

// PostgresConfig holds connection parameters for the optional audit store.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	MaxConns      int    `toml:"max_conns"`
	MinConns      int    `toml:"min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds connection parameters for the optional scheduler lock.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	LockTTL    duration `toml:"lock_ttl"`
}

// S3Config holds object storage parameters for the optional cycle-report
// archiver.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	RetentionDays  int    `toml:"retention_days"`
}

// FeedConfig holds the optional websocket book feed used by monitor mode.
type FeedConfig struct {
	WsURL string `toml:"ws_url"`
	Pair  string `toml:"pair"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "2m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5s" or "2m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values. The
// asset identifiers default to the TDG/USDT pair the bot was built for.
func Defaults() Config {
	return Config{
		Exchange: ExchangeConfig{
			BaseURL:        "https://api.latoken.com",
			BaseCurrency:   "cbfd4c19-259c-420b-9bb2-498493265648",
			QuoteCurrency:  "0c3a106d-bde3-4c13-a26e-3fd2394529e5",
			DepthLimit:     50,
			RequestTimeout: duration{15 * time.Second},
		},
		Trading: TradingConfig{
			Enabled:         false,
			Interval:        duration{5 * time.Second},
			Condition:       "GOOD_TILL_CANCELLED",
			MaxAuthFailures: 3,
		},
		Order: OrderConfig{
			Side: "BUY",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "marketmaker",
			User:          "postgres",
			SSLMode:       "disable",
			MaxConns:      5,
			MinConns:      1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			LockTTL:    duration{30 * time.Second},
		},
		S3: S3Config{
			Region:         "us-east-1",
			Bucket:         "marketmaker-data",
			ForcePathStyle: true,
			RetentionDays:  90,
		},
		Notify: NotifyConfig{
			Events: []string{"order_submitted", "auth_halt", "cycle_error"},
		},
		Mode:     "plan",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"run":     true,
	"plan":    true,
	"submit":  true,
	"monitor": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validConditions enumerates the time-in-force values the exchange accepts.
var validConditions = map[string]bool{
	"GOOD_TILL_CANCELLED": true,
	"IMMEDIATE_OR_CANCEL": true,
	"FILL_OR_KILL":        true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: run, plan, submit, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Exchange
	if c.Exchange.BaseURL == "" {
		errs = append(errs, "exchange: base_url must not be empty")
	}
	if c.Exchange.BaseCurrency == "" || c.Exchange.QuoteCurrency == "" {
		errs = append(errs, "exchange: base_currency and quote_currency must not be empty")
	}
	if c.Exchange.DepthLimit < 1 {
		errs = append(errs, "exchange: depth_limit must be >= 1")
	}

	// Credentials are needed whenever orders can actually be placed.
	needsCreds := mode == "submit" || (mode == "run" && c.Trading.Enabled)
	if needsCreds {
		if c.Exchange.APIKey == "" {
			errs = append(errs, "exchange: api_key is required when order submission is enabled")
		}
		if c.Exchange.APISecret == "" && c.Exchange.EncryptedSecretPath == "" {
			errs = append(errs, "exchange: either api_secret or encrypted_secret_path must be set when order submission is enabled")
		}
		if c.Exchange.EncryptedSecretPath != "" && c.Exchange.APISecret == "" && c.Exchange.SecretPassword == "" {
			errs = append(errs, "exchange: secret_password is required when encrypted_secret_path is set")
		}
	}

	// Wix budget source is consulted by the cycle loop and plan mode.
	if mode == "run" || mode == "plan" {
		if c.Wix.APIKey == "" {
			errs = append(errs, "wix: api_key is required for mode "+mode)
		}
		if c.Wix.DailyBudgetItemID == "" {
			errs = append(errs, "wix: daily_budget_item_id is required for mode "+mode)
		}
	}

	// Trading loop
	if mode == "run" && c.Trading.Interval.Duration <= 0 {
		errs = append(errs, "trading: interval must be > 0")
	}
	if !validConditions[c.Trading.Condition] {
		errs = append(errs, fmt.Sprintf("trading: unknown condition %q", c.Trading.Condition))
	}
	if c.Trading.MaxAuthFailures < 1 {
		errs = append(errs, "trading: max_auth_failures must be >= 1")
	}

	// Submit mode order
	if mode == "submit" {
		if c.Order.Side != "BUY" && c.Order.Side != "SELL" {
			errs = append(errs, fmt.Sprintf("order: side must be BUY or SELL, got %q", c.Order.Side))
		}
		if c.Order.Quantity <= 0 {
			errs = append(errs, "order: quantity must be > 0")
		}
		if c.Order.Price < 0 {
			errs = append(errs, "order: price must be >= 0 (0 means market)")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.MaxConns < 1 {
			errs = append(errs, "postgres: max_conns must be >= 1")
		}
		if c.Postgres.MinConns < 0 || c.Postgres.MinConns > c.Postgres.MaxConns {
			errs = append(errs, "postgres: min_conns must be between 0 and max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.LockTTL.Duration <= 0 {
			errs = append(errs, "redis: lock_ttl must be > 0")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
		if !c.Postgres.Enabled {
			errs = append(errs, "s3: archiver requires postgres.enabled (cycle reports are archived from the audit store)")
		}
		if c.S3.RetentionDays < 1 {
			errs = append(errs, "s3: retention_days must be >= 1")
		}
	}

	// Monitor feed
	if mode == "monitor" {
		if c.Feed.WsURL == "" {
			errs = append(errs, "feed: ws_url is required for monitor mode")
		}
		if c.Feed.Pair == "" {
			errs = append(errs, "feed: pair is required for monitor mode")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
