package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	s3blob "github.com/agroverse/marketmaker/internal/blob/s3"
	"github.com/agroverse/marketmaker/internal/budget/wix"
	"github.com/agroverse/marketmaker/internal/cache/redis"
	"github.com/agroverse/marketmaker/internal/config"
	"github.com/agroverse/marketmaker/internal/crypto"
	"github.com/agroverse/marketmaker/internal/notify"
	"github.com/agroverse/marketmaker/internal/platform/latoken"
	"github.com/agroverse/marketmaker/internal/store/postgres"
)

// Dependencies bundles everything the operating modes need. It is
// constructed by Wire and torn down by the returned cleanup function. Audit,
// Archiver, and PairLock are nil when their backends are disabled.
type Dependencies struct {
	Exchange *latoken.Client
	Budget   *wix.Client
	Audit    *postgres.AuditStore
	Archiver *s3blob.Archiver
	PairLock *redis.PairLock
	Notifier *notify.Notifier

	// Pair is the human-readable pair label used in logs, locks, and
	// notifications.
	Pair string
}

// needsBudget reports whether the mode consults the budget source.
func needsBudget(mode string) bool {
	return mode == "run" || mode == "plan"
}

// Wire constructs the concrete dependencies from the configuration and
// returns them with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Pair: pairLabel(cfg)}

	// --- Exchange client ---
	auth, err := buildAuth(cfg)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: credentials: %w", err)
	}
	exch, err := latoken.New(latoken.ClientConfig{
		BaseURL:       cfg.Exchange.BaseURL,
		BaseCurrency:  cfg.Exchange.BaseCurrency,
		QuoteCurrency: cfg.Exchange.QuoteCurrency,
		ProxyURL:      cfg.Exchange.ProxyURL,
		Timeout:       cfg.Exchange.RequestTimeout.Duration,
		Auth:          auth,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: exchange client: %w", err)
	}
	deps.Exchange = exch

	// --- Budget source ---
	if needsBudget(mode) {
		deps.Budget = wix.New(wix.ClientConfig{
			APIURL:            cfg.Wix.APIURL,
			APIKey:            cfg.Wix.APIKey,
			AccountID:         cfg.Wix.AccountID,
			SiteID:            cfg.Wix.SiteID,
			DailyBudgetItemID: cfg.Wix.DailyBudgetItemID,
		})
	}

	// --- PostgreSQL audit store ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.MaxConns,
			MinConns: cfg.Postgres.MinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Audit = postgres.NewAuditStore(pgClient.Pool())
	}

	// --- Redis pair lock ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.PairLock = redis.NewPairLock(redisClient)
	}

	// --- S3 cycle-report archiver ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		retention := time.Duration(cfg.S3.RetentionDays) * 24 * time.Hour
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), deps.Audit, retention, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.New(senders, cfg.Notify.Events, logger)
	}

	return deps, cleanup, nil
}

// buildAuth resolves the API secret and returns the signing credentials, or
// nil when no key is configured (public-only use).
func buildAuth(cfg *config.Config) (*crypto.HMACAuth, error) {
	if cfg.Exchange.APIKey == "" {
		return nil, nil
	}
	secret, err := crypto.LoadSecret(crypto.SecretConfig{
		RawSecret:           cfg.Exchange.APISecret,
		EncryptedSecretPath: cfg.Exchange.EncryptedSecretPath,
		SecretPassword:      cfg.Exchange.SecretPassword,
	})
	if err != nil {
		return nil, err
	}
	return &crypto.HMACAuth{Key: cfg.Exchange.APIKey, Secret: secret}, nil
}

// pairLabel picks the friendliest available name for the traded pair.
func pairLabel(cfg *config.Config) string {
	if cfg.Feed.Pair != "" {
		return cfg.Feed.Pair
	}
	return cfg.Exchange.BaseCurrency + "/" + cfg.Exchange.QuoteCurrency
}
