package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/crossarb/internal/blob/s3"
	"github.com/alanyoungcy/crossarb/internal/cache/redis"
	"github.com/alanyoungcy/crossarb/internal/config"
	"github.com/alanyoungcy/crossarb/internal/crypto"
	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/notify"
	"github.com/alanyoungcy/crossarb/internal/platform/kalshi"
	"github.com/alanyoungcy/crossarb/internal/platform/polymarket"
	"github.com/alanyoungcy/crossarb/internal/platform/predictit"
	"github.com/alanyoungcy/crossarb/internal/service"
	"github.com/alanyoungcy/crossarb/internal/store/postgres"
)

// Dependencies bundles everything the run modes need. Fields left nil are
// not wired for the current mode; services treat them as optional.
type Dependencies struct {
	// Stores
	MarketStore      domain.MarketStore
	MatchedPairStore domain.MatchedPairStore
	OpportunityStore domain.OpportunityStore

	// Redis-backed coordination (serve/scan/full modes)
	MarketCache domain.MarketCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob archive (nil when scan.archive_reports is off)
	Archiver *s3blob.Archiver

	// Venue clients for market ingestion
	Venues []service.VenueClient

	// Operator notifications
	Notifier *notify.Notifier
}

// needsRedis reports whether the mode uses caching, locking, or pub/sub.
func needsRedis(mode string) bool {
	switch mode {
	case "scan", "serve", "full":
		return true
	default:
		return false
	}
}

// needsS3 reports whether the mode writes reports or model snapshots.
func needsS3(mode string) bool {
	switch mode {
	case "scan", "train", "full":
		return true
	default:
		return false
	}
}

// Wire constructs the concrete dependencies for the configured mode and
// returns them with a cleanup function to call on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (every mode reads or writes stored state) ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		applied, err := pgClient.RunMigrations(ctx)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
		if len(applied) > 0 {
			logger.InfoContext(ctx, "wire: migrations applied",
				slog.Int("count", len(applied)),
				slog.String("latest", applied[len(applied)-1]),
			)
		}
	}

	pool := pgClient.Pool()
	deps.MarketStore = postgres.NewMarketStore(pool)
	deps.MatchedPairStore = postgres.NewMatchedPairStore(pool)
	deps.OpportunityStore = postgres.NewOpportunityStore(pool)

	// --- Redis ---
	if needsRedis(cfg.Mode) {
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

		deps.MarketCache = redis.NewMarketCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- S3 blob archive ---
	if needsS3(cfg.Mode) && cfg.Scan.ArchiveReports {
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
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), s3blob.NewReader(s3Client))
	}

	// --- Venue clients ---
	venues, err := wireVenues(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.Venues = venues

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// wireVenues builds a client per enabled venue. The Kalshi client gets its
// RSA signing key when one is configured; unsigned public access otherwise.
func wireVenues(cfg *config.Config, logger *slog.Logger) ([]service.VenueClient, error) {
	var venues []service.VenueClient

	if cfg.Kalshi.Enabled {
		client := kalshi.NewClient(kalshi.Config{
			BaseURL:      cfg.Kalshi.BaseURL,
			ApiKeyID:     cfg.Kalshi.ApiKeyID,
			RateLimitRPS: cfg.Kalshi.RateLimitRPS,
			Timeout:      cfg.Kalshi.Timeout.Duration,
		}, logger)

		if cfg.Kalshi.ApiKeyID != "" && (cfg.Kalshi.RsaPrivateKeyPath != "" || cfg.Kalshi.EncryptedKeyPath != "") {
			pemBytes, err := crypto.LoadCredential(crypto.KeySource{
				PlainKeyPath:     cfg.Kalshi.RsaPrivateKeyPath,
				EncryptedKeyPath: cfg.Kalshi.EncryptedKeyPath,
				KeyPassword:      cfg.Kalshi.KeyPassword,
			})
			if err != nil {
				return nil, fmt.Errorf("wire: kalshi credential: %w", err)
			}
			if err := client.SetRSAPrivateKey(pemBytes); err != nil {
				return nil, fmt.Errorf("wire: kalshi key: %w", err)
			}
		}
		venues = append(venues, client)
	}

	if cfg.Polymarket.Enabled {
		venues = append(venues, polymarket.NewGammaClient(polymarket.Config{
			GammaHost:    cfg.Polymarket.GammaHost,
			RateLimitRPS: cfg.Polymarket.RateLimitRPS,
			Timeout:      cfg.Polymarket.Timeout.Duration,
		}, logger))
	}

	if cfg.PredictIt.Enabled {
		venues = append(venues, predictit.NewClient(predictit.Config{
			BaseURL:      cfg.PredictIt.BaseURL,
			RateLimitRPS: cfg.PredictIt.RateLimitRPS,
			Timeout:      cfg.PredictIt.Timeout.Duration,
		}, logger))
	}

	return venues, nil
}
