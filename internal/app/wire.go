package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/resolverd/resolverd/internal/blob/s3"
	"github.com/resolverd/resolverd/internal/cache/redis"
	"github.com/resolverd/resolverd/internal/config"
	"github.com/resolverd/resolverd/internal/domain"
	"github.com/resolverd/resolverd/internal/notify"
	"github.com/resolverd/resolverd/internal/provider"
	"github.com/resolverd/resolverd/internal/provider/coingecko"
	"github.com/resolverd/resolverd/internal/resolution"
	"github.com/resolverd/resolverd/internal/scheduler"
	"github.com/resolverd/resolverd/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	MarketStore domain.MarketStore
	PriceCache  domain.PriceCache
	LockManager domain.LockManager

	Provider domain.MarketDataProvider
	Engine   *resolution.Engine

	Archiver      *s3blob.Archiver // nil when the archive is disabled
	ArchiveReader *s3blob.Reader   // nil when the archive is disabled
	Notifier      *notify.Notifier

	Scheduler *scheduler.Scheduler
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Supabase.DSN,
		Host:     cfg.Supabase.Host,
		Port:     cfg.Supabase.Port,
		Database: cfg.Supabase.Database,
		User:     cfg.Supabase.User,
		Password: cfg.Supabase.Password,
		SSLMode:  cfg.Supabase.SSLMode,
		MaxConns: cfg.Supabase.PoolMaxConns,
		MinConns: cfg.Supabase.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Supabase.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}
	deps.MarketStore = postgres.NewMarketStore(pgClient.Pool())

	// --- Redis ---
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

	deps.PriceCache = redis.NewQuoteCache(redisClient, cfg.Redis.QuoteTTL.Duration)
	deps.LockManager = redis.NewLockManager(redisClient)

	// --- Market data provider ---
	gecko := coingecko.New(cfg.Provider.BaseURL, cfg.Provider.ApiKey, cfg.Provider.RequestTimeout.Duration)
	deps.Provider = provider.NewCachingProvider(gecko, deps.PriceCache, logger)

	// --- S3 audit archive (optional) ---
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
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), logger)
		deps.ArchiveReader = s3blob.NewReader(s3Client)
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
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Resolution engine ---
	eval := resolution.NewEvaluator(resolution.EvaluatorConfig{
		ConfirmationWindow: cfg.Resolver.ConfirmationWindow.Duration,
		AdequateSamples:    cfg.Resolver.AdequateSamples,
	})
	deps.Engine = resolution.NewEngine(deps.Provider, eval, resolution.EngineConfig{
		FetchTimeout:   cfg.Provider.RequestTimeout.Duration,
		HistoryWindow:  cfg.Provider.HistoryWindow.Duration,
		SampleInterval: cfg.Provider.SampleInterval.Duration,
	}, logger)

	// --- Scheduler ---
	var archiver scheduler.Archiver
	if deps.Archiver != nil {
		archiver = deps.Archiver
	}
	deps.Scheduler = scheduler.New(
		deps.MarketStore,
		deps.Engine,
		deps.LockManager,
		archiver,
		deps.Notifier,
		scheduler.Config{
			PollInterval: cfg.Scheduler.PollInterval.Duration,
			BatchLimit:   cfg.Scheduler.BatchLimit,
			Workers:      cfg.Scheduler.Workers,
			LockTTL:      cfg.Scheduler.LockTTL.Duration,
		},
		logger,
	)

	return deps, cleanup, nil
}
