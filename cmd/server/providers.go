package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/socialdeck/configs"
	"github.com/maheshrc27/socialdeck/internal/events"
	job "github.com/maheshrc27/socialdeck/internal/jobs"
	"github.com/maheshrc27/socialdeck/internal/lease"
	"github.com/maheshrc27/socialdeck/internal/metrics"
	"github.com/maheshrc27/socialdeck/internal/repository"
	"github.com/maheshrc27/socialdeck/internal/scheduler"
	"github.com/maheshrc27/socialdeck/internal/service"
	"github.com/maheshrc27/socialdeck/internal/storage"
	"github.com/maheshrc27/socialdeck/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"
)

const platformTimeout = 2 * time.Minute

func openDB(lc fx.Lifecycle, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("database is unreachable: %w", err)
			}
			return repository.Migrate(ctx, db)
		},
		OnStop: func(context.Context) error {
			slog.Info("closing database connection")
			return db.Close()
		},
	})
	return db, nil
}

func newRedisConnOpt(cfg *config.Config) asynq.RedisConnOpt {
	opt, err := asynq.ParseRedisURI(cfg.RedisURI)
	if err != nil {
		return asynq.RedisClientOpt{Addr: cfg.RedisURI}
	}
	return opt
}

func newAsynqClient(lc fx.Lifecycle, redisConn asynq.RedisConnOpt) *asynq.Client {
	client := asynq.NewClient(redisConn)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

func newObjectStore(cfg *config.Config) (storage.ObjectStore, error) {
	return storage.New(context.Background(), cfg)
}

// newSealer returns nil when no ENCRYPTION_KEY is set; credentials are then
// stored in the clear. A key of the wrong size stops startup.
func newSealer(cfg *config.Config) (*utils.Sealer, error) {
	if cfg.EncryptionKey == "" {
		slog.Warn("ENCRYPTION_KEY is not set, platform credentials are stored unencrypted")
		return nil, nil
	}
	sealer, err := utils.NewSealer([]byte(cfg.EncryptionKey))
	if err != nil {
		return nil, fmt.Errorf("invalid ENCRYPTION_KEY: %w", err)
	}
	return sealer, nil
}

func newPublisherRegistry(cfg *config.Config, sealer *utils.Sealer) service.PublisherRegistry {
	client := &http.Client{
		Timeout:   platformTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	return service.NewPublisherRegistry(sealer,
		service.NewFacebookPublisher(cfg.GraphAPIVersion, client),
		service.NewInstagramPublisher(cfg.GraphAPIVersion, client),
		service.NewTwitterPublisher(client),
		service.NewLinkedInPublisher(client),
		service.NewYoutubePublisher(cfg.GoogleClientID, cfg.GoogleClientSecret, client),
		service.NewTiktokPublisher(cfg.TiktokClientKey, cfg.TiktokClientSecret, client),
	)
}

func newRecorder() *metrics.Recorder {
	return metrics.NewRecorder(prometheus.DefaultRegisterer)
}

// newLocker returns nil unless a lease TTL is configured, which keeps a single
// instance free of any Redis round trip per cycle.
func newLocker(cfg *config.Config) scheduler.Locker {
	if cfg.Scheduler.LeaseTTL <= 0 || cfg.RedisURI == "" {
		return nil
	}
	return lease.New(lease.NewClient(cfg.RedisURI), lease.DefaultKey, cfg.Scheduler.LeaseTTL)
}

func newEngine(
	cfg *config.Config,
	posts repository.PostRepository,
	platforms service.PlatformService,
	registry service.PublisherRegistry,
	history repository.PostingHistoryRepository,
	sink events.Sink,
	recorder *metrics.Recorder,
	locker scheduler.Locker) *scheduler.Engine {
	return scheduler.New(posts, platforms, registry,
		scheduler.NewUserResolver(posts, cfg.Scheduler.UserID),
		scheduler.Options{
			Interval:    cfg.Scheduler.Interval,
			MaxInterval: cfg.Scheduler.MaxInterval,
			History:     history,
			Events:      sink,
			Metrics:     recorder,
			Lease:       locker,
		})
}

func newTokenRefreshJob(sa repository.SocialAccountRepository, registry service.PublisherRegistry) *job.TokenRefreshJob {
	return job.NewTokenRefreshJob(sa, registry)
}

func newStalePublishingJob(posts repository.PostRepository) *job.StalePublishingJob {
	return job.NewStalePublishingJob(posts)
}
