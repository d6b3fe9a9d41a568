package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	config "github.com/maheshrc27/socialdeck/configs"
	"github.com/maheshrc27/socialdeck/internal/api"
	"github.com/maheshrc27/socialdeck/internal/api/handlers"
	"github.com/maheshrc27/socialdeck/internal/events"
	job "github.com/maheshrc27/socialdeck/internal/jobs"
	"github.com/maheshrc27/socialdeck/internal/queue"
	"github.com/maheshrc27/socialdeck/internal/repository"
	"github.com/maheshrc27/socialdeck/internal/scheduler"
	"github.com/maheshrc27/socialdeck/internal/service"
	"github.com/robfig/cron/v3"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

type initErrorHandler struct{}

func (*initErrorHandler) HandleError(err error) {
	fmt.Fprintf(os.Stderr, "Failed to initialize dependency injection\n%v", err)
}

func main() {
	cfg := config.LoadConfig()
	slog.SetDefault(slog.New(initLogger(cfg)))

	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		fx.Provide(
			openDB,
			newTracerProvider,
			newRedisConnOpt,
			newAsynqClient,
			newObjectStore,
			newSealer,
			newPublisherRegistry,
			newOutcomeSink,
			newRecorder,
			newLocker,
			newEngine,
			newHTTPApp,
			repository.NewPostRepository,
			repository.NewSocialAccountRepository,
			repository.NewMediaAssetRepository,
			repository.NewPostMediaRepository,
			repository.NewPostingHistoryRepository,
			service.NewPostService,
			service.NewPlatformService,
			newTokenRefreshJob,
			newStalePublishingJob,
		),
		fx.Invoke(
			startEngine,
			startWorker,
			startCron,
			startHTTP,
			func(*sdktrace.TracerProvider) {},
		),
		fx.ErrorHook(&initErrorHandler{}),
	)
	app.Run()
}

func initLogger(cfg *config.Config) *log.Logger {
	logger := log.New(os.Stdout)
	logger.SetReportTimestamp(true)
	logger.SetTimeFormat("2006-01-02 15:04:05.000")
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetReportCaller(true)
	return logger
}

func startEngine(lc fx.Lifecycle, engine *scheduler.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			engine.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			engine.Stop()
			return nil
		},
	})
}

func startWorker(lc fx.Lifecycle, redisConn asynq.RedisConnOpt, engine *scheduler.Engine) {
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: 10,
	})
	worker := queue.NewQueue(engine)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			slog.Info("starting the asynq server")
			return server.Start(worker.Mux())
		},
		OnStop: func(context.Context) error {
			server.Shutdown()
			return nil
		},
	})
}

func startCron(lc fx.Lifecycle, refreshJob *job.TokenRefreshJob, sweepJob *job.StalePublishingJob) error {
	c := cron.New()
	if _, err := refreshJob.Register(c); err != nil {
		return err
	}
	if _, err := sweepJob.Register(c); err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			select {
			case <-c.Stop().Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
	return nil
}

func startHTTP(lc fx.Lifecycle, cfg *config.Config, app *fiber.App) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := app.Listen(":" + cfg.Port); err != nil {
					slog.Error("http server stopped", "error", err)
				}
			}()
			slog.Info("server is running", "port", cfg.Port)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})
}

func newHTTPApp(
	cfg *config.Config,
	posts service.PostService,
	platforms service.PlatformService,
	client *asynq.Client,
	engine *scheduler.Engine) *fiber.App {
	return api.NewApp(*cfg, api.Handlers{
		Posts:     handlers.NewPostHandler(posts, client),
		Platforms: handlers.NewPlatformHandler(platforms),
		Scheduler: handlers.NewSchedulerHandler(engine),
	})
}

func newOutcomeSink(lc fx.Lifecycle, cfg *config.Config) events.Sink {
	sink := events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return sink.Close()
		},
	})
	return sink
}
