package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dunamismax/artifactkit/internal/api"
	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/config"
	"github.com/dunamismax/artifactkit/internal/history"
	"github.com/dunamismax/artifactkit/internal/kv"
	"github.com/dunamismax/artifactkit/internal/logging"
	"github.com/dunamismax/artifactkit/internal/notes"
	"github.com/dunamismax/artifactkit/internal/notify"
	"github.com/dunamismax/artifactkit/internal/queue"
	"github.com/dunamismax/artifactkit/internal/ratelimit"
	"github.com/dunamismax/artifactkit/internal/storage"
	"github.com/dunamismax/artifactkit/internal/store"
	"github.com/dunamismax/artifactkit/internal/telemetry"
	"github.com/dunamismax/artifactkit/internal/tools"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		bootLogger := logging.New(logging.DefaultConfig())
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.Component(logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}), "api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Tracing, "artifactkit-api", logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("setup tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	kvStore, err := kv.Open(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.KV.Backend).Msg("open kv store")
	}
	if c, ok := kvStore.(kv.Closer); ok {
		defer c.Close()
	}

	var (
		storageClient *storage.Client
		syncStore     storage.ObjectStore
	)
	if cfg.Storage.Enabled {
		storageClient, err = storage.NewClient(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("create storage client")
		}
		if err := storageClient.EnsureBucket(ctx); err != nil {
			logger.Fatal().Err(err).Str("bucket", storageClient.Bucket()).Msg("ensure bucket")
		}
		syncStore = storageClient
	}

	jobStore, closeJobs, err := store.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("open job store")
	}
	defer closeJobs()

	queueClient := queue.NewClient(cfg.Queue.RedisClientOpt(), cfg.Queue.Name)
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn().Err(err).Msg("queue client close error")
		}
	}()

	notices := notify.NewCenter(cfg.Notify.TTL, cfg.Notify.ErrorTTL)
	sink := notify.Multi{notices, notify.LogSink{Logger: logging.Component(logger, "notify")}}
	hist := history.NewCollections(kvStore, cfg.History)
	metrics := api.NewMetrics()

	deps := tools.NewDeps(codec.New(), hist, sink, logging.Component(logger, "tools"))
	deps.Observe = metrics.ObserveTool
	notepad := notes.New(kvStore, notes.OptionsFrom(cfg.Notes, syncStore, sink, logging.Component(logger, "notes")))
	defer notepad.Close()

	apiDeps := api.Deps{
		Logger:  logger,
		Queue:   queueClient,
		Jobs:    jobStore,
		Tools:   tools.NewToolbox(deps, cfg.Limits, notepad),
		History: hist,
		Notices: notices,
		Metrics: metrics,
		Tracer:  telemetry.Tracer(),
	}
	if storageClient != nil {
		apiDeps.Storage = storageClient
	}
	if cfg.RateLimit.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Queue.RedisAddr,
			Password: cfg.Queue.RedisPassword,
			DB:       cfg.Queue.RedisDB,
		})
		defer redisClient.Close()
		limiter, err := ratelimit.FromConfig(redisClient, cfg.RateLimit)
		if err != nil {
			logger.Fatal().Err(err).Msg("create rate limiter")
		}
		if limiter != nil {
			apiDeps.RateLimiter = limiter
		}
	}

	app := api.NewServer(apiDeps, cfg.API, cfg.RateLimit)

	httpServer := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.API.Addr).Str("job_store", cfg.Database.JobStore).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("server failed")
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info().Msg("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown failed")
	}
}
