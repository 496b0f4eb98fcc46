package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dunamismax/artifactkit/internal/config"
	"github.com/dunamismax/artifactkit/internal/logging"
	"github.com/dunamismax/artifactkit/internal/storage"
	"github.com/dunamismax/artifactkit/internal/store"
	"github.com/dunamismax/artifactkit/internal/telemetry"
	"github.com/dunamismax/artifactkit/internal/webhook"
	"github.com/dunamismax/artifactkit/internal/worker"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		bootLogger := logging.New(logging.DefaultConfig())
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.Component(logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}), "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Tracing, "artifactkit-worker", logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("setup tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	var objects storage.ObjectStore
	if cfg.Storage.Enabled {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("create storage client")
		}
		if err := client.EnsureBucket(ctx); err != nil {
			logger.Fatal().Err(err).Str("bucket", client.Bucket()).Msg("ensure bucket")
		}
		objects = client
	}

	jobStore, closeJobs, err := store.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("open job store")
	}
	defer closeJobs()

	logger.Info().
		Int("concurrency", cfg.Worker.Concurrency).
		Int("max_active_jobs", cfg.Worker.MaxActiveJobs).
		Str("queue", cfg.Queue.Name).
		Str("redis", cfg.Queue.RedisAddr).
		Bool("object_storage", objects != nil).
		Msg("starting worker")

	srv, err := worker.NewServer(logger, cfg, objects, webhook.NewClient(cfg.Webhook), jobStore)
	if err != nil {
		logger.Fatal().Err(err).Msg("create worker")
	}

	if cfg.Worker.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              cfg.Worker.MetricsAddr,
			Handler:           srv.MetricsHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer metricsServer.Close()
	}

	// Run traps SIGINT and SIGTERM itself and drains in-flight tasks.
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("worker failed")
	}
}
