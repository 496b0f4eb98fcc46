package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dunamismax/artifactkit/internal/config"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/pipeline"
	"github.com/dunamismax/artifactkit/internal/queue"
	"github.com/dunamismax/artifactkit/internal/source"
	"github.com/dunamismax/artifactkit/internal/storage"
	"github.com/dunamismax/artifactkit/internal/store"
	"github.com/dunamismax/artifactkit/internal/telemetry"
	"github.com/dunamismax/artifactkit/internal/webhook"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Server struct {
	logger          zerolog.Logger
	server          *asynq.Server
	sem             chan struct{}
	localProcessor  *pipeline.Processor
	objectProcessor *pipeline.Processor
	webhookClient   webhookSender
	jobStore        store.JobStore
	metrics         *metrics
	tracer          trace.Tracer
	now             func() time.Time
}

type webhookSender interface {
	Send(ctx context.Context, endpoint, event string, payload any) error
}

// NewServer wires the export handler. storageClient may be nil, in which
// case only local_file jobs can run.
func NewServer(
	logger zerolog.Logger,
	cfg config.Config,
	storageClient storage.ObjectStore,
	webhookClient *webhook.Client,
	jobStore store.JobStore,
) (*Server, error) {
	acq := source.DocumentPreset(cfg.Limits.PDFMaxBytes)

	localProcessor, err := pipeline.NewLocalProcessor(cfg.Worker.LocalOutputDir, acq)
	if err != nil {
		return nil, fmt.Errorf("initialize pipeline processor: %w", err)
	}

	var objectProcessor *pipeline.Processor
	if storageClient != nil {
		objectProcessor = pipeline.NewObjectStoreProcessor(storageClient, "outputs", acq)
	}

	s := &Server{
		logger: logger,
		server: asynq.NewServer(
			cfg.Queue.RedisClientOpt(),
			asynq.Config{
				Concurrency: cfg.Worker.Concurrency,
				Queues: map[string]int{
					cfg.Queue.Name: 1,
				},
				LogLevel: asynq.InfoLevel,
				ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
					retried, _ := asynq.GetRetryCount(ctx)
					maxRetry, _ := asynq.GetMaxRetry(ctx)
					logger.Warn().Err(err).
						Str("type", task.Type()).
						Int("retry", retried).
						Int("max_retry", maxRetry).
						Msg("task failed")
				}),
			},
		),
		sem:             make(chan struct{}, max(1, cfg.Worker.MaxActiveJobs)),
		localProcessor:  localProcessor,
		objectProcessor: objectProcessor,
		jobStore:        jobStore,
		metrics:         newMetrics(),
		tracer:          telemetry.Tracer(),
		now:             time.Now,
	}
	if webhookClient != nil {
		s.webhookClient = webhookClient
	}
	return s, nil
}

func (s *Server) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeExportBatch, s.handleExportBatch)
	return s.server.Run(mux)
}

func (s *Server) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}

// permanent reports errors that a retry cannot fix.
func permanent(err error) bool {
	return errors.Is(err, domain.ErrInvalidParameters) ||
		errors.Is(err, domain.ErrUnsupportedType) ||
		errors.Is(err, domain.ErrDecode) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrFileTooLarge) ||
		errors.Is(err, domain.ErrAcquisition) ||
		errors.Is(err, pipeline.ErrUnsupportedSourceType) ||
		errors.Is(err, pipeline.ErrMissingKeys)
}

func (s *Server) processorFor(sourceType string) (*pipeline.Processor, error) {
	switch sourceType {
	case domain.SourceTypeLocalFile:
		return s.localProcessor, nil
	case domain.SourceTypeObjectStore:
		if s.objectProcessor == nil {
			return nil, fmt.Errorf("%w: object storage is not configured", pipeline.ErrUnsupportedSourceType)
		}
		return s.objectProcessor, nil
	default:
		return nil, fmt.Errorf("%w: %s", pipeline.ErrUnsupportedSourceType, sourceType)
	}
}

func (s *Server) handleExportBatch(ctx context.Context, task *asynq.Task) error {
	startedAt := s.now()
	outcome := domain.JobStatusFailed

	payload, err := queue.ParseExportBatchPayload(task)
	if err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}
	logger := s.logger.With().Str("job_id", payload.JobID).Logger()

	ctx, span := s.tracer.Start(ctx, "worker.export_batch", trace.WithSpanKind(trace.SpanKindConsumer))
	span.SetAttributes(
		attribute.String("job.id", payload.JobID),
		attribute.String("job.source_type", payload.SourceType),
		attribute.String("job.format", payload.Format),
		attribute.Int("job.inputs", len(payload.ObjectKeys)),
		attribute.Int("job.steps", len(payload.Steps)),
	)
	defer span.End()
	defer func() {
		s.metrics.jobDuration.WithLabelValues(payload.SourceType, payload.Format, outcome).Observe(s.now().Sub(startedAt).Seconds())
		s.metrics.jobsTotal.WithLabelValues(payload.SourceType, payload.Format, outcome).Inc()
	}()

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.metrics.activeJobs.Inc()
	defer func() {
		<-s.sem
		s.metrics.activeJobs.Dec()
	}()

	logger.Info().
		Str("source_type", payload.SourceType).
		Str("format", payload.Format).
		Int("inputs", len(payload.ObjectKeys)).
		Msg("export started")

	s.updateJobStatus(ctx, payload.JobID, domain.JobStatusProcessing)

	result, err := s.run(ctx, payload)
	if err != nil {
		s.updateJobStatus(ctx, payload.JobID, domain.JobStatusFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "export failed")
		logger.Error().Err(err).Msg("export failed")
		_ = s.dispatchWebhook(ctx, payload, webhook.EventJobFailed, webhook.JobEvent{
			JobID:     payload.JobID,
			Status:    domain.JobStatusFailed,
			Format:    payload.Format,
			Error:     err.Error(),
			Timestamp: s.now().UTC(),
		})
		if permanent(err) {
			return fmt.Errorf("run export: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("run export: %w", err)
	}

	logger.Info().
		Str("output", result.Output.Path).
		Int("pages", result.Output.Pages).
		Int("bytes", result.Output.Bytes).
		Msg("export finished")
	s.completeJob(ctx, payload.JobID, result.Output.Path)
	s.metrics.pagesExportedTotal.WithLabelValues(result.Output.Format).Add(float64(result.Output.Pages))
	s.metrics.outputBytesTotal.WithLabelValues(result.Output.Format).Add(float64(result.Output.Bytes))
	s.metrics.inputBytesTotal.Add(float64(result.SourceBytes))

	if err := s.dispatchWebhook(ctx, payload, webhook.EventJobCompleted, webhook.JobEvent{
		JobID:     payload.JobID,
		Status:    domain.JobStatusSucceeded,
		Format:    result.Output.Format,
		OutputKey: result.Output.Path,
		Pages:     result.Output.Pages,
		Bytes:     result.Output.Bytes,
		Timestamp: s.now().UTC(),
	}); err != nil {
		// The job is already complete; a retry would redo the export.
		span.RecordError(err)
	}

	outcome = domain.JobStatusSucceeded
	span.SetStatus(codes.Ok, "exported")
	return nil
}

func (s *Server) run(ctx context.Context, payload queue.ExportBatchPayload) (pipeline.Result, error) {
	p, err := s.processorFor(payload.SourceType)
	if err != nil {
		return pipeline.Result{}, err
	}
	return p.Process(ctx, pipeline.RequestFromJob(payload.Job()))
}

func (s *Server) updateJobStatus(ctx context.Context, jobID, status string) {
	if s.jobStore == nil {
		return
	}
	if _, err := s.jobStore.UpdateStatus(ctx, jobID, status); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Str("status", status).Msg("job status update failed")
	}
}

func (s *Server) completeJob(ctx context.Context, jobID, outputKey string) {
	if s.jobStore == nil {
		return
	}
	if _, err := s.jobStore.Complete(ctx, jobID, outputKey); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("job completion update failed")
	}
}

func (s *Server) dispatchWebhook(ctx context.Context, payload queue.ExportBatchPayload, event string, body webhook.JobEvent) error {
	if payload.WebhookURL == "" || s.webhookClient == nil {
		return nil
	}

	if err := s.webhookClient.Send(ctx, payload.WebhookURL, event, body); err != nil {
		s.logger.Warn().Err(err).Str("job_id", payload.JobID).Str("event", event).Msg("webhook delivery failed")
		return fmt.Errorf("dispatch webhook: %w", err)
	}

	return nil
}
