package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dunamismax/artifactkit/internal/config"
	"github.com/dunamismax/artifactkit/internal/history"
	"github.com/dunamismax/artifactkit/internal/notify"
	"github.com/dunamismax/artifactkit/internal/queue"
	"github.com/dunamismax/artifactkit/internal/store"
	"github.com/dunamismax/artifactkit/internal/tools"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type Server struct {
	logger                zerolog.Logger
	queueClient           queueEnqueuer
	jobStore              store.JobStore
	storage               objectStorage
	tools                 *tools.Toolbox
	history               *history.Collections
	notices               *notify.Center
	presignTTL            time.Duration
	previewDebounce       time.Duration
	metrics               *Metrics
	rateLimiter           RateLimiter
	rateLimitUserIDHeader string
	tracer                trace.Tracer
	mux                   *http.ServeMux
}

type queueEnqueuer interface {
	EnqueueExportBatch(ctx context.Context, payload queue.ExportBatchPayload) (*asynq.TaskInfo, error)
}

type objectStorage interface {
	PresignedPutURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
	ObjectExists(ctx context.Context, objectKey string) (bool, error)
}

// Deps are the collaborators behind the routes. Tools, History and Notices
// are required; the rest may be nil and their routes degrade.
type Deps struct {
	Logger      zerolog.Logger
	Queue       queueEnqueuer
	Jobs        store.JobStore
	Storage     objectStorage
	Tools       *tools.Toolbox
	History     *history.Collections
	Notices     *notify.Center
	Metrics     *Metrics
	RateLimiter RateLimiter
	Tracer      trace.Tracer
}

func NewServer(deps Deps, apiCfg config.APIConfig, rateCfg config.RateLimitConfig) *Server {
	presignTTL := apiCfg.PresignTTL
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	storage := deps.Storage
	if storage == nil {
		storage = unavailableObjectStorage{}
	}
	m := deps.Metrics
	if m == nil {
		m = NewMetrics()
	}
	notices := deps.Notices
	if notices == nil {
		notices = notify.NewCenter(0, 0)
	}
	userHeader := rateCfg.UserIDHeader
	if userHeader == "" {
		userHeader = "X-User-ID"
	}

	s := &Server{
		logger:                deps.Logger,
		queueClient:           deps.Queue,
		jobStore:              deps.Jobs,
		storage:               storage,
		tools:                 deps.Tools,
		history:               deps.History,
		notices:               notices,
		presignTTL:            presignTTL,
		previewDebounce:       apiCfg.PreviewDebounce,
		metrics:               m,
		rateLimiter:           deps.RateLimiter,
		rateLimitUserIDHeader: userHeader,
		tracer:                deps.Tracer,
		mux:                   http.NewServeMux(),
	}
	s.routes()
	return s
}

type unavailableObjectStorage struct{}

func (unavailableObjectStorage) PresignedPutURL(_ context.Context, _ string, _ time.Duration) (string, error) {
	return "", errors.New("object storage is unavailable")
}

func (unavailableObjectStorage) ObjectExists(_ context.Context, _ string) (bool, error) {
	return false, errors.New("object storage is unavailable")
}

func (s *Server) Handler() http.Handler {
	return s.withRequestLog(s.withTracing(s.metrics.withHTTPMetrics(s.withRateLimit(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())

	s.mux.HandleFunc("POST /v1/hash/text", s.handleHashText)
	s.mux.HandleFunc("POST /v1/hash/file", s.handleHashFile)
	s.mux.HandleFunc("POST /v1/hash/compare", s.handleHashCompare)
	s.mux.HandleFunc("POST /v1/password", s.handlePassword)
	s.mux.HandleFunc("POST /v1/password/strength", s.handlePasswordStrength)
	s.mux.HandleFunc("POST /v1/qr/encode", s.handleQREncode)
	s.mux.HandleFunc("POST /v1/qr/decode", s.handleQRDecode)

	s.mux.HandleFunc("POST /v1/convert", s.handleConvert)
	s.mux.HandleFunc("POST /v1/enhance", s.handleEnhance)
	s.mux.HandleFunc("GET /v1/enhance/filters", s.handleEnhanceFilters)
	s.mux.HandleFunc("POST /v1/idphoto", s.handleIDPhoto)
	s.mux.HandleFunc("GET /v1/idphoto/presets", s.handleIDPhotoPresets)
	s.mux.HandleFunc("POST /v1/collage", s.handleCollage)
	s.mux.HandleFunc("POST /v1/scan/detect", s.handleScanDetect)
	s.mux.HandleFunc("POST /v1/scan", s.handleScan)
	s.mux.HandleFunc("POST /v1/watermark/remove", s.handleWatermarkRemove)
	s.mux.HandleFunc("POST /v1/watermark/add", s.handleWatermarkAdd)
	s.mux.HandleFunc("POST /v1/pdf", s.handlePDF)
	s.mux.HandleFunc("POST /v1/signature", s.handleSignature)
	s.mux.HandleFunc("GET /v1/preview", s.handlePreview)

	s.mux.HandleFunc("GET /v1/history/{collection}", s.handleListHistory)
	s.mux.HandleFunc("DELETE /v1/history/{collection}/{id}", s.handleDeleteHistory)
	s.mux.HandleFunc("DELETE /v1/history/{collection}", s.handleClearHistory)

	s.mux.HandleFunc("GET /v1/notes/{site}", s.handleGetNote)
	s.mux.HandleFunc("PUT /v1/notes/{site}", s.handlePutNote)
	s.mux.HandleFunc("DELETE /v1/notes/{site}", s.handleDeleteNote)

	s.mux.HandleFunc("GET /v1/notifications", s.handleListNotifications)
	s.mux.HandleFunc("DELETE /v1/notifications/{id}", s.handleDismissNotification)

	s.mux.HandleFunc("POST /v1/jobs", s.handleCreateJob)
	s.mux.HandleFunc("GET /v1/jobs/{id}", s.handleGetJob)
	s.mux.HandleFunc("POST /v1/jobs/{id}/start", s.handleStartJob)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

const maxJSONBodyBytes = 1 << 20

func decodeJSON(r *http.Request, into any) error {
	return decodeJSONLimit(r, into, maxJSONBodyBytes)
}

func decodeJSONLimit(r *http.Request, into any, limit int64) error {
	limited := io.LimitReader(r.Body, limit)
	decoder := json.NewDecoder(limited)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid JSON body: multiple JSON values are not allowed")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
