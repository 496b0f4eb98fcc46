package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/id"
	"github.com/dunamismax/artifactkit/internal/queue"
)

type uploadTarget struct {
	ObjectKey       string `json:"object_key"`
	PresignedPutURL string `json:"presigned_put_url,omitempty"`
}

func (s *Server) jobsAvailable(w http.ResponseWriter) bool {
	if s.jobStore == nil || s.queueClient == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "batch exports are not configured"})
		return false
	}
	return true
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if !s.jobsAvailable(w) {
		return
	}
	var req domain.CreateExportJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	jobID := id.New()
	sourceType := strings.ToLower(strings.TrimSpace(req.SourceType))
	keys := make([]string, 0, len(req.ObjectKeys))
	for _, key := range req.ObjectKeys {
		keys = append(keys, strings.TrimSpace(key))
	}

	var uploads []uploadTarget
	if sourceType == domain.SourceTypeObjectStore {
		for _, key := range keys {
			url, err := s.storage.PresignedPutURL(r.Context(), key, s.presignTTL)
			if err != nil {
				s.logger.Error().Err(err).Str("job_id", jobID).Msg("generate presigned url failed")
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to generate upload URL"})
				return
			}
			uploads = append(uploads, uploadTarget{ObjectKey: key, PresignedPutURL: url})
		}
	}

	job := domain.ExportJob{
		ID:          jobID,
		Status:      domain.JobStatusCreated,
		SourceType:  sourceType,
		WebhookURL:  req.WebhookURL,
		ObjectKeys:  keys,
		Format:      strings.ToLower(strings.TrimSpace(req.Format)),
		Steps:       req.Steps,
		Page:        req.Page,
		ImageFormat: req.ImageFormat,
		Quality:     req.Quality,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.jobStore.Create(r.Context(), job); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("create job failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create job"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":    job.ID,
		"status":    job.Status,
		"uploads":   uploads,
		"start_url": fmt.Sprintf("/v1/jobs/%s/start", job.ID),
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.jobStore == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "batch exports are not configured"})
		return
	}
	job, ok, err := s.jobStore.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", r.PathValue("id")).Msg("fetch job failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load job"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":      job.ID,
		"status":      job.Status,
		"source_type": job.SourceType,
		"format":      job.Format,
		"object_keys": job.ObjectKeys,
		"output_key":  job.OutputKey,
		"created_at":  job.CreatedAt,
		"updated_at":  job.UpdatedAt,
	})
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	if !s.jobsAvailable(w) {
		return
	}
	jobID := strings.TrimSpace(r.PathValue("id"))
	if jobID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "expected path format /v1/jobs/{id}/start"})
		return
	}

	job, ok, err := s.jobStore.Get(r.Context(), jobID)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("fetch job failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load job"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	if job.Status != domain.JobStatusCreated && job.Status != domain.JobStatusFailed {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "job is already " + job.Status})
		return
	}

	if err := s.verifySourcesExist(r.Context(), job); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	taskInfo, err := s.queueClient.EnqueueExportBatch(r.Context(), queue.PayloadFromJob(job, time.Now().UTC()))
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("enqueue failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to enqueue job"})
		return
	}
	s.metrics.queueEnqueued.WithLabelValues(taskInfo.Queue).Inc()

	if _, err := s.jobStore.UpdateStatus(r.Context(), job.ID, domain.JobStatusQueued); err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("update status failed")
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":      job.ID,
		"status":      domain.JobStatusQueued,
		"queue":       taskInfo.Queue,
		"task_id":     taskInfo.ID,
		"state":       taskInfo.State.String(),
		"enqueued_at": taskInfo.NextProcessAt,
	})
}

func (s *Server) verifySourcesExist(ctx context.Context, job domain.ExportJob) error {
	for _, key := range job.ObjectKeys {
		if err := s.verifySourceExists(ctx, job.SourceType, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) verifySourceExists(ctx context.Context, sourceType, key string) error {
	switch sourceType {
	case domain.SourceTypeLocalFile:
		if _, err := os.Stat(key); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("source object is missing: %s", key)
			}
			return fmt.Errorf("source object check failed: %w", err)
		}
		return nil
	default:
		exists, err := s.storage.ObjectExists(ctx, key)
		if err != nil {
			return fmt.Errorf("source object check failed: %w", err)
		}
		if !exists {
			return fmt.Errorf("source object is missing: %s", key)
		}
		return nil
	}
}
