package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/hibiken/asynq"
)

const TypeExportBatch = "export:batch"

type ExportBatchPayload struct {
	JobID       string                `json:"job_id"`
	SourceType  string                `json:"source_type"`
	WebhookURL  string                `json:"webhook_url,omitempty"`
	ObjectKeys  []string              `json:"object_keys"`
	Format      string                `json:"format"`
	Steps       []domain.PipelineStep `json:"steps,omitempty"`
	Page        *domain.PageSettings  `json:"page,omitempty"`
	ImageFormat string                `json:"image_format,omitempty"`
	Quality     float64               `json:"quality,omitempty"`
	RequestedAt time.Time             `json:"requested_at"`
}

func PayloadFromJob(job domain.ExportJob, requestedAt time.Time) ExportBatchPayload {
	return ExportBatchPayload{
		JobID:       job.ID,
		SourceType:  job.SourceType,
		WebhookURL:  job.WebhookURL,
		ObjectKeys:  job.ObjectKeys,
		Format:      job.Format,
		Steps:       job.Steps,
		Page:        job.Page,
		ImageFormat: job.ImageFormat,
		Quality:     job.Quality,
		RequestedAt: requestedAt,
	}
}

// Job rebuilds the export job the payload was created from.
func (p ExportBatchPayload) Job() domain.ExportJob {
	return domain.ExportJob{
		ID:          p.JobID,
		SourceType:  p.SourceType,
		WebhookURL:  p.WebhookURL,
		ObjectKeys:  p.ObjectKeys,
		Format:      p.Format,
		Steps:       p.Steps,
		Page:        p.Page,
		ImageFormat: p.ImageFormat,
		Quality:     p.Quality,
	}
}

func NewExportBatchTask(payload ExportBatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal export payload: %w", err)
	}
	return asynq.NewTask(TypeExportBatch, body), nil
}

func ParseExportBatchPayload(task *asynq.Task) (ExportBatchPayload, error) {
	var payload ExportBatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ExportBatchPayload{}, fmt.Errorf("unmarshal export payload: %w", err)
	}
	return payload, nil
}
