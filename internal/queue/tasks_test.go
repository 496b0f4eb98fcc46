package queue

import (
	"testing"
	"time"

	"github.com/dunamismax/artifactkit/internal/domain"
)

func TestExportBatchTaskRoundTrip(t *testing.T) {
	job := domain.ExportJob{
		ID:         "job-123",
		SourceType: domain.SourceTypeObjectStore,
		ObjectKeys: []string{"uploads/job-123/2.png", "uploads/job-123/1.png"},
		Format:     domain.ExportFormatZIP,
		Steps: []domain.PipelineStep{
			{
				ID:     "thumb_small",
				Action: "resize",
				Width:  320,
			},
		},
		Page: &domain.PageSettings{Size: "a4", Orientation: "landscape"},
	}

	task, err := NewExportBatchTask(PayloadFromJob(job, time.Now().UTC()))
	if err != nil {
		t.Fatalf("NewExportBatchTask returned error: %v", err)
	}
	if task.Type() != TypeExportBatch {
		t.Fatalf("expected task type %q, got %q", TypeExportBatch, task.Type())
	}

	parsed, err := ParseExportBatchPayload(task)
	if err != nil {
		t.Fatalf("ParseExportBatchPayload returned error: %v", err)
	}

	if parsed.JobID != job.ID {
		t.Fatalf("expected job_id %q, got %q", job.ID, parsed.JobID)
	}
	if len(parsed.Steps) != 1 {
		t.Fatalf("expected one step, got %d", len(parsed.Steps))
	}
	back := parsed.Job()
	if back.ObjectKeys[0] != "uploads/job-123/2.png" || back.Page.Orientation != "landscape" {
		t.Fatalf("payload lost job fields: %+v", back)
	}
}
