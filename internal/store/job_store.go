package store

import (
	"context"
	"errors"

	"github.com/dunamismax/artifactkit/internal/domain"
)

var ErrJobNotFound = errors.New("job not found")

type JobStore interface {
	Create(ctx context.Context, job domain.ExportJob) error
	Get(ctx context.Context, id string) (domain.ExportJob, bool, error)
	UpdateStatus(ctx context.Context, id, status string) (domain.ExportJob, error)
	// Complete marks the job succeeded and records where its output went.
	Complete(ctx context.Context, id, outputKey string) (domain.ExportJob, error)
}
