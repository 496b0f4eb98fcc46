package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dunamismax/artifactkit/internal/domain"
	_ "github.com/lib/pq"
)

const jobSchemaSQL = `
CREATE TABLE IF NOT EXISTS export_jobs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	source_type TEXT NOT NULL,
	webhook_url TEXT NOT NULL DEFAULT '',
	object_keys JSONB NOT NULL,
	format TEXT NOT NULL,
	steps JSONB NOT NULL,
	page JSONB,
	image_format TEXT NOT NULL DEFAULT '',
	quality DOUBLE PRECISION NOT NULL DEFAULT 0,
	output_key TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

const jobColumns = `id, status, source_type, webhook_url, object_keys, format, steps, page, image_format, quality, output_key, created_at, updated_at`

type PostgresJobStore struct {
	db *sql.DB
}

func NewPostgresJobStore(ctx context.Context, dsn string) (*PostgresJobStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresJobStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresJobStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, jobSchemaSQL); err != nil {
		return fmt.Errorf("ensure export_jobs schema: %w", err)
	}
	return nil
}

func (s *PostgresJobStore) Close() error {
	return s.db.Close()
}

func (s *PostgresJobStore) Create(ctx context.Context, job domain.ExportJob) error {
	keysJSON, err := json.Marshal(job.ObjectKeys)
	if err != nil {
		return fmt.Errorf("marshal job object keys: %w", err)
	}
	if job.Steps == nil {
		job.Steps = []domain.PipelineStep{}
	}
	stepsJSON, err := json.Marshal(job.Steps)
	if err != nil {
		return fmt.Errorf("marshal job steps: %w", err)
	}
	var pageJSON []byte
	if job.Page != nil {
		if pageJSON, err = json.Marshal(job.Page); err != nil {
			return fmt.Errorf("marshal job page: %w", err)
		}
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO export_jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		job.ID,
		job.Status,
		job.SourceType,
		job.WebhookURL,
		keysJSON,
		job.Format,
		stepsJSON,
		pageJSON,
		job.ImageFormat,
		job.Quality,
		job.OutputKey,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}

	return nil
}

func (s *PostgresJobStore) Get(ctx context.Context, id string) (domain.ExportJob, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+`
		 FROM export_jobs
		 WHERE id = $1`,
		id,
	)

	var (
		job       domain.ExportJob
		keysJSON  []byte
		stepsJSON []byte
		pageJSON  []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.Status,
		&job.SourceType,
		&job.WebhookURL,
		&keysJSON,
		&job.Format,
		&stepsJSON,
		&pageJSON,
		&job.ImageFormat,
		&job.Quality,
		&job.OutputKey,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ExportJob{}, false, nil
		}
		return domain.ExportJob{}, false, fmt.Errorf("query job: %w", err)
	}

	if err := json.Unmarshal(keysJSON, &job.ObjectKeys); err != nil {
		return domain.ExportJob{}, false, fmt.Errorf("unmarshal job object keys: %w", err)
	}
	if err := json.Unmarshal(stepsJSON, &job.Steps); err != nil {
		return domain.ExportJob{}, false, fmt.Errorf("unmarshal job steps: %w", err)
	}
	if len(pageJSON) > 0 {
		job.Page = &domain.PageSettings{}
		if err := json.Unmarshal(pageJSON, job.Page); err != nil {
			return domain.ExportJob{}, false, fmt.Errorf("unmarshal job page: %w", err)
		}
	}

	return job, true, nil
}

func (s *PostgresJobStore) UpdateStatus(ctx context.Context, id, status string) (domain.ExportJob, error) {
	return s.update(ctx, id, `UPDATE export_jobs SET status = $1, updated_at = $2 WHERE id = $3`, status)
}

func (s *PostgresJobStore) Complete(ctx context.Context, id, outputKey string) (domain.ExportJob, error) {
	return s.update(ctx, id,
		`UPDATE export_jobs SET status = '`+domain.JobStatusSucceeded+`', output_key = $1, updated_at = $2 WHERE id = $3`,
		outputKey)
}

func (s *PostgresJobStore) update(ctx context.Context, id, query, value string) (domain.ExportJob, error) {
	res, err := s.db.ExecContext(ctx, query, value, time.Now().UTC(), id)
	if err != nil {
		return domain.ExportJob{}, fmt.Errorf("update job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ExportJob{}, ErrJobNotFound
	}

	job, ok, err := s.Get(ctx, id)
	if err != nil {
		return domain.ExportJob{}, err
	}
	if !ok {
		return domain.ExportJob{}, ErrJobNotFound
	}

	return job, nil
}
