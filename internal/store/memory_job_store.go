package store

import (
	"context"
	"sync"
	"time"

	"github.com/dunamismax/artifactkit/internal/domain"
)

type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.ExportJob
	now  func() time.Time
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[string]domain.ExportJob),
		now:  time.Now,
	}
}

func (s *MemoryJobStore) Create(_ context.Context, job domain.ExportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.ObjectKeys = append([]string(nil), job.ObjectKeys...)
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, id string) (domain.ExportJob, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok, nil
}

func (s *MemoryJobStore) UpdateStatus(_ context.Context, id, status string) (domain.ExportJob, error) {
	return s.update(id, func(job *domain.ExportJob) { job.Status = status })
}

func (s *MemoryJobStore) Complete(_ context.Context, id, outputKey string) (domain.ExportJob, error) {
	return s.update(id, func(job *domain.ExportJob) {
		job.Status = domain.JobStatusSucceeded
		job.OutputKey = outputKey
	})
}

func (s *MemoryJobStore) update(id string, fn func(*domain.ExportJob)) (domain.ExportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.ExportJob{}, ErrJobNotFound
	}

	fn(&job)
	job.UpdatedAt = s.now().UTC()
	s.jobs[id] = job
	return job, nil
}
