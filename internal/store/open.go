package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dunamismax/artifactkit/internal/config"
)

// Open returns the configured job store and a func that releases it.
func Open(ctx context.Context, cfg config.DatabaseConfig) (JobStore, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.JobStore)) {
	case "", "memory":
		return NewMemoryJobStore(), func() error { return nil }, nil
	case "postgres":
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, nil, fmt.Errorf("postgres job store requires database.dsn")
		}
		s, err := NewPostgresJobStore(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported job store %q", cfg.JobStore)
	}
}
