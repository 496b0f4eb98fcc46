// Package kv is the string key-value persistence behind history, notes and
// tool settings.
package kv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dunamismax/artifactkit/internal/config"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/redis/go-redis/v9"
)

type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Closer is implemented by backends that hold a connection.
type Closer interface {
	Close() error
}

type limited struct {
	Store
	maxValue int
}

// Limit rejects values larger than maxValueBytes with ErrStorageQuota.
func Limit(s Store, maxValueBytes int64) Store {
	if maxValueBytes <= 0 {
		return s
	}
	return limited{Store: s, maxValue: int(maxValueBytes)}
}

func (l limited) Set(ctx context.Context, key, value string) error {
	if len(value) > l.maxValue {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", domain.ErrStorageQuota, key, len(value), l.maxValue)
	}
	return l.Store.Set(ctx, key, value)
}

func (l limited) Close() error {
	if c, ok := l.Store.(Closer); ok {
		return c.Close()
	}
	return nil
}

// Open builds the configured backend wrapped in the per-value limit.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(cfg.KV.Backend) {
	case "memory":
		s = NewMemory(cfg.KV.QuotaBytes)
	case "", "sqlite":
		if dir := filepath.Dir(cfg.KV.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create kv dir: %w", err)
			}
		}
		s, err = NewSQLite(ctx, cfg.KV.Path)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Queue.RedisAddr,
			Password: cfg.Queue.RedisPassword,
			DB:       cfg.Queue.RedisDB,
		})
		s, err = NewRedis(ctx, client, cfg.KV.KeyPrefix)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported kv backend %q", cfg.KV.Backend)
	}
	if err != nil {
		return nil, err
	}
	return Limit(s, cfg.KV.MaxValueBytes), nil
}
