package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.API.Addr)
	assert.Equal(t, 20, cfg.History.Capacity)
	assert.Equal(t, 50, cfg.History.ScanCapacity)
	assert.Equal(t, int64(100<<20), cfg.Limits.HashMaxBytes)
	assert.Equal(t, int64(10<<20), cfg.Limits.ImageMaxBytes)
	assert.Equal(t, 300*time.Millisecond, cfg.API.PreviewDebounce)
	assert.Equal(t, "sqlite", cfg.KV.Backend)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("ARTIFACTKIT_HISTORY_CAPACITY", "7")
	t.Setenv("ARTIFACTKIT_NOTES_AUTOSAVE_DELAY", "250ms")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "redis:6380", cfg.Queue.RedisAddr)
	assert.Equal(t, 7, cfg.History.Capacity)
	assert.Equal(t, 250*time.Millisecond, cfg.Notes.AutosaveDelay)
	assert.Equal(t, "redis:6380", cfg.Queue.RedisClientOpt().Addr)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifactkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kv:\n  backend: memory\nlogging:\n  format: json\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.KV.Backend)
	assert.Equal(t, "json", cfg.Logging.Format)
}
