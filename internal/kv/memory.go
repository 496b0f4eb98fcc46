package kv

import (
	"context"
	"fmt"
	"sync"

	"github.com/dunamismax/artifactkit/internal/domain"
)

// Memory keeps values in a map. A positive quota caps the total size of
// keys plus values.
type Memory struct {
	mu    sync.RWMutex
	data  map[string]string
	used  int64
	quota int64
}

func NewMemory(quotaBytes int64) *Memory {
	return &Memory{data: make(map[string]string), quota: quotaBytes}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	used := m.used + int64(len(value))
	if old, ok := m.data[key]; ok {
		used -= int64(len(old))
	} else {
		used += int64(len(key))
	}
	if m.quota > 0 && used > m.quota {
		return fmt.Errorf("%w: %d of %d bytes", domain.ErrStorageQuota, used, m.quota)
	}
	m.data[key] = value
	m.used = used
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.data[key]; ok {
		m.used -= int64(len(key) + len(old))
		delete(m.data, key)
	}
	return nil
}
