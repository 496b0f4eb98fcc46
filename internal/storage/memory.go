package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dunamismax/artifactkit/internal/domain"
)

// Memory is an ObjectStore for tests and single-process runs without minio.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *Memory) ReadObject(_ context.Context, objectKey string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[objectKey]
	if !ok {
		return nil, fmt.Errorf("%w: object %s", domain.ErrNotFound, objectKey)
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) WriteObject(_ context.Context, objectKey string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectKey] = append([]byte(nil), data...)
	m.types[objectKey] = contentType
	return nil
}

func (m *Memory) DeleteObject(_ context.Context, objectKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectKey)
	delete(m.types, objectKey)
	return nil
}

func (m *Memory) ObjectExists(_ context.Context, objectKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[objectKey]
	return ok, nil
}

func (m *Memory) ContentType(objectKey string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.types[objectKey]
}

func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
