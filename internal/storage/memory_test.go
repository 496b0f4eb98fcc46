package storage

import (
	"context"
	"testing"

	"github.com/dunamismax/artifactkit/internal/config"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ObjectStore = (*Client)(nil)
var _ ObjectStore = (*Memory)(nil)

func TestMemoryObjectStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.ReadObject(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	data := []byte("pdf")
	require.NoError(t, m.WriteObject(ctx, "exports/a.pdf", data, "application/pdf"))
	data[0] = 'x'

	got, err := m.ReadObject(ctx, "exports/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(got))
	assert.Equal(t, "application/pdf", m.ContentType("exports/a.pdf"))

	ok, err := m.ObjectExists(ctx, "exports/a.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, m.DeleteObject(ctx, "exports/a.pdf"))
	assert.Empty(t, m.Keys())
}

func TestNewClientRequiresBucket(t *testing.T) {
	_, err := NewClient(config.StorageConfig{Endpoint: "localhost:9000"})
	require.Error(t, err)

	c, err := NewClient(config.StorageConfig{Endpoint: "localhost:9000", Bucket: "artifacts"})
	require.NoError(t, err)
	assert.Equal(t, "artifacts", c.Bucket())
}
