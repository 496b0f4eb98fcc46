package history

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dunamismax/artifactkit/internal/config"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hashEntry struct {
	Input string `json:"input"`
	N     int    `json:"n"`
}

func frozenClock() *Clock {
	t := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return NewClock(func() time.Time { return t })
}

func TestAddEvictsBeyondCapacity(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemory(0), HashHistory, 20, WithClock(frozenClock()))
	for i := 1; i <= 25; i++ {
		_, err := s.Add(ctx, domain.KindTextHash, hashEntry{Input: fmt.Sprintf("#%d", i), N: i})
		require.NoError(t, err)
	}
	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 20)

	var first, last hashEntry
	require.NoError(t, records[0].Decode(&first))
	require.NoError(t, records[19].Decode(&last))
	assert.Equal(t, 25, first.N)
	assert.Equal(t, 6, last.N)

	for i := 1; i < len(records); i++ {
		assert.Greater(t, records[i-1].ID, records[i].ID, "ids strictly decrease newest first")
	}
	assert.Equal(t, "2026-01-02T03:04:05Z", records[0].CreatedAt)
}

func TestDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemory(0), QRHistory, 5)
	a, err := s.Add(ctx, domain.KindQR, map[string]string{"data": "a"})
	require.NoError(t, err)
	b, err := s.Add(ctx, domain.KindQR, map[string]string{"data": "b"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, a.ID))
	require.ErrorIs(t, s.Delete(ctx, a.ID), domain.ErrNotFound)

	got, err := s.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.KindQR, got.Kind)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))
	records, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCorruptBlobIsDecodeErrorAndReplaced(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory(0)
	require.NoError(t, mem.Set(ctx, ScanHistory, "{not json"))
	s := New(mem, ScanHistory, 50)

	_, err := s.List(ctx)
	require.ErrorIs(t, err, domain.ErrDecode)

	_, err = s.Add(ctx, domain.KindScanBatch, map[string]int{"pages": 3})
	require.NoError(t, err)
	records, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestQuotaSurfacesAsStorageError(t *testing.T) {
	s := New(kv.Limit(kv.NewMemory(0), 64), HashHistory, 20)
	_, err := s.Add(context.Background(), domain.KindTextHash, hashEntry{Input: string(make([]byte, 100))})
	require.ErrorIs(t, err, domain.ErrStorageQuota)
}

func TestConcurrentAddsKeepEveryRecord(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemory(0), PasswordHistory, 100)
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Add(ctx, domain.KindPassword, i)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	records, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 40)

	seen := map[int64]bool{}
	for _, r := range records {
		assert.False(t, seen[r.ID])
		seen[r.ID] = true
	}
}

func TestCollections(t *testing.T) {
	c := NewCollections(kv.NewMemory(0), config.HistoryConfig{Capacity: 20, ScanCapacity: 50})
	scan, err := c.Get(ScanHistory)
	require.NoError(t, err)
	assert.Equal(t, 50, scan.Capacity())
	assert.Equal(t, 20, c.MustGet(HashHistory).Capacity())

	_, err = c.Get("bookmarks")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, c.Names(), QRHistory)
}
