// Package history keeps bounded, newest-first lists of tool results.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/kv"
)

const DefaultCapacity = 20

// Clock hands out strictly increasing millisecond ids.
type Clock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

func (c *Clock) Next() (int64, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now()
	id := t.UnixMilli()
	if id <= c.last {
		id = c.last + 1
	}
	c.last = id
	return id, t
}

var processClock = NewClock(nil)

type Store struct {
	kv       kv.Store
	key      string
	capacity int
	clock    *Clock
	mu       sync.Mutex
}

type Option func(*Store)

func WithClock(c *Clock) Option {
	return func(s *Store) { s.clock = c }
}

func New(store kv.Store, key string, capacity int, opts ...Option) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Store{kv: store, key: key, capacity: capacity, clock: processClock}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Key() string   { return s.key }
func (s *Store) Capacity() int { return s.capacity }

func (s *Store) load(ctx context.Context) ([]domain.HistoryRecord, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var records []domain.HistoryRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("%w: history %s: %v", domain.ErrDecode, s.key, err)
	}
	return records, nil
}

func (s *Store) save(ctx context.Context, records []domain.HistoryRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode history %s: %w", s.key, err)
	}
	return s.kv.Set(ctx, s.key, string(data))
}

// Add prepends a record and evicts the oldest beyond capacity. A corrupt
// stored list is replaced.
func (s *Store) Add(ctx context.Context, kind domain.RecordKind, payload any) (domain.HistoryRecord, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("%w: history payload: %v", domain.ErrInvalidParameters, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil && !errors.Is(err, domain.ErrDecode) {
		return domain.HistoryRecord{}, err
	}
	id, at := s.clock.Next()
	rec := domain.HistoryRecord{
		ID:        id,
		Kind:      kind,
		Payload:   body,
		CreatedAt: at.UTC().Format(time.RFC3339),
	}
	records = append([]domain.HistoryRecord{rec}, records...)
	if len(records) > s.capacity {
		records = records[:s.capacity]
	}
	if err := s.save(ctx, records); err != nil {
		return domain.HistoryRecord{}, err
	}
	return rec, nil
}

// List returns records newest first.
func (s *Store) List(ctx context.Context) ([]domain.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.HistoryRecord{}
	}
	return records, nil
}

func (s *Store) Get(ctx context.Context, id int64) (domain.HistoryRecord, error) {
	records, err := s.List(ctx)
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.HistoryRecord{}, fmt.Errorf("%w: history %s record %d", domain.ErrNotFound, s.key, id)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i, r := range records {
		if r.ID == id {
			return s.save(ctx, append(records[:i:i], records[i+1:]...))
		}
	}
	return fmt.Errorf("%w: history %s record %d", domain.ErrNotFound, s.key, id)
}

// Clear removes every record. Clearing an empty store is not an error.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Remove(ctx, s.key)
}
