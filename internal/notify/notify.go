// Package notify carries transient user-facing status messages.
package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/id"
	"github.com/rs/zerolog"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Sink interface {
	Notify(ctx context.Context, level Level, message string)
}

type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Center keeps notifications until they expire or are dismissed.
type Center struct {
	mu       sync.Mutex
	items    map[string]Notification
	ttl      time.Duration
	errorTTL time.Duration
	now      func() time.Time
}

func NewCenter(ttl, errorTTL time.Duration) *Center {
	if ttl <= 0 {
		ttl = 3 * time.Second
	}
	if errorTTL <= 0 {
		errorTTL = 5 * time.Second
	}
	return &Center{items: make(map[string]Notification), ttl: ttl, errorTTL: errorTTL, now: time.Now}
}

func (c *Center) Notify(_ context.Context, level Level, message string) {
	c.Push(level, message)
}

func (c *Center) Push(level Level, message string) Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	ttl := c.ttl
	if level == LevelError {
		ttl = c.errorTTL
	}
	n := Notification{ID: id.New(), Level: level, Message: message, CreatedAt: now, ExpiresAt: now.Add(ttl)}
	c.items[n.ID] = n
	c.prune(now)
	return n
}

// Active returns unexpired notifications, oldest first.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune(c.now())
	out := make([]Notification, 0, len(c.items))
	for _, n := range c.items {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[id]
	delete(c.items, id)
	return ok
}

func (c *Center) prune(now time.Time) {
	for k, n := range c.items {
		if !now.Before(n.ExpiresAt) {
			delete(c.items, k)
		}
	}
}

// LogSink mirrors notifications to a logger.
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Notify(_ context.Context, level Level, message string) {
	var ev *zerolog.Event
	switch level {
	case LevelError:
		ev = s.Logger.Error()
	case LevelWarning:
		ev = s.Logger.Warn()
	default:
		ev = s.Logger.Info()
	}
	ev.Str("level_hint", string(level)).Msg(message)
}

type Multi []Sink

func (m Multi) Notify(ctx context.Context, level Level, message string) {
	for _, s := range m {
		if s != nil {
			s.Notify(ctx, level, message)
		}
	}
}

type nop struct{}

func (nop) Notify(context.Context, Level, string) {}

// Nop discards notifications.
func Nop() Sink { return nop{} }

// Report sends err as an error notification and returns it unchanged. A
// cancelled operation is reported as info.
func Report(ctx context.Context, sink Sink, err error) error {
	if err == nil || sink == nil {
		return err
	}
	level := LevelError
	if errors.Is(err, context.Canceled) {
		level = LevelInfo
	}
	sink.Notify(ctx, level, domain.UserMessage(err))
	return err
}

// Success is the counterpart to Report for completed operations.
func Success(ctx context.Context, sink Sink, message string) {
	if sink != nil {
		sink.Notify(ctx, LevelSuccess, message)
	}
}
