package id

import (
	"testing"
	"time"
)

func TestNewIsUniqueAndSortable(t *testing.T) {
	a := New()
	time.Sleep(2 * time.Millisecond)
	b := New()
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
	if len(a) != 26 {
		t.Fatalf("expected 26 chars, got %d", len(a))
	}
	if a >= b {
		t.Fatalf("expected %q < %q", a, b)
	}
	ts, err := Time(b)
	if err != nil {
		t.Fatalf("parse id time: %v", err)
	}
	if time.Since(ts) > time.Minute {
		t.Fatalf("unexpected id time %v", ts)
	}
}
