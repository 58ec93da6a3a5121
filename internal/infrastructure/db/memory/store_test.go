package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ispbilling/console/internal/core/domain"
)

func TestStore_RoundTrip(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.Set(ctx, "a", "1", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := s.Get(ctx, "a")
	if err != nil || v != "1" {
		t.Fatalf("expected 1, got %q (%v)", v, err)
	}

	_ = s.Delete(ctx, "a", "missing")
	if _, err := s.Get(ctx, "a"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Expiry(t *testing.T) {
	s := NewStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_ = s.Set(context.Background(), "a", "1", time.Minute)
	now = now.Add(time.Minute)

	if _, err := s.Get(context.Background(), "a"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected expired key to be absent, got %v", err)
	}
}

func TestStore_ExpiredGetRemovesKey(t *testing.T) {
	s := NewStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Set(ctx, "a", "1", time.Minute)
	_ = s.Set(ctx, "b", "2", 0)
	now = now.Add(time.Minute)

	_, _ = s.Get(ctx, "a")
	if s.Len() != 1 {
		t.Fatalf("expected the expired key to be removed, %d keys left", s.Len())
	}
}

func TestStore_SweepRemovesExpiredKeys(t *testing.T) {
	s := NewStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Set(ctx, "short", "1", time.Minute)
	_ = s.Set(ctx, "long", "2", time.Hour)
	_ = s.Set(ctx, "forever", "3", 0)
	now = now.Add(2 * time.Minute)

	if n := s.sweep(); n != 1 {
		t.Fatalf("expected 1 key swept, got %d", n)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 keys left, got %d", s.Len())
	}
	if v, err := s.Get(ctx, "long"); err != nil || v != "2" {
		t.Fatalf("expected live key to survive, got %q (%v)", v, err)
	}
}

func TestStore_JanitorShrinksStore(t *testing.T) {
	s := NewStore()
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, k := range []string{"a", "b", "c"} {
		_ = s.Set(ctx, k, "v", time.Minute)
	}
	s.StartJanitor(ctx, 5*time.Millisecond)

	mu.Lock()
	now = now.Add(time.Hour)
	mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for s.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected janitor to empty the store, %d keys left", s.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
