// Package memory is an in-process ports.KVStore for development and tests.
// State is lost when the gateway restarts.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ispbilling/console/internal/core/domain"
)

type item struct {
	value     string
	expiresAt time.Time
}

type Store struct {
	mu    sync.RWMutex
	items map[string]item
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{items: make(map[string]item), now: time.Now}
}

func (it item) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && !now.Before(it.expiresAt)
}

// Get drops the key when it has expired.
func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return "", domain.ErrNotFound
	}
	if now := s.now(); it.expired(now) {
		s.mu.Lock()
		if cur, ok := s.items[key]; ok && cur.expired(now) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return "", domain.ErrNotFound
	}
	return it.value, nil
}

func (s *Store) Set(_ context.Context, key, value string, ttl time.Duration) error {
	it := item{value: value}
	if ttl > 0 {
		it.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.items[key] = it
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.items, k)
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

// StartJanitor sweeps expired keys every interval until ctx is done, so keys
// of sessions that never come back do not accumulate.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

// sweep removes every expired key and returns how many it removed.
func (s *Store) sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, it := range s.items {
		if it.expired(now) {
			delete(s.items, k)
			n++
		}
	}
	return n
}

// Len counts stored keys; expired keys count until swept or read.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
