package ports

import (
	"context"
	"time"
)

// KVStore is the console's replacement for browser local storage: a
// key-value store that survives restarts of the gateway process. Keys are
// namespaced per browser session by the caller.
type KVStore interface {
	// Get returns domain.ErrNotFound when the key is absent or expired.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value; ttl <= 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes keys; absent keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}
