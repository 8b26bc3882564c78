// Package cache provides the byte caches behind the content fetcher and
// the rendered page cache: an in-process map with lazy expiry and a Redis
// backend for running several replicas.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values under string keys for a bounded time.
// Get reports a miss with ok=false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Purge drops every entry owned by this cache.
	Purge(ctx context.Context) error
}
