// Package cache provides a small tag-aware cache used to memoize derived
// read models. Entries carry tags; invalidating a tag drops every entry
// written under it.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values under string keys with a TTL and a set of tags.
type Cache interface {
	// Get returns the cached value and whether it was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl, indexed by the given tags.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error
	// InvalidateTags removes every entry written under any of the tags.
	InvalidateTags(ctx context.Context, tags ...string) error
}
