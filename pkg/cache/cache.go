// Package cache stores parsed scores, layouts and rendered artifacts.
//
// Three backends implement [Cache]:
//   - [FileCache]: entries as JSON files under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for the HTTP service
//   - [NullCache]: stores nothing
//
// Keys come from a [Keyer], which hashes the content of the previous stage
// together with the options that affect the next one. Two documents with the
// same source and renderer therefore share a layout entry regardless of
// their file names.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the entry for key. A missing or expired entry is a miss,
	// not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// Entry lifetimes per pipeline stage.
const (
	TTLScore    = 7 * 24 * time.Hour
	TTLLayout   = 30 * 24 * time.Hour
	TTLArtifact = 30 * 24 * time.Hour
)

// WithTTL returns a cache that stores every entry with ttl instead of the
// stage lifetime. A ttl of zero returns c unchanged.
func WithTTL(c Cache, ttl time.Duration) Cache {
	if ttl <= 0 {
		return c
	}
	return fixedTTL{Cache: c, ttl: ttl}
}

type fixedTTL struct {
	Cache
	ttl time.Duration
}

func (c fixedTTL) Set(ctx context.Context, key string, data []byte, _ time.Duration) error {
	return c.Cache.Set(ctx, key, data, c.ttl)
}

// Unwrap returns the backend beneath any [WithTTL] wrapper.
func Unwrap(c Cache) Cache {
	if f, ok := c.(fixedTTL); ok {
		return f.Cache
	}
	return c
}
