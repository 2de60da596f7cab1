// Package cache stores derived project views and rendered artifacts.
//
// Views are pure functions of a project's records and the layout options,
// so they are cached under content-addressed keys: the same records and
// options always hash to the same key and a structural edit always produces
// a new one. Stale entries are never served; they simply stop being asked
// for and expire.
//
// # Backends
//
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [RedisCache]: shared cache for API servers
//
// # Keys
//
// A [Keyer] derives keys; [DefaultKeyer] hashes the key components and
// [ScopedKeyer] adds a namespace prefix for multi-tenant deployments.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached data and true, or nil and false on a miss.
	// Expired or corrupted entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// Default time-to-live values.
const (
	TTLView     = 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// NullCache never stores anything. Every Get is a miss.
type NullCache struct{}

// NewNullCache returns a cache with caching disabled.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }
