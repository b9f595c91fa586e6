// Package cache provides a generic, thread-safe expiring cache with per-entry
// TTL and least-recently-used eviction.
//
// Entries are evicted three ways: lazily when an expired entry is read,
// by capacity pressure when an insert would exceed the configured maximum,
// and by a periodic background sweep that removes expired entries and sheds
// the coldest entries when occupancy stays high. Statistics are always
// collected; Prometheus metrics export is optional via functional options.
package cache

import (
	"time"

	"github.com/c360/cropvision/errors"
)

// Cache represents a generic expiring cache. The cache is parameterized by
// value type V for type safety.
type Cache[V any] interface {
	// Get retrieves a value by key. An expired entry is removed and reported
	// as absent. A hit refreshes the entry's access bookkeeping.
	Get(key string) (V, bool)

	// Set stores a value under key with the given time-to-live. Re-setting an
	// existing key fully resets its metadata. A ttl of zero produces an entry
	// that is already expired on its next read. Negative ttl is invalid.
	Set(key string, value V, ttl time.Duration) error

	// Has reports whether key holds a live entry. It applies the same expiry
	// check as Get but does not touch hit/miss counters or access metadata.
	Has(key string) bool

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// InvalidatePattern removes every entry whose key matches the glob
	// pattern and returns the number removed.
	InvalidatePattern(pattern string) (int, error)

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries, expired or not.
	Size() int

	// Keys returns the keys of all live entries, most recently used first.
	Keys() []string

	// Stats returns cache statistics. Never nil for a real cache.
	Stats() *Statistics

	// Close stops the background sweep goroutine and releases resources.
	Close() error
}

// EvictCallback is called when an entry is evicted from the cache.
// It receives the key and value of the evicted entry.
type EvictCallback[V any] func(key string, value V)

// entryOverhead approximates the fixed per-entry bookkeeping cost in bytes
// (map bucket share, list element, entry struct).
const entryOverhead = 128

// validateKey validates a cache key for basic requirements.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapValidation(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}

// NewNoop creates a cache that does nothing (always misses). Used when
// caching is disabled via configuration.
func NewNoop[V any]() Cache[V] {
	return &noopCache[V]{}
}

// noopCache is a cache implementation that does nothing.
type noopCache[V any] struct{}

func (c *noopCache[V]) Get(_ string) (V, bool) {
	var zero V
	return zero, false
}

func (c *noopCache[V]) Set(_ string, _ V, _ time.Duration) error { return nil }

func (c *noopCache[V]) Has(_ string) bool { return false }

func (c *noopCache[V]) Delete(_ string) (bool, error) { return false, nil }

func (c *noopCache[V]) InvalidatePattern(_ string) (int, error) { return 0, nil }

func (c *noopCache[V]) Clear() error { return nil }

func (c *noopCache[V]) Size() int { return 0 }

func (c *noopCache[V]) Keys() []string { return nil }

func (c *noopCache[V]) Stats() *Statistics { return nil }

func (c *noopCache[V]) Close() error { return nil }
