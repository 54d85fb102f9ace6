// ABOUTME: Shared cache backend abstraction for memoized settings aggregates
// ABOUTME: TTLBackend stores entries in jellydator/ttlcache with a per-entry expiry or none

package cache

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Backend is a key/value cache shared by every registry that points at it.
// A zero ttl passed to Set means the entry lives until deleted.
type Backend interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(keys ...string)
}

// TTLBackend is an in-process Backend on top of ttlcache.
type TTLBackend struct {
	items *ttlcache.Cache[string, any]
}

// NewTTLBackend creates an empty in-process backend.
// Hits never extend an entry's lifetime, so a TTL bounds staleness.
func NewTTLBackend() *TTLBackend {
	return &TTLBackend{
		items: ttlcache.New[string, any](
			ttlcache.WithDisableTouchOnHit[string, any](),
		),
	}
}

// Get returns the cached value for key, if present and not expired.
func (b *TTLBackend) Get(key string) (any, bool) {
	item := b.items.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Set stores value under key. ttl <= 0 stores it without expiry.
func (b *TTLBackend) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	b.items.Set(key, value, ttl)
}

// Delete removes the given keys. Missing keys are ignored.
func (b *TTLBackend) Delete(keys ...string) {
	for _, key := range keys {
		b.items.Delete(key)
	}
}

// Len reports the number of stored entries.
func (b *TTLBackend) Len() int {
	return b.items.Len()
}

var _ Backend = (*TTLBackend)(nil)
