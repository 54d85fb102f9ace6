// ABOUTME: Cache handle memoizing the settings snapshot and the validation rule map
// ABOUTME: Shared backend entries plus a local snapshot mirror, invalidated on every mutation

package settings

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/2389/coven-settings/internal/cache"
)

// DefaultCachePrefix is the prefix of the two cache entry names
const DefaultCachePrefix = "settings"

// CacheConfig configures a Cache.
type CacheConfig struct {
	// Enabled turns caching on. When false every read scans the store.
	Enabled bool
	// Prefix names the entries "<prefix>.all" and "<prefix>.rules".
	Prefix string
	// TTL bounds how long entries live. Zero keeps them until invalidated.
	TTL time.Duration
}

// snapshot is every setting indexed by key. Never mutated once built.
type snapshot map[string]*Setting

// Cache memoizes the full settings snapshot and the derived rule map.
type Cache struct {
	enabled bool
	prefix  string
	ttl     time.Duration
	backend cache.Backend
	logger  *slog.Logger

	mu          sync.RWMutex
	generation  uint64
	mirror      snapshot
	mirrorUntil time.Time // zero means no expiry

	group singleflight.Group
}

// NewCache creates a cache handle over backend. A nil backend gets a fresh
// in-process ttlcache backend.
func NewCache(backend cache.Backend, cfg CacheConfig) *Cache {
	if backend == nil {
		backend = cache.NewTTLBackend()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultCachePrefix
	}
	return &Cache{
		enabled: cfg.Enabled,
		prefix:  cfg.Prefix,
		ttl:     cfg.TTL,
		backend: backend,
		logger:  slog.Default().With("component", "settings-cache"),
	}
}

// AllKey is the name of the snapshot entry.
func (c *Cache) AllKey() string {
	return c.prefix + ".all"
}

// RulesKey is the name of the rule map entry.
func (c *Cache) RulesKey() string {
	return c.prefix + ".rules"
}

// Enabled reports whether reads are memoized.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// Invalidate drops both entries and the local mirror. Loads that started
// before the call do not repopulate the cache.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.generation++
	c.mirror = nil
	c.mirrorUntil = time.Time{}
	c.mu.Unlock()

	c.backend.Delete(c.AllKey(), c.RulesKey())
	c.logger.Debug("invalidated settings cache", "entries", []string{c.AllKey(), c.RulesKey()})
}

// settings returns the snapshot, loading it on a miss.
func (c *Cache) settings(ctx context.Context, load func(context.Context) (snapshot, error)) (snapshot, error) {
	if !c.enabled {
		return load(ctx)
	}

	c.mu.RLock()
	gen := c.generation
	if c.mirror != nil && (c.mirrorUntil.IsZero() || time.Now().Before(c.mirrorUntil)) {
		snap := c.mirror
		c.mu.RUnlock()
		return snap, nil
	}
	c.mu.RUnlock()

	if v, ok := c.backend.Get(c.AllKey()); ok {
		if snap, ok := v.(snapshot); ok {
			c.remember(gen, snap)
			return snap, nil
		}
	}

	v, err, _ := c.group.Do(c.flightKey(c.AllKey(), gen), func() (any, error) {
		snap, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.store(gen, c.AllKey(), snap)
		c.remember(gen, snap)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(snapshot), nil
}

// rules returns the key to effective rule map, loading it on a miss.
func (c *Cache) rules(ctx context.Context, load func(context.Context) (map[string]string, error)) (map[string]string, error) {
	if !c.enabled {
		return load(ctx)
	}

	c.mu.RLock()
	gen := c.generation
	c.mu.RUnlock()

	if v, ok := c.backend.Get(c.RulesKey()); ok {
		if m, ok := v.(map[string]string); ok {
			return m, nil
		}
	}

	v, err, _ := c.group.Do(c.flightKey(c.RulesKey(), gen), func() (any, error) {
		m, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.store(gen, c.RulesKey(), m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}

// store writes an entry unless an invalidation happened since gen was read.
func (c *Cache) store(gen uint64, key string, value any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.generation != gen {
		return
	}
	c.backend.Set(key, value, c.ttl)
	c.logger.Debug("populated settings cache", "entry", key)
}

func (c *Cache) remember(gen uint64, snap snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return
	}
	c.mirror = snap
	if c.ttl > 0 {
		c.mirrorUntil = time.Now().Add(c.ttl)
	}
}

// flightKey scopes in-flight loads to one generation so callers after an
// invalidation never join a load that started before it.
func (c *Cache) flightKey(entry string, gen uint64) string {
	return fmt.Sprintf("%s#%d", entry, gen)
}
