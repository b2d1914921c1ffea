// Package cache provides the storefront's key/value cache: an in-memory
// TTL map with lazy expiry and a periodic sweep, the Store interface that
// lets a shared backend replace it, and get-or-compute helpers.
package cache

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/metrics"
)

// DefaultCleanupInterval is how often expired entries are swept.
const DefaultCleanupInterval = 5 * time.Minute

// Entry is a cached value and the instant it stops being served.
type Entry struct {
	Value     any
	ExpiresAt time.Time
}

// Stats is an introspection snapshot of a cache.
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// Option configures a TTLCache.
type Option func(*TTLCache)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(c *TTLCache) {
		c.now = now
	}
}

// WithCleanupInterval sets the sweep period used by StartCleanup.
func WithCleanupInterval(d time.Duration) Option {
	return func(c *TTLCache) {
		if d > 0 {
			c.interval = d
		}
	}
}

// TTLCache is an in-process map with per-entry expiry.
type TTLCache struct {
	mu       sync.RWMutex
	entries  map[string]Entry
	now      func() time.Time
	interval time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewTTLCache creates an empty cache. The sweep does not run until StartCleanup.
func NewTTLCache(opts ...Option) *TTLCache {
	c := &TTLCache{
		entries:  make(map[string]Entry),
		now:      time.Now,
		interval: DefaultCleanupInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores value under key until ttl elapses, replacing any previous entry.
// A non-positive ttl removes the key instead.
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		delete(c.entries, key)
		metrics.CacheSize.Set(float64(len(c.entries)))
		return
	}
	c.entries[key] = Entry{Value: value, ExpiresAt: c.now().Add(ttl)}
	metrics.CacheSize.Set(float64(len(c.entries)))
}

// Get returns the live value for key. An expired entry is removed on the spot.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		metrics.CacheMisses.WithLabelValues("memory").Inc()
		return nil, false
	}

	if !c.now().Before(entry.ExpiresAt) {
		c.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the key
		if current, ok := c.entries[key]; ok && !c.now().Before(current.ExpiresAt) {
			delete(c.entries, key)
			metrics.CacheExpired.Inc()
			metrics.CacheSize.Set(float64(len(c.entries)))
		}
		c.mu.Unlock()
		metrics.CacheMisses.WithLabelValues("memory").Inc()
		return nil, false
	}

	metrics.CacheHits.WithLabelValues("memory").Inc()
	return entry.Value, true
}

// Delete removes key and reports whether it was present.
func (c *TTLCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	delete(c.entries, key)
	metrics.CacheSize.Set(float64(len(c.entries)))
	return ok
}

// Clear removes every entry.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)
	metrics.CacheSize.Set(0)
}

// Invalidate removes every key containing pattern and returns how many were removed.
func (c *TTLCache) Invalidate(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.Contains(key, pattern) {
			delete(c.entries, key)
			removed++
		}
	}
	metrics.CacheSize.Set(float64(len(c.entries)))
	return removed
}

// Cleanup removes every expired entry and returns how many were removed.
func (c *TTLCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	metrics.CacheExpired.Add(float64(removed))
	metrics.CacheSize.Set(float64(len(c.entries)))
	return removed
}

// Stats returns the number of stored entries and their sorted keys.
// Expired entries not yet swept are included.
func (c *TTLCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return Stats{Size: len(keys), Keys: keys}
}

// StartCleanup launches the periodic sweep. Only the first call has an effect.
// The sweep stops when ctx is done or Shutdown is called.
func (c *TTLCache) StartCleanup(ctx context.Context) {
	c.startOnce.Do(func() {
		go c.run(ctx)
	})
}

// Shutdown stops the sweep and waits for it to exit. Safe to call more than once,
// and safe when StartCleanup was never called.
func (c *TTLCache) Shutdown() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	// A sweep that never started has nothing to wait for
	c.startOnce.Do(func() {
		close(c.done)
	})
	<-c.done
}

func (c *TTLCache) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			if removed := c.Cleanup(); removed > 0 {
				slog.Debug("Cache sweep removed expired entries", "removed", removed)
			}
		}
	}
}
