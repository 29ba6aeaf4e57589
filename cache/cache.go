// Package cache provides the in-process TTL response cache that sits in
// front of every external API call. TTLs are read-time parameters, not
// entry attributes: different callers may reuse one cache with different
// TTL policies for the same keys.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gridmind/gridmind/core"
)

type entry struct {
	value    interface{}
	storedAt time.Time
}

// Stats provides cache performance counters.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Cache is an async-safe map from opaque key to (value, storedAt).
//
// GetOrFetch is deliberately not single-flight: concurrent callers with
// the same key and a cold cache each invoke the fetch independently.
// That keeps unrelated fetches from serializing behind one slow call and
// keeps the lock scope to map reads/writes only; fetch functions must be
// idempotent.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	hits    int64
	misses  int64
	logger  core.Logger
}

// New creates an empty cache.
func New(logger core.Logger) *Cache {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Cache{
		entries: make(map[string]entry),
		logger:  logger,
	}
}

// Get returns the cached value for key if its age is below ttl. Expired
// entries are deleted on read.
func (c *Cache) Get(key string, ttl time.Duration) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key, ttl)
}

func (c *Cache) getLocked(key string, ttl time.Duration) (interface{}, bool) {
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Since(e.storedAt) >= ttl {
		delete(c.entries, key)
		c.misses++
		c.logger.Debug("Cache entry expired", map[string]interface{}{
			"operation": "cache_get",
			"key":       key,
			"age":       time.Since(e.storedAt).String(),
			"ttl":       ttl.String(),
		})
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Set stores value under key with storedAt = now.
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, storedAt: time.Now()}
}

// GetOrFetch returns the cached value when present and younger than ttl,
// otherwise invokes fetch (outside the lock), stores its result, and
// returns it. Fetch errors are returned unwrapped and nothing is stored.
func (c *Cache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	c.mu.Lock()
	if v, ok := c.getLocked(key, ttl); ok {
		c.mu.Unlock()
		c.logger.Debug("Cache hit", map[string]interface{}{
			"operation": "cache_get_or_fetch",
			"key":       key,
		})
		return v, nil
	}
	c.mu.Unlock()

	value, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.Set(key, value)
	c.logger.Debug("Cache filled", map[string]interface{}{
		"operation": "cache_get_or_fetch",
		"key":       key,
		"ttl":       ttl.String(),
	})
	return value, nil
}

// Clear deletes all entries, or only those whose key starts with prefix
// when prefix is non-empty. It returns the number of entries removed.
func (c *Cache) Clear(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prefix == "" {
		n := len(c.entries)
		c.entries = make(map[string]entry)
		return n
	}

	n := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
}
