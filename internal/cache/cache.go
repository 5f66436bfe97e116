// Package cache implements the bounded continuity store that carries
// "last known" derived state between ticks.
package cache

import "time"

// Entry wraps a cached payload with its bookkeeping. An entry is created
// whole on Put and only its hit counter changes afterwards.
type Entry[V any] struct {
	Value      V
	InsertedAt time.Time
	Hits       int64
}

// Cache is a bounded per-key store with lazy TTL expiry. When full, Put
// evicts the entry with the oldest insertion timestamp, found by a full
// linear scan (first encountered wins ties). That is deliberately not a true
// LRU: read refreshes never extend an entry's life, so eviction order stays
// a function of insertion order alone.
//
// Operations never fail; a missing key is a normal outcome. The cache is not
// safe for concurrent use on its own; the owning session serializes access.
type Cache[V any] struct {
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	entries map[string]*Entry[V]

	hits      int64
	misses    int64
	evictions int64
}

// New creates a cache holding at most maxEntries values, each living for ttl.
// A ttl of zero disables expiry. now supplies timestamps so tests can pin time.
func New[V any](maxEntries int, ttl time.Duration, now func() time.Time) *Cache[V] {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if now == nil {
		now = time.Now
	}
	return &Cache[V]{
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        now,
		entries:    make(map[string]*Entry[V], maxEntries),
	}
}

// Get returns the value for key. An entry older than the TTL is deleted and
// reported absent. A hit increments the entry's counter by exactly one.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if c.ttl > 0 && c.now().Sub(e.InsertedAt) > c.ttl {
		delete(c.entries, key)
		c.misses++
		return zero, false
	}
	e.Hits++
	c.hits++
	return e.Value, true
}

// Put stores value under key, evicting the oldest-inserted entry first when
// the cache is full and key is new.
func (c *Cache[V]) Put(key string, value V) {
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = &Entry[V]{Value: value, InsertedAt: c.now()}
}

func (c *Cache[V]) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for k, e := range c.entries {
		if !found || e.InsertedAt.Before(oldest) {
			oldestKey, oldest, found = k, e.InsertedAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
		c.evictions++
	}
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int { return len(c.entries) }

// HitRate returns hits / (hits + misses), or zero before any lookup.
func (c *Cache[V]) HitRate() float64 {
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// Evictions returns the number of entries removed under capacity pressure.
func (c *Cache[V]) Evictions() int64 { return c.evictions }

// Hits returns the hit counter for key, or zero when absent. Inspection only;
// does not refresh the entry.
func (c *Cache[V]) Hits(key string) int64 {
	if e, ok := c.entries[key]; ok {
		return e.Hits
	}
	return 0
}

// Items returns a copy of the live payloads for inspection and state dumps.
func (c *Cache[V]) Items() map[string]V {
	out := make(map[string]V, len(c.entries))
	for k, e := range c.entries {
		out[k] = e.Value
	}
	return out
}
