// Package cache provides the expiring key-value cache shared by the
// catalog client, the recommendation engine and the proxy handlers.
package cache

import (
	"sync"
	"time"
)

// DefaultMaxEntries matches the upstream proxy's hard cap.
const DefaultMaxEntries = 500

type entry struct {
	value     any
	expiresAt time.Time
	access    uint64
}

// Cache is a TTL cache with lazy expiry on read. When the entry count
// exceeds the cap, the single least-recently-accessed entry is evicted; a
// full scan is fine at this scale. Access order is tracked by a sequence
// counter rather than a timestamp, so bulk inserts within one clock tick
// still evict in a deterministic order.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	maxEntries int
	accessSeq  uint64
	now        func() time.Time
}

func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached value, or nil if absent or expired. Expired
// entries are removed on the spot; hits refresh the access order.
func (c *Cache) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.After(c.now()) {
		delete(c.entries, key)
		return nil
	}
	c.accessSeq++
	e.access = c.accessSeq
	return e.value
}

// Set stores value under key for ttl. Exceeding the cap evicts the least
// recently accessed entry.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accessSeq++
	c.entries[key] = &entry{
		value:     value,
		expiresAt: c.now().Add(ttl),
		access:    c.accessSeq,
	}

	if len(c.entries) <= c.maxEntries {
		return
	}

	var coldestKey string
	var coldestAccess uint64
	for k, e := range c.entries {
		if coldestKey == "" || e.access < coldestAccess {
			coldestKey = k
			coldestAccess = e.access
		}
	}
	delete(c.entries, coldestKey)
}

// Len reports the current entry count, including not-yet-purged expired
// entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
