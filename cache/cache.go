// File: cache/cache.go
// Author: momentics <momentics@gmail.com>
//
// Content-keyed frame cache. Maps a caller-defined semantic key (source
// position, effect signature) to a previously produced frame so repeated
// requests skip recomputation. Strict LRU over entry count, not bytes.
//
// The cache holds plain references: dropping an entry never releases GPU
// storage. Whoever holds a frame still owes the pool a ReturnFrame, and
// the cache's single internal lock is never held while calling the pool.

package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/momentics/hioload-frames/api"
	"github.com/momentics/hioload-frames/frame"
)

// DefaultCapacity bounds the number of entries unless configured otherwise.
const DefaultCapacity = 100

// Cache is a string-keyed LRU of produced frames.
type Cache struct {
	entries *lru.Cache[string, *frame.Frame]

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	capacity  int
}

// New creates a cache bounded to capacity entries. Capacity must be
// positive; zero selects DefaultCapacity.
func New(capacity int) (*Cache, error) {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	entries, err := lru.New[string, *frame.Frame](capacity)
	if err != nil {
		return nil, api.NewError(api.ErrCodeInternal, "cache construction failed").
			WithContext("capacity", capacity)
	}
	return &Cache{entries: entries, capacity: capacity}, nil
}

// Get returns the cached frame for key, promoting it to most recently
// used. Hit and miss counters update accordingly.
func (c *Cache) Get(key string) (*frame.Frame, bool) {
	f, ok := c.entries.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return f, true
}

// Put registers a frame under key. An existing key has its frame replaced
// and its recency refreshed; a new key may displace the least recently
// used entry. Displacement drops only the cache reference, never storage.
func (c *Cache) Put(key string, f *frame.Frame) {
	if c.entries.Add(key, f) {
		c.evictions.Add(1)
	}
}

// Remove drops the entry for key, reporting whether it existed.
func (c *Cache) Remove(key string) bool {
	return c.entries.Remove(key)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.entries.Purge()
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Capacity returns the configured entry bound.
func (c *Cache) Capacity() int {
	return c.capacity
}

// HitRate returns hits/(hits+misses), zero before any lookup.
func (c *Cache) HitRate() float64 {
	return c.Stats().HitRate()
}

// Stats snapshots the cache counters.
func (c *Cache) Stats() api.CacheStats {
	return api.CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   c.entries.Len(),
		Capacity:  c.capacity,
	}
}
