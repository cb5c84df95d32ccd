// Package cache provides an in-memory store for reasoning contexts with
// least-recently-used eviction, optional TTL expiration and hit/miss
// accounting. It is safe for concurrent access and is the default context
// store used by the engine.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/hupe1980/reasonmesh/core"
	"github.com/hupe1980/reasonmesh/logging"
)

// DefaultCapacity is the number of contexts retained when no explicit
// capacity is configured.
const DefaultCapacity = 256

// Options configures the LRU cache.
type Options struct {
	// Capacity is the maximum number of contexts retained before the least
	// recently used entry is evicted. Defaults to DefaultCapacity.
	Capacity int

	// TTL bounds the lifetime of an entry. Zero disables expiration.
	TTL time.Duration

	// Logger receives eviction and expiration events.
	Logger logging.Logger
}

// LRU is a fixed-capacity context cache. Recency is tracked with a doubly
// linked list whose front holds the most recently used entry; entries that
// are never read age toward the back in insertion order.
type LRU struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	logger   logging.Logger

	entries map[string]*list.Element
	order   *list.List // front = most recently used
	hits    int64
	misses  int64

	evictions   int64
	expirations int64
}

type lruEntry struct {
	id        string
	rc        *core.ReasoningContext
	expiresAt time.Time // zero when TTL is disabled
}

// New creates an empty LRU context cache.
func New(optFns ...func(o *Options)) *LRU {
	opts := Options{
		Capacity: DefaultCapacity,
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &LRU{
		capacity: opts.Capacity,
		ttl:      opts.TTL,
		logger:   opts.Logger,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Set stores a context under its ID. An existing entry is updated in place
// and refreshed to most recently used; a new entry first evicts the least
// recently used context if the cache is full.
func (c *LRU) Set(rc *core.ReasoningContext) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[rc.ID]; ok {
		e := el.Value.(*lruEntry)
		e.rc = rc
		e.expiresAt = c.expiry()
		c.order.MoveToFront(el)
		return
	}

	for len(c.entries) >= c.capacity {
		c.evictOldest()
	}

	el := c.order.PushFront(&lruEntry{id: rc.ID, rc: rc, expiresAt: c.expiry()})
	c.entries[rc.ID] = el
}

// Get returns the context stored under id. A hit moves the entry to the
// front of the recency order and refreshes the context's LastAccessed
// timestamp; a miss only increments the miss counter.
func (c *LRU) Get(id string) (*core.ReasoningContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[id]
	if !ok {
		c.misses++
		return nil, false
	}

	e := el.Value.(*lruEntry)
	if c.ttl > 0 && time.Now().After(e.expiresAt) {
		c.removeElement(el)
		c.expirations++
		c.misses++
		c.logger.Debug("reasoning context expired", "context_id", e.id)

		return nil, false
	}

	c.order.MoveToFront(el)
	e.rc.Touch(time.Now())
	c.hits++

	return e.rc, true
}

// Metrics returns a snapshot of the cache counters.
func (c *LRU) Metrics() core.CacheMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := core.CacheMetrics{
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
		Size:        len(c.entries),
		Capacity:    c.capacity,
	}

	if total := c.hits + c.misses; total > 0 {
		m.HitRate = float64(c.hits) / float64(total)
	}

	return m
}

// Len returns the number of contexts currently stored.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Purge removes every entry and resets the hit/miss accounting.
func (c *LRU) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.hits, c.misses = 0, 0
	c.evictions, c.expirations = 0, 0
}

// evictOldest removes the least recently used entry.
// Must be called with c.mu held.
func (c *LRU) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}

	e := el.Value.(*lruEntry)
	c.removeElement(el)
	c.evictions++
	c.logger.Debug("evicted reasoning context", "context_id", e.id)
}

// removeElement unlinks an element from the recency list and the index.
// Must be called with c.mu held.
func (c *LRU) removeElement(el *list.Element) {
	e := el.Value.(*lruEntry)
	c.order.Remove(el)
	delete(c.entries, e.id)
}

// expiry computes the expiration for a fresh or updated entry.
func (c *LRU) expiry() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}

	return time.Now().Add(c.ttl)
}
