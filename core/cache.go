package core

// CacheMetrics is a point-in-time snapshot of cache accounting.
//
// HitRate is hits/(hits+misses), defined as 0 when no lookups have occurred.
// Expirations counts entries dropped by TTL (when enabled) and is tracked
// separately from capacity evictions.
type CacheMetrics struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Evictions   int64   `json:"evictions"`
	Expirations int64   `json:"expirations"`
	HitRate     float64 `json:"hit_rate"`
	Size        int     `json:"size"`
	Capacity    int     `json:"capacity"`
}

// ContextCache is a bounded, goroutine-safe store of reasoning contexts keyed
// by id, with least-recently-used eviction and hit/miss accounting.
//
// Implementations MUST:
//   - Evict strictly least-recently-accessed first when inserting a new key
//     at capacity (ties broken by insertion order); Set never errors
//   - Refresh recency and the context's LastAccessed timestamp on every
//     successful Get, and count the lookup as a hit
//   - Count failed lookups as misses and return (nil, false), never an error
//   - Keep the structural lock scoped to map/recency bookkeeping so slow work
//     on one context never blocks access to another
type ContextCache interface {
	// Set inserts or overwrites the entry under rc.ID, evicting the least
	// recently used entry first if a new key would exceed capacity.
	Set(rc *ReasoningContext)

	// Get returns the context for id, refreshing its recency, or (nil,
	// false) on a miss.
	Get(id string) (*ReasoningContext, bool)

	// Metrics returns a snapshot of hit/miss/eviction accounting.
	Metrics() CacheMetrics

	// Len returns the current number of cached contexts.
	Len() int

	// Purge discards all entries and resets the accounting counters.
	Purge()
}
