package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/reasonmesh/core"
	"github.com/hupe1980/reasonmesh/internal/testutil"
	"github.com/stretchr/testify/assert"
)

var _ core.ContextCache = (*LRU)(nil)

func newContext(id string) *core.ReasoningContext {
	return testutil.NewContextBuilder(id).Session("sess-1").Build()
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(func(o *Options) { o.Capacity = 3 })

	c.Set(newContext("c0"))
	c.Set(newContext("c1"))
	c.Set(newContext("c2"))

	// Touch c0 so c1 becomes the least recently used entry.
	_, ok := c.Get("c0")
	assert.True(t, ok)

	c.Set(newContext("c3"))

	_, ok = c.Get("c1")
	assert.False(t, ok, "c1 should have been evicted")

	for _, id := range []string{"c0", "c2", "c3"} {
		_, ok := c.Get(id)
		assert.True(t, ok, "%s should still be cached", id)
	}

	assert.Equal(t, int64(1), c.Metrics().Evictions)
	assert.Equal(t, 3, c.Len())
}

func TestLRU_EvictsInInsertionOrderWithoutAccess(t *testing.T) {
	c := New(func(o *Options) { o.Capacity = 2 })

	c.Set(newContext("a"))
	c.Set(newContext("b"))
	c.Set(newContext("c"))

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest inserted entry should be evicted first")

	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestLRU_SetExistingDoesNotEvict(t *testing.T) {
	c := New(func(o *Options) { o.Capacity = 2 })

	c.Set(newContext("a"))
	c.Set(newContext("b"))
	c.Set(newContext("a"))

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, int64(0), c.Metrics().Evictions)

	// The update refreshed "a", so "b" is now the eviction candidate.
	c.Set(newContext("c"))
	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestLRU_HitRate(t *testing.T) {
	c := New()

	assert.Equal(t, float64(0), c.Metrics().HitRate, "empty cache should report a zero hit rate")

	c.Set(newContext("known"))

	_, ok := c.Get("known")
	assert.True(t, ok)
	_, ok = c.Get("unknown")
	assert.False(t, ok)

	m := c.Metrics()
	assert.Equal(t, int64(1), m.Hits)
	assert.Equal(t, int64(1), m.Misses)
	assert.Equal(t, 0.5, m.HitRate)
	assert.Equal(t, 1, m.Size)
	assert.Equal(t, DefaultCapacity, m.Capacity)
}

func TestLRU_GetRefreshesLastAccessed(t *testing.T) {
	c := New()
	rc := newContext("ctx")
	before := rc.LastAccessed
	c.Set(rc)

	time.Sleep(5 * time.Millisecond)

	got, ok := c.Get("ctx")
	assert.True(t, ok)
	assert.True(t, got.LastAccessed.After(before), "Get should refresh LastAccessed")
}

func TestLRU_StoresLivePointers(t *testing.T) {
	c := New()

	rc := testutil.NewContextBuilder("ctx").
		Priority(core.PriorityHigh).
		Entry(testutil.NewEntryBuilder().UserText("hello").Build()).
		Build()

	c.Set(rc)

	got, ok := c.Get("ctx")
	assert.True(t, ok)
	assert.Same(t, rc, got)

	// Mutations through either pointer observe the same history.
	rc.Append(testutil.NewEntryBuilder().AgentText("hi there").Build(), 0)
	assert.Equal(t, 2, got.HistoryLen())
}

func TestLRU_TTLExpiration(t *testing.T) {
	c := New(func(o *Options) { o.TTL = 10 * time.Millisecond })

	c.Set(newContext("short-lived"))
	time.Sleep(25 * time.Millisecond)

	_, ok := c.Get("short-lived")
	assert.False(t, ok, "entry should have expired")

	m := c.Metrics()
	assert.Equal(t, int64(1), m.Expirations)
	assert.Equal(t, int64(1), m.Misses)
	assert.Equal(t, 0, m.Size)
}

func TestLRU_Purge(t *testing.T) {
	c := New()
	c.Set(newContext("a"))
	c.Set(newContext("b"))
	c.Get("a")
	c.Get("missing")

	c.Purge()

	assert.Equal(t, 0, c.Len())

	m := c.Metrics()
	assert.Equal(t, int64(0), m.Hits)
	assert.Equal(t, int64(0), m.Misses)
	assert.Equal(t, float64(0), m.HitRate)
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	c := New(func(o *Options) { o.Capacity = 16 })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := fmt.Sprintf("ctx-%d-%d", worker, j%4)
				c.Set(newContext(id))
				c.Get(id)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 16)
	assert.Greater(t, c.Metrics().Hits, int64(0))
}
