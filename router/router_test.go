package router

import (
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/reasonmesh/core"
	"github.com/stretchr/testify/assert"
)

var _ core.AgentRouter = (*Router)(nil)

func TestRouter_FindBestAgentFiltersByCapability(t *testing.T) {
	r := New()
	r.Register(core.AgentRegistration{AgentType: "content_agent", Capabilities: []string{"generate_posts"}})

	decision := r.FindBestAgent("optimize_ads", core.PriorityMedium)
	assert.False(t, decision.Found)
	assert.Empty(t, decision.AgentType)
	assert.Contains(t, decision.Reasoning, "optimize_ads")

	decision = r.FindBestAgent("generate_posts", core.PriorityMedium)
	assert.True(t, decision.Found)
	assert.Equal(t, "content_agent", decision.AgentType)
	assert.Greater(t, decision.Score, 0.0)
}

func TestRouter_DeterministicTieBreak(t *testing.T) {
	r := New()
	r.Register(core.AgentRegistration{AgentType: "beta", Capabilities: []string{"analyze"}})
	r.Register(core.AgentRegistration{AgentType: "alpha", Capabilities: []string{"analyze"}})

	// Identical capability sets and untouched profiles: lexical order decides.
	for i := 0; i < 10; i++ {
		decision := r.FindBestAgent("analyze", core.PriorityMedium)
		assert.Equal(t, "alpha", decision.AgentType)
	}
}

func TestRouter_TieBreakPrefersSpecialist(t *testing.T) {
	r := New()
	r.Register(core.AgentRegistration{AgentType: "generalist", Capabilities: []string{"analyze", "summarize", "translate"}})
	r.Register(core.AgentRegistration{AgentType: "specialist", Capabilities: []string{"analyze"}})

	decision := r.FindBestAgent("analyze", core.PriorityMedium)
	assert.Equal(t, "specialist", decision.AgentType)
}

func TestRouter_UrgentPriorityFavorsSuccessRate(t *testing.T) {
	r := New()
	r.Register(core.AgentRegistration{AgentType: "fast", Capabilities: []string{"generate_posts"}})
	r.Register(core.AgentRegistration{AgentType: "reliable", Capabilities: []string{"generate_posts"}})

	// fast: near-zero latency but one failure on record.
	r.UpdateAgentMetrics("fast", 5*time.Millisecond, false)

	// reliable: perfect success rate at multi-second latency.
	for i := 0; i < 12; i++ {
		r.UpdateAgentMetrics("reliable", 3*time.Second, true)
	}

	decision := r.FindBestAgent("generate_posts", core.PriorityMedium)
	assert.Equal(t, "fast", decision.AgentType, "medium priority should favor the low-latency agent")

	for _, p := range []core.Priority{core.PriorityHigh, core.PriorityCritical} {
		decision = r.FindBestAgent("generate_posts", p)
		assert.Equal(t, "reliable", decision.AgentType, "%s priority should favor the high success rate agent", p)
	}
}

func TestRouter_EWMAConvergence(t *testing.T) {
	r := New()
	r.Register(core.AgentRegistration{AgentType: "agent", Capabilities: []string{"analyze"}})

	profile := r.Stats().Agents[0]
	assert.Equal(t, 0.0, profile.AvgResponseTimeMs, "latency prior should be neutral")
	assert.Equal(t, 1.0, profile.SuccessRate, "success prior should be neutral")
	assert.Equal(t, int64(0), profile.Observations)

	prev := 0.0
	for i := 0; i < 20; i++ {
		r.UpdateAgentMetrics("agent", 500*time.Millisecond, true)

		profile = r.Stats().Agents[0]
		assert.Greater(t, profile.AvgResponseTimeMs, prev, "latency should climb monotonically toward the observed value")
		prev = profile.AvgResponseTimeMs
	}

	assert.InDelta(t, 500, profile.AvgResponseTimeMs, 10, "latency should converge toward 500ms")
	assert.Equal(t, 1.0, profile.SuccessRate)
	assert.Equal(t, int64(20), profile.Observations)
}

func TestRouter_EWMADecaysOnFailures(t *testing.T) {
	r := New()
	r.Register(core.AgentRegistration{AgentType: "flaky", Capabilities: []string{"analyze"}})

	r.UpdateAgentMetrics("flaky", 100*time.Millisecond, false)
	profile := r.Stats().Agents[0]
	assert.InDelta(t, 0.8, profile.SuccessRate, 1e-9)
	assert.InDelta(t, 20, profile.AvgResponseTimeMs, 1e-9)

	for i := 0; i < 19; i++ {
		r.UpdateAgentMetrics("flaky", 100*time.Millisecond, false)
	}

	profile = r.Stats().Agents[0]
	assert.Less(t, profile.SuccessRate, 0.02, "sustained failures should drive the success rate toward zero")
}

func TestRouter_UpdateUnregisteredIsNoOp(t *testing.T) {
	r := New()
	r.Register(core.AgentRegistration{AgentType: "known", Capabilities: []string{"analyze"}})

	assert.NotPanics(t, func() {
		r.UpdateAgentMetrics("unknown", time.Second, true)
	})

	stats := r.Stats()
	assert.Len(t, stats.Agents, 1)
	assert.Equal(t, int64(0), stats.Agents[0].Observations)
}

func TestRouter_ReregisterKeepsMetrics(t *testing.T) {
	r := New()
	r.Register(core.AgentRegistration{AgentType: "agent", Capabilities: []string{"generate_posts"}})
	r.UpdateAgentMetrics("agent", 500*time.Millisecond, true)

	r.Register(core.AgentRegistration{AgentType: "agent", Capabilities: []string{"optimize_ads", "analyze"}})

	profile := r.Stats().Agents[0]
	assert.ElementsMatch(t, []string{"optimize_ads", "analyze"}, profile.Capabilities)
	assert.Equal(t, int64(1), profile.Observations, "re-registration should keep the performance record")
	assert.InDelta(t, 100, profile.AvgResponseTimeMs, 1e-9)

	decision := r.FindBestAgent("generate_posts", core.PriorityMedium)
	assert.False(t, decision.Found, "replaced capability set should no longer match")
}

func TestRouter_StatsSnapshot(t *testing.T) {
	r := New()
	r.Register(core.AgentRegistration{AgentType: "bravo", Capabilities: []string{"b"}})
	r.Register(core.AgentRegistration{AgentType: "alpha", Capabilities: []string{"a"}})
	r.Register(core.AgentRegistration{AgentType: "charlie", Capabilities: []string{"c"}})

	r.FindBestAgent("a", core.PriorityMedium)
	r.FindBestAgent("nope", core.PriorityMedium)

	stats := r.Stats()
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, []string{
		stats.Agents[0].AgentType, stats.Agents[1].AgentType, stats.Agents[2].AgentType,
	})
	assert.Equal(t, int64(1), stats.Decisions)
	assert.Equal(t, int64(1), stats.Unroutable)
}

func TestRouter_ConcurrentMetricUpdates(t *testing.T) {
	r := New()
	r.Register(core.AgentRegistration{AgentType: "shared", Capabilities: []string{"analyze"}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.UpdateAgentMetrics("shared", 100*time.Millisecond, true)
			}
		}()
	}
	wg.Wait()

	profile := r.Stats().Agents[0]
	assert.Equal(t, int64(800), profile.Observations, "no observation should be lost under concurrency")
	assert.Equal(t, 1.0, profile.SuccessRate)
}
