package metrics

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/reasonmesh/core"
	"github.com/hupe1980/reasonmesh/engine"
)

var _ Source = (*engine.Engine)(nil)

func TestCollector_SeriesCount(t *testing.T) {
	e := engine.New()

	// 4 engine + 7 cache + 2 router series, no agents registered yet.
	assert.Equal(t, 13, testutil.CollectAndCount(NewCollector(e)))

	e.RegisterAgentType("copywriter", "generate_posts")
	e.RegisterAgentType("optimizer", "optimize_ads")

	// Each agent contributes three labeled series.
	assert.Equal(t, 19, testutil.CollectAndCount(NewCollector(e)))
}

func TestCollector_ExportsSnapshots(t *testing.T) {
	e := engine.New()
	e.RegisterAgentType("copywriter", "generate_posts")

	rc := e.CreateContext("session-1")

	_, err := e.ProcessInference(context.Background(), core.InferenceRequest{
		ContextID:          rc.ID,
		Prompt:             "write a post",
		RequiredCapability: "generate_posts",
	})
	assert.NoError(t, err)

	expected := `
# HELP reasonmesh_agent_observations_total Outcome observations folded into each agent profile.
# TYPE reasonmesh_agent_observations_total counter
reasonmesh_agent_observations_total{agent_type="copywriter"} 1
# HELP reasonmesh_agent_success_rate EWMA success rate per agent type.
# TYPE reasonmesh_agent_success_rate gauge
reasonmesh_agent_success_rate{agent_type="copywriter"} 1
# HELP reasonmesh_cache_hits_total Total context cache hits.
# TYPE reasonmesh_cache_hits_total counter
reasonmesh_cache_hits_total 1
# HELP reasonmesh_cache_size Contexts currently cached.
# TYPE reasonmesh_cache_size gauge
reasonmesh_cache_size 1
# HELP reasonmesh_engine_inferences_total Total completed inferences.
# TYPE reasonmesh_engine_inferences_total counter
reasonmesh_engine_inferences_total 1
# HELP reasonmesh_router_decisions_total Total successful routing decisions.
# TYPE reasonmesh_router_decisions_total counter
reasonmesh_router_decisions_total 1
`

	err = testutil.CollectAndCompare(NewCollector(e), strings.NewReader(expected),
		"reasonmesh_agent_observations_total",
		"reasonmesh_agent_success_rate",
		"reasonmesh_cache_hits_total",
		"reasonmesh_cache_size",
		"reasonmesh_engine_inferences_total",
		"reasonmesh_router_decisions_total",
	)
	assert.NoError(t, err)
}

func TestCollector_StreamingCounters(t *testing.T) {
	e := engine.New()
	rc := e.CreateContext("session-1")

	result, err := e.ProcessInference(context.Background(), core.InferenceRequest{
		ContextID: rc.ID,
		Prompt:    "hello",
		Stream:    true,
	})
	assert.NoError(t, err)

	// Drain the stream so the completion is recorded.
	_, err = result.Stream.Text()
	assert.NoError(t, err)

	expected := `
# HELP reasonmesh_engine_active_inferences In-flight inferences, including unfinished streams.
# TYPE reasonmesh_engine_active_inferences gauge
reasonmesh_engine_active_inferences 0
# HELP reasonmesh_engine_streaming_inferences_total Total completed streaming inferences.
# TYPE reasonmesh_engine_streaming_inferences_total counter
reasonmesh_engine_streaming_inferences_total 1
`

	err = testutil.CollectAndCompare(NewCollector(e), strings.NewReader(expected),
		"reasonmesh_engine_active_inferences",
		"reasonmesh_engine_streaming_inferences_total",
	)
	assert.NoError(t, err)
}
