package core

import "context"

// EngineMetrics is an engine-wide observability snapshot.
//
// AvgLatencyMs is an incrementally maintained running average over completed
// inferences (memory-bounded, never recomputed from a stored list).
// StreamingInferences counts completed streaming requests separately;
// ActiveInferences gauges in-flight work, including streams that have not
// finished producing.
type EngineMetrics struct {
	TotalInferences     int64        `json:"total_inferences"`
	AvgLatencyMs        float64      `json:"avg_latency_ms"`
	ActiveInferences    int          `json:"active_inferences"`
	StreamingInferences int64        `json:"streaming_inferences"`
	Cache               CacheMetrics `json:"cache"`
}

// ContextOptions carries the optional correlation fields and overrides
// accepted when creating a context.
type ContextOptions struct {
	// UserID correlates the context to a user. Opaque to the engine.
	UserID string
	// CampaignID correlates the context to a campaign. Opaque to the engine.
	CampaignID string
	// Priority overrides the default (medium) priority.
	Priority Priority
	// Metadata seeds the context metadata map.
	Metadata map[string]any
}

// Engine is the orchestration façade combining a context cache and an agent
// router into a context-aware inference pipeline.
//
// A concrete implementation is responsible for:
//   - Context lifecycle: creation, history mutation, implicit LRU eviction
//   - Agent resolution: explicit agent type, capability routing, or a
//     default execution path, never failing on routing ambiguity alone
//   - Executing inferences synchronously or as pull-based streams against an
//     opaque model collaborator
//   - Folding outcomes back into context history, router profiles, and
//     engine-wide metrics
//
// Implementations SHOULD:
//   - Surface context-lifecycle misses as ContextNotFoundError, the only
//     engine-typed error, and propagate execution errors unchanged
//   - Allow operations on different context ids to proceed fully in parallel
//   - Propagate context cancellation into streaming production so abandoned
//     streams do not leak resources
type Engine interface {
	// CreateContext creates and caches a fresh context for the session.
	CreateContext(sessionID string, optFns ...func(o *ContextOptions)) *ReasoningContext

	// AddToContext appends an entry to the identified context, trimming the
	// oldest entries beyond the history window. Returns a
	// ContextNotFoundError when the id is absent.
	AddToContext(contextID string, entry ContextEntry) error

	// RegisterAgentType declares an agent type and its capabilities,
	// delegating to the router (idempotent upsert).
	RegisterAgentType(agentType string, capabilities ...string)

	// ProcessInference runs the unified inference pipeline. Streaming
	// requests return a result carrying a single-pass Stream; synchronous
	// requests return the produced content directly.
	ProcessInference(ctx context.Context, req InferenceRequest) (*InferenceResult, error)

	// Metrics returns the engine-wide metrics snapshot, including the
	// cache's own accounting.
	Metrics() EngineMetrics

	// RouteStats returns the router's observability snapshot.
	RouteStats() RouteStats

	// Cleanup releases engine resources: in-flight inferences are cancelled,
	// cached contexts discarded, counters reset. Agent registrations
	// survive; re-register to replace them.
	Cleanup()
}
