package core

import "time"

// AgentRegistration declares an agent type and the capability tags it serves.
// Registration is an idempotent upsert: re-registering an agentType replaces
// its capability set without resetting accumulated performance metrics.
type AgentRegistration struct {
	AgentType    string   `json:"agent_type"`
	Capabilities []string `json:"capabilities"`
}

// AgentProfile is a read-only snapshot of one agent's registration and
// rolling performance record.
//
// AvgResponseTimeMs and SuccessRate are exponentially weighted moving
// averages starting from neutral priors (0 ms, 1.0) until the first real
// observation. Observations counts metric updates received.
type AgentProfile struct {
	AgentType         string   `json:"agent_type"`
	Capabilities      []string `json:"capabilities"`
	AvgResponseTimeMs float64  `json:"avg_response_time_ms"`
	SuccessRate       float64  `json:"success_rate"`
	Observations      int64    `json:"observations"`
}

// RouteDecision is the outcome of a routing attempt. An unroutable
// capability is a normal result, not an error: Found is false and AgentType
// is empty, leaving the fallback policy to the caller.
type RouteDecision struct {
	AgentType  string  `json:"agent_type,omitempty"`
	Found      bool    `json:"found"`
	Score      float64 `json:"score,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// RouteStats is an observability snapshot of the router: per-agent profiles
// (sorted by agent type) plus decision counters.
type RouteStats struct {
	Agents     []AgentProfile `json:"agents"`
	Decisions  int64          `json:"decisions"`
	Unroutable int64          `json:"unroutable"`
}

// AgentRouter maintains the capability registry and selects the best-fit
// agent for a requested capability.
//
// Implementations MUST:
//   - Treat Register as an idempotent upsert preserving metrics
//   - Return a not-found decision (never an error) when no registered agent
//     serves the capability
//   - Score candidates by success rate (higher better) and average latency
//     (lower better), weighting success rate more under urgent priorities
//   - Break ties deterministically: fewer declared capabilities first, then
//     lexical agent type
//   - Apply metric updates as a guarded read-modify-write per agent record,
//     and ignore updates for unregistered agent types
type AgentRouter interface {
	// Register upserts an agent registration.
	Register(reg AgentRegistration)

	// FindBestAgent selects the best registered agent for the capability,
	// biased by the given priority.
	FindBestAgent(capability string, priority Priority) RouteDecision

	// UpdateAgentMetrics folds one observed execution (latency + outcome)
	// into the agent's EWMA profile. Unregistered agent types are a no-op.
	UpdateAgentMetrics(agentType string, responseTime time.Duration, success bool)

	// Stats returns a read-only snapshot for observability.
	Stats() RouteStats
}
