package router

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/reasonmesh/core"
	"github.com/hupe1980/reasonmesh/logging"
)

// Config holds the tunable scoring parameters of the router.
type Config struct {
	// Smoothing is the fraction of the previous average retained when a new
	// observation is folded into an agent's latency and success profile.
	Smoothing float64

	// SuccessWeight and LatencyWeight blend an agent's success rate and
	// normalized latency into its routing score.
	SuccessWeight float64
	LatencyWeight float64

	// UrgentSuccessWeight and UrgentLatencyWeight replace the default
	// weights for high and critical priority requests.
	UrgentSuccessWeight float64
	UrgentLatencyWeight float64
}

// DefaultConfig provides the calibrated routing defaults.
var DefaultConfig = Config{
	Smoothing:           0.8,
	SuccessWeight:       0.7,
	LatencyWeight:       0.3,
	UrgentSuccessWeight: 0.9,
	UrgentLatencyWeight: 0.1,
}

// Options configures a Router.
type Options struct {
	// Config supplies the scoring parameters. Defaults to DefaultConfig.
	Config Config

	// Logger receives registry changes and unroutable capabilities.
	Logger logging.Logger
}

// Router is a thread-safe capability registry with per-agent rolling
// performance profiles. It implements core.AgentRouter.
type Router struct {
	mu     sync.RWMutex
	agents map[string]*agentState

	config Config
	logger logging.Logger

	decisions  atomic.Int64
	unroutable atomic.Int64
}

// agentState is one agent's registration and performance profile. The
// embedded mutex guards the read-modify-write of the profile fields so
// concurrent outcome updates for the same agent do not lose observations.
type agentState struct {
	mu sync.Mutex

	agentType    string
	capabilities []string
	capSet       map[string]struct{}

	avgLatencyMs float64
	successRate  float64
	observations int64
}

// New creates an empty Router.
func New(optFns ...func(o *Options)) *Router {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Router{
		agents: make(map[string]*agentState),
		config: opts.Config,
		logger: opts.Logger,
	}
}

// Register upserts an agent type. Re-registering an existing type replaces
// its capability set but keeps the accumulated performance profile, so a
// process that refreshes its registrations does not lose routing history.
func (r *Router) Register(reg core.AgentRegistration) {
	caps := make([]string, 0, len(reg.Capabilities))
	capSet := make(map[string]struct{}, len(reg.Capabilities))

	for _, c := range reg.Capabilities {
		if _, ok := capSet[c]; ok {
			continue
		}

		capSet[c] = struct{}{}
		caps = append(caps, c)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if state, ok := r.agents[reg.AgentType]; ok {
		state.capabilities = caps
		state.capSet = capSet
		r.logger.Debug("agent re-registered", "agent_type", reg.AgentType, "capabilities", caps)

		return
	}

	r.agents[reg.AgentType] = &agentState{
		agentType:    reg.AgentType,
		capabilities: caps,
		capSet:       capSet,
		successRate:  1.0,
	}

	r.logger.Debug("agent registered", "agent_type", reg.AgentType, "capabilities", caps)
}

// FindBestAgent selects the highest scoring agent that serves the given
// capability. When no registered agent qualifies, the returned decision has
// Found set to false; the caller decides how to fall back.
func (r *Router) FindBestAgent(capability string, priority core.Priority) core.RouteDecision {
	successWeight := r.config.SuccessWeight
	latencyWeight := r.config.LatencyWeight

	if priority.Urgent() {
		successWeight = r.config.UrgentSuccessWeight
		latencyWeight = r.config.UrgentLatencyWeight
	}

	r.mu.RLock()

	var (
		best      *agentState
		bestScore float64
	)

	for _, state := range r.agents {
		if _, ok := state.capSet[capability]; !ok {
			continue
		}

		score := state.score(successWeight, latencyWeight)

		if best == nil || score > bestScore || (score == bestScore && moreSpecific(state, best)) {
			best, bestScore = state, score
		}
	}

	r.mu.RUnlock()

	if best == nil {
		r.unroutable.Add(1)
		r.logger.Debug("no agent for capability", "capability", capability)

		return core.RouteDecision{
			Reasoning: fmt.Sprintf("no registered agent serves capability %q", capability),
		}
	}

	r.decisions.Add(1)

	return core.RouteDecision{
		AgentType:  best.agentType,
		Found:      true,
		Score:      bestScore,
		Confidence: bestScore,
		Reasoning:  fmt.Sprintf("agent %q scored %.3f for capability %q", best.agentType, bestScore, capability),
	}
}

// UpdateAgentMetrics folds one observed execution into the agent's profile.
// Updates for unregistered agent types are silently dropped so routing never
// crashes on a stale identifier.
func (r *Router) UpdateAgentMetrics(agentType string, responseTime time.Duration, success bool) {
	r.mu.RLock()
	state, ok := r.agents[agentType]
	r.mu.RUnlock()

	if !ok {
		return
	}

	latencyMs := float64(responseTime) / float64(time.Millisecond)

	outcome := 0.0
	if success {
		outcome = 1.0
	}

	keep := r.config.Smoothing
	blend := 1.0 - keep

	state.mu.Lock()
	state.avgLatencyMs = keep*state.avgLatencyMs + blend*latencyMs
	state.successRate = keep*state.successRate + blend*outcome
	state.observations++
	state.mu.Unlock()
}

// Stats returns a snapshot of every agent profile, sorted by agent type,
// together with the decision counters.
func (r *Router) Stats() core.RouteStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]core.AgentProfile, 0, len(r.agents))
	for _, state := range r.agents {
		agents = append(agents, state.profile())
	}

	sort.Slice(agents, func(i, j int) bool { return agents[i].AgentType < agents[j].AgentType })

	return core.RouteStats{
		Agents:     agents,
		Decisions:  r.decisions.Load(),
		Unroutable: r.unroutable.Load(),
	}
}

// score computes the weighted blend of success rate and normalized latency.
// Latency is mapped into (0, 1] via 1/(1+latencyMs/1000) so a sub-second
// agent scores close to 1 and slower agents degrade smoothly.
func (s *agentState) score(successWeight, latencyWeight float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	latencyFactor := 1.0 / (1.0 + s.avgLatencyMs/1000.0)

	return successWeight*s.successRate + latencyWeight*latencyFactor
}

// profile snapshots the registration and profile fields.
func (s *agentState) profile() core.AgentProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	return core.AgentProfile{
		AgentType:         s.agentType,
		Capabilities:      append([]string(nil), s.capabilities...),
		AvgResponseTimeMs: s.avgLatencyMs,
		SuccessRate:       s.successRate,
		Observations:      s.observations,
	}
}

// moreSpecific is the deterministic tie-break between equally scored
// candidates: fewer declared capabilities wins, then lexical agent type.
// The comparison is a total order, so the winner does not depend on map
// iteration order.
func moreSpecific(candidate, incumbent *agentState) bool {
	if len(candidate.capabilities) != len(incumbent.capabilities) {
		return len(candidate.capabilities) < len(incumbent.capabilities)
	}

	return candidate.agentType < incumbent.agentType
}
