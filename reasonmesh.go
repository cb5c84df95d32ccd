// Package reasonmesh provides a high-level façade over the core Engine and
// its collaborators (context cache, agent router, model backends & logging)
// enabling rapid construction of context-aware inference pipelines. Most
// applications interact with this package by:
//  1. Creating a ReasonMesh via New() (optionally overriding the default cache, router, or model)
//  2. Registering agent types and the capabilities they serve
//  3. Processing inferences synchronously or as pull-based streams (ProcessInference)
//
// The façade delegates orchestration to engine.Engine while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a provider-backed model
// and a structured logger.
package reasonmesh

import (
	"context"

	"github.com/hupe1980/reasonmesh/core"
	"github.com/hupe1980/reasonmesh/engine"
	"github.com/hupe1980/reasonmesh/logging"
	"github.com/hupe1980/reasonmesh/model"
)

// Options configures the ReasonMesh instance.
type Options struct {
	// EngineConfig holds the engine configuration (history window,
	// concurrency, streaming, buffers).
	EngineConfig engine.Config

	// Cache stores reasoning contexts (defaults to an in-memory LRU cache
	// if not provided).
	Cache core.ContextCache

	// Router selects agents by capability (defaults to an empty EWMA
	// router if not provided).
	Router core.AgentRouter

	// Model is the default model backend (defaults to a deterministic mock
	// if not provided).
	Model model.Model

	// Callbacks runs lifecycle hooks around each inference. Optional.
	Callbacks *engine.CallbackManager

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// ReasonMesh is the high-level façade aggregating the underlying engine and
// its collaborators.
type ReasonMesh struct {
	opts   Options
	engine *engine.Engine
}

// New creates a new ReasonMesh instance with optional overrides. Any unset
// collaborator is initialized with its in-memory default.
func New(optFns ...func(o *Options)) *ReasonMesh {
	opts := Options{
		EngineConfig: engine.DefaultConfig,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	e := engine.New(func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Cache = opts.Cache
		o.Router = opts.Router
		o.Model = opts.Model
		o.Callbacks = opts.Callbacks
		o.Logger = opts.Logger
	})

	return &ReasonMesh{opts: opts, engine: e}
}

// CreateContext creates and caches a reasoning context for the session.
func (m *ReasonMesh) CreateContext(sessionID string, optFns ...func(o *core.ContextOptions)) *core.ReasoningContext {
	return m.engine.CreateContext(sessionID, optFns...)
}

// GetContext returns the cached context for the id. Returns a
// core.ContextNotFoundError when the id is absent or evicted.
func (m *ReasonMesh) GetContext(contextID string) (*core.ReasoningContext, error) {
	return m.engine.GetContext(contextID)
}

// AddToContext appends an entry to the identified context.
func (m *ReasonMesh) AddToContext(contextID string, entry core.ContextEntry) error {
	return m.engine.AddToContext(contextID, entry)
}

// RegisterAgentType declares an agent type and the capabilities it serves.
func (m *ReasonMesh) RegisterAgentType(agentType string, capabilities ...string) {
	m.engine.RegisterAgentType(agentType, capabilities...)
}

// RegisterAgentModel binds a dedicated model backend to an agent type.
func (m *ReasonMesh) RegisterAgentModel(agentType string, mdl model.Model) {
	m.engine.RegisterAgentModel(agentType, mdl)
}

// ProcessInference runs the unified inference pipeline.
func (m *ReasonMesh) ProcessInference(ctx context.Context, req core.InferenceRequest) (*core.InferenceResult, error) {
	return m.engine.ProcessInference(ctx, req)
}

// ProcessPrompt is a synchronous helper that records the prompt as a
// user_input history entry and runs a default-path inference against the
// context.
func (m *ReasonMesh) ProcessPrompt(ctx context.Context, contextID, prompt string) (*core.InferenceResult, error) {
	if err := m.engine.AddToContext(contextID, core.ContextEntry{
		Type:    core.EntryTypeUserInput,
		Content: prompt,
		Tokens:  core.EstimateTokens(prompt),
	}); err != nil {
		return nil, err
	}

	return m.engine.ProcessInference(ctx, core.InferenceRequest{
		ContextID: contextID,
		Prompt:    prompt,
	})
}

// CancelInference cancels the identified in-flight inference.
func (m *ReasonMesh) CancelInference(inferenceID string) error {
	return m.engine.CancelInference(inferenceID)
}

// Metrics returns the engine-wide observability snapshot.
func (m *ReasonMesh) Metrics() core.EngineMetrics {
	return m.engine.Metrics()
}

// RouteStats returns the router's observability snapshot.
func (m *ReasonMesh) RouteStats() core.RouteStats {
	return m.engine.RouteStats()
}

// Cleanup releases engine resources. Agent registrations survive.
func (m *ReasonMesh) Cleanup() {
	m.engine.Cleanup()
}
