package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/reasonmesh/cache"
	"github.com/hupe1980/reasonmesh/core"
	"github.com/hupe1980/reasonmesh/logging"
	"github.com/hupe1980/reasonmesh/model"
	"github.com/hupe1980/reasonmesh/router"
	"golang.org/x/sync/semaphore"
)

// Config contains engine-level configuration parameters.
type Config struct {
	// HistoryWindow is the maximum number of entries retained per context.
	// Zero falls back to core.DefaultHistoryWindow.
	HistoryWindow int

	// MaxConcurrentInferences bounds the number of inferences executing at
	// once. Zero means unlimited.
	MaxConcurrentInferences int

	// EnableStreaming controls whether streaming requests are honored.
	// When false, requests with Stream set are executed synchronously.
	EnableStreaming bool

	// FragmentBufferSize is the capacity of each stream's fragment channel.
	// Zero yields an unbuffered channel, delivering fragments in strict
	// lockstep with the consumer.
	FragmentBufferSize int

	// DefaultAgentType labels inferences that name no agent type and
	// resolve no capability. It needs no registration.
	DefaultAgentType string
}

// DefaultConfig provides sensible defaults for the engine.
var DefaultConfig = Config{
	HistoryWindow:           core.DefaultHistoryWindow,
	MaxConcurrentInferences: 0,
	EnableStreaming:         true,
	FragmentBufferSize:      64,
	DefaultAgentType:        "generalist",
}

// Options configures the engine's collaborators.
type Options struct {
	// Config holds the engine configuration parameters.
	Config Config

	// Cache stores reasoning contexts. Defaults to an LRU cache with
	// default capacity.
	Cache core.ContextCache

	// Router selects agents by capability. Defaults to an empty EWMA
	// router.
	Router core.AgentRouter

	// Model is the backend used for agent types without a dedicated
	// binding. Defaults to a deterministic mock model.
	Model model.Model

	// Logger receives engine diagnostics. Defaults to a no-op logger.
	Logger logging.Logger

	// Callbacks runs lifecycle hooks around each inference. Optional.
	Callbacks *CallbackManager
}

// Engine coordinates contexts, routing, and model execution. It implements
// the core.Engine interface and is safe for concurrent use.
type Engine struct {
	cache     core.ContextCache
	router    core.AgentRouter
	model     model.Model
	logger    logging.Logger
	config    Config
	callbacks *CallbackManager

	// models binds agent types to dedicated backends.
	modelsMu sync.RWMutex
	models   map[string]model.Model

	// activeInferences tracks cancel functions for in-flight work.
	inferencesMu     sync.RWMutex
	activeInferences map[string]context.CancelFunc

	// stats accumulates completed-inference accounting.
	statsMu sync.Mutex
	stats   inferenceStats

	// sem bounds concurrency when MaxConcurrentInferences > 0.
	sem *semaphore.Weighted
}

// inferenceStats holds the running counters behind Metrics. AvgLatencyMs is
// maintained incrementally so no per-inference history is stored.
type inferenceStats struct {
	total        int64
	streaming    int64
	avgLatencyMs float64
}

// New creates an engine with the given options applied.
//
// Example:
//
//	e := engine.New(func(o *engine.Options) {
//		o.Model = openai.NewModel()
//		o.Config.MaxConcurrentInferences = 8
//	})
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config: DefaultConfig,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Cache == nil {
		opts.Cache = cache.New()
	}

	if opts.Router == nil {
		opts.Router = router.New()
	}

	if opts.Model == nil {
		opts.Model = model.NewMockModel("mock", "mock")
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	e := &Engine{
		cache:            opts.Cache,
		router:           opts.Router,
		model:            opts.Model,
		logger:           opts.Logger,
		config:           opts.Config,
		callbacks:        opts.Callbacks,
		models:           make(map[string]model.Model),
		activeInferences: make(map[string]context.CancelFunc),
	}

	if opts.Config.MaxConcurrentInferences > 0 {
		e.sem = semaphore.NewWeighted(int64(opts.Config.MaxConcurrentInferences))
	}

	return e
}

// CreateContext creates a reasoning context for the given session, applies
// the optional overrides, and stores it in the cache. Creating a context at
// capacity evicts the least recently used one.
func (e *Engine) CreateContext(sessionID string, optFns ...func(o *core.ContextOptions)) *core.ReasoningContext {
	opts := core.ContextOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	rc := core.NewReasoningContext(core.NewID(), sessionID)
	rc.UserID = opts.UserID
	rc.CampaignID = opts.CampaignID

	if opts.Priority != "" {
		rc.Priority = opts.Priority
	}

	for k, v := range opts.Metadata {
		rc.SetMetadata(k, v)
	}

	e.cache.Set(rc)

	e.logger.Debug("Context created", "context_id", rc.ID, "session_id", sessionID, "priority", string(rc.Priority))

	return rc
}

// GetContext returns the cached context for the id. The lookup counts
// toward cache hit/miss metrics and refreshes the context's recency.
// Returns a core.ContextNotFoundError when the id is absent or evicted.
func (e *Engine) GetContext(contextID string) (*core.ReasoningContext, error) {
	rc, ok := e.cache.Get(contextID)
	if !ok {
		return nil, &core.ContextNotFoundError{ContextID: contextID}
	}

	return rc, nil
}

// AddToContext appends an entry to the identified context, trimming the
// oldest entries beyond the configured history window. Returns a
// core.ContextNotFoundError when the id is absent or evicted.
func (e *Engine) AddToContext(contextID string, entry core.ContextEntry) error {
	rc, ok := e.cache.Get(contextID)
	if !ok {
		return &core.ContextNotFoundError{ContextID: contextID}
	}

	rc.Append(entry, e.config.HistoryWindow)

	return nil
}

// RegisterAgentType declares an agent type and the capabilities it serves.
// Registration is an idempotent upsert: re-registering replaces the
// capability set but keeps the accumulated performance profile.
func (e *Engine) RegisterAgentType(agentType string, capabilities ...string) {
	e.router.Register(core.AgentRegistration{
		AgentType:    agentType,
		Capabilities: capabilities,
	})

	e.logger.Debug("Agent type registered", "agent_type", agentType, "capabilities", strings.Join(capabilities, ","))
}

// RegisterAgentModel binds a dedicated model backend to an agent type.
// Inferences resolved to that agent type use the bound backend instead of
// the engine default.
func (e *Engine) RegisterAgentModel(agentType string, m model.Model) {
	e.modelsMu.Lock()
	defer e.modelsMu.Unlock()

	e.models[agentType] = m
}

// ProcessInference runs the unified inference pipeline.
//
// The pipeline stages are:
//
//  1. Resolve the reasoning context from the cache.
//  2. Resolve the agent type: an explicit AgentType wins, otherwise the
//     router picks the best-scoring agent for RequiredCapability, otherwise
//     the default agent type labels the inference.
//  3. Run before-inference callbacks; an error vetoes the inference.
//  4. Render template markers in the prompt against the context's metadata
//     and correlation fields, assemble the payload from the context history,
//     and dispatch it to the agent's model backend.
//
// Synchronous requests block until the backend finishes and return a result
// with Content, Usage, and Latency populated. The produced content is
// appended to the context history and the outcome is folded into the
// router's profile for the agent.
//
// Streaming requests return immediately with Result.Stream attached; the
// same accounting happens once the stream is exhausted. A stream abandoned
// through context cancellation records nothing.
//
// Execution errors from the backend are returned unchanged. A malformed
// prompt template fails the request before any backend call. The only
// engine-typed error is core.ContextNotFoundError for an unknown context.
func (e *Engine) ProcessInference(ctx context.Context, req core.InferenceRequest) (*core.InferenceResult, error) {
	rc, ok := e.cache.Get(req.ContextID)
	if !ok {
		e.logger.Warn("Inference against unknown context", "context_id", req.ContextID)

		return nil, &core.ContextNotFoundError{ContextID: req.ContextID}
	}

	agentType, decision := e.resolveAgent(&req, rc)

	if err := e.executeCallbacks(ctx, CallbackBeforeInference, &CallbackContext{
		Request:      &req,
		ContextID:    rc.ID,
		AgentType:    agentType,
		CallbackType: CallbackBeforeInference,
	}); err != nil {
		return nil, err
	}

	rendered, err := renderPrompt(rc, req.Prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}

	prompt := assemblePrompt(rc.HistorySnapshot(), rendered)

	if e.sem != nil {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}

	inferenceID := core.NewID()
	infCtx, cancel := context.WithCancel(ctx)

	e.inferencesMu.Lock()
	e.activeInferences[inferenceID] = cancel
	e.inferencesMu.Unlock()

	mreq := model.Request{
		Prompt: prompt,
		Params: req.Params,
		Stream: req.Stream && e.config.EnableStreaming,
	}

	m := e.modelFor(agentType)

	if mreq.Stream {
		return e.processStreaming(infCtx, inferenceID, rc, m, mreq, agentType, decision), nil
	}

	return e.processSync(infCtx, inferenceID, rc, m, mreq, agentType, decision)
}

// CancelInference cancels the identified in-flight inference. The cancelled
// inference observes the cancellation through its context; a streaming
// consumer sees its stream end.
func (e *Engine) CancelInference(inferenceID string) error {
	e.inferencesMu.RLock()
	cancel, exists := e.activeInferences[inferenceID]
	e.inferencesMu.RUnlock()

	if !exists {
		return fmt.Errorf("inference %s not found", inferenceID)
	}

	cancel()

	return nil
}

// Metrics returns the engine-wide observability snapshot, including the
// cache's own accounting.
func (e *Engine) Metrics() core.EngineMetrics {
	e.statsMu.Lock()
	stats := e.stats
	e.statsMu.Unlock()

	e.inferencesMu.RLock()
	active := len(e.activeInferences)
	e.inferencesMu.RUnlock()

	return core.EngineMetrics{
		TotalInferences:     stats.total,
		AvgLatencyMs:        stats.avgLatencyMs,
		ActiveInferences:    active,
		StreamingInferences: stats.streaming,
		Cache:               e.cache.Metrics(),
	}
}

// RouteStats returns the router's observability snapshot.
func (e *Engine) RouteStats() core.RouteStats {
	return e.router.Stats()
}

// Cleanup cancels all in-flight inferences, discards cached contexts, and
// resets the engine counters. Agent registrations and model bindings
// survive; re-register to replace them.
func (e *Engine) Cleanup() {
	e.inferencesMu.RLock()
	for _, cancel := range e.activeInferences {
		cancel()
	}
	e.inferencesMu.RUnlock()

	e.cache.Purge()

	e.statsMu.Lock()
	e.stats = inferenceStats{}
	e.statsMu.Unlock()

	e.logger.Info("Engine cleaned up")
}

// resolveAgent maps a request to an agent type. An explicit AgentType is
// honored without consulting the router. Routing failures fall back to the
// default agent type so ambiguity alone never fails an inference.
func (e *Engine) resolveAgent(req *core.InferenceRequest, rc *core.ReasoningContext) (string, core.RouteDecision) {
	if req.AgentType != "" {
		return req.AgentType, core.RouteDecision{}
	}

	if req.RequiredCapability == "" {
		return e.config.DefaultAgentType, core.RouteDecision{}
	}

	priority := req.Priority
	if priority == "" {
		priority = rc.EffectivePriority()
	}

	decision := e.router.FindBestAgent(req.RequiredCapability, priority)

	e.logger.Debug("Route decision", "capability", req.RequiredCapability, "agent_type", decision.AgentType, "found", decision.Found, "score", decision.Score)

	if !decision.Found {
		return e.config.DefaultAgentType, decision
	}

	return decision.AgentType, decision
}

// modelFor returns the backend bound to the agent type, falling back to the
// engine default.
func (e *Engine) modelFor(agentType string) model.Model {
	e.modelsMu.RLock()
	defer e.modelsMu.RUnlock()

	if m, ok := e.models[agentType]; ok {
		return m
	}

	return e.model
}

// processSync executes the request to completion and returns the populated
// result. Failure is fed into the router profile and returned unchanged.
func (e *Engine) processSync(ctx context.Context, inferenceID string, rc *core.ReasoningContext, m model.Model, mreq model.Request, agentType string, decision core.RouteDecision) (*core.InferenceResult, error) {
	defer e.finishInference(inferenceID)

	start := time.Now()

	respCh, errCh := m.Generate(ctx, mreq)

	text, usage, finishReason, err := collectResponse(ctx, respCh, errCh)

	latency := time.Since(start)

	if err != nil {
		e.router.UpdateAgentMetrics(agentType, latency, false)

		e.logger.Warn("Inference failed", "inference_id", inferenceID, "context_id", rc.ID, "agent_type", agentType, "error", err)

		e.runErrorCallbacks(ctx, rc.ID, agentType, err)

		return nil, err
	}

	rc.Append(core.ContextEntry{
		Type:    core.EntryTypeAgentOutput,
		Content: text,
		Tokens:  completionTokens(usage, text),
	}, e.config.HistoryWindow)

	e.router.UpdateAgentMetrics(agentType, latency, true)
	e.recordInference(latency, false)

	result := &core.InferenceResult{
		ID:           inferenceID,
		ContextID:    rc.ID,
		AgentType:    agentType,
		Content:      text,
		Latency:      latency,
		Confidence:   decision.Confidence,
		FinishReason: finishReason,
	}

	if usage != nil {
		result.Usage = *usage
	}

	e.logger.Debug("Inference completed", "inference_id", inferenceID, "context_id", rc.ID, "agent_type", agentType, "latency_ms", latency.Milliseconds())

	if err := e.executeCallbacks(ctx, CallbackAfterInference, &CallbackContext{
		Result:       result,
		ContextID:    rc.ID,
		AgentType:    agentType,
		CallbackType: CallbackAfterInference,
	}); err != nil {
		e.logger.Warn("After-inference callback failed", "inference_id", inferenceID, "error", err)
	}

	return result, nil
}

// processStreaming starts the producer goroutine and returns a result
// carrying the live stream. Content, Usage, and Latency stay zero on the
// returned result; they are folded into the engine metrics when the stream
// completes.
func (e *Engine) processStreaming(ctx context.Context, inferenceID string, rc *core.ReasoningContext, m model.Model, mreq model.Request, agentType string, decision core.RouteDecision) *core.InferenceResult {
	fragments := make(chan core.Fragment, e.config.FragmentBufferSize)
	errs := make(chan error, 1)

	go e.produceStream(ctx, inferenceID, rc, m, mreq, agentType, fragments, errs)

	return &core.InferenceResult{
		ID:         inferenceID,
		ContextID:  rc.ID,
		AgentType:  agentType,
		Stream:     core.NewStream(fragments, errs),
		Confidence: decision.Confidence,
	}
}

// produceStream forwards backend output to the stream channels. On normal
// exhaustion the concatenated text is appended to the context and the
// outcome recorded; on cancellation nothing is recorded.
func (e *Engine) produceStream(ctx context.Context, inferenceID string, rc *core.ReasoningContext, m model.Model, mreq model.Request, agentType string, fragments chan<- core.Fragment, errs chan<- error) {
	// finishInference must run before the channels close so a consumer
	// unblocked by the close observes final counters.
	defer close(fragments)
	defer close(errs)
	defer e.finishInference(inferenceID)

	start := time.Now()

	respCh, errCh := m.Generate(ctx, mreq)

	var (
		sb         strings.Builder
		usage      *core.TokenUsage
		sawPartial bool
	)

	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return

		case resp, ok := <-respCh:
			if !ok {
				respCh = nil

				continue
			}

			if resp.Partial {
				sawPartial = true

				sb.WriteString(resp.Text)

				select {
				case fragments <- core.Fragment{Text: resp.Text}:
				case <-ctx.Done():
					return
				}

				continue
			}

			usage = resp.Usage

			// Backends that never emitted partials deliver everything in
			// the final response; forward it as a single fragment.
			if !sawPartial && resp.Text != "" {
				sb.WriteString(resp.Text)

				select {
				case fragments <- core.Fragment{Text: resp.Text}:
				case <-ctx.Done():
					return
				}
			}

		case err, ok := <-errCh:
			if !ok {
				errCh = nil

				continue
			}

			// A cancelled context can surface through the backend's error
			// channel as well; abandoned streams record nothing.
			if ctx.Err() != nil {
				return
			}

			e.router.UpdateAgentMetrics(agentType, time.Since(start), false)

			e.logger.Warn("Streaming inference failed", "inference_id", inferenceID, "context_id", rc.ID, "agent_type", agentType, "error", err)

			e.runErrorCallbacks(ctx, rc.ID, agentType, err)

			errs <- err

			return
		}
	}

	latency := time.Since(start)
	text := sb.String()

	rc.Append(core.ContextEntry{
		Type:    core.EntryTypeAgentOutput,
		Content: text,
		Tokens:  completionTokens(usage, text),
	}, e.config.HistoryWindow)

	e.router.UpdateAgentMetrics(agentType, latency, true)
	e.recordInference(latency, true)

	e.logger.Debug("Streaming inference completed", "inference_id", inferenceID, "context_id", rc.ID, "agent_type", agentType, "latency_ms", latency.Milliseconds())

	if err := e.executeCallbacks(ctx, CallbackAfterInference, &CallbackContext{
		ContextID:    rc.ID,
		AgentType:    agentType,
		CallbackType: CallbackAfterInference,
	}); err != nil {
		e.logger.Warn("After-inference callback failed", "inference_id", inferenceID, "error", err)
	}
}

// finishInference releases the bookkeeping for a completed inference. It is
// called exactly once per started inference.
func (e *Engine) finishInference(inferenceID string) {
	e.inferencesMu.Lock()
	if cancel, ok := e.activeInferences[inferenceID]; ok {
		delete(e.activeInferences, inferenceID)
		cancel()
	}
	e.inferencesMu.Unlock()

	if e.sem != nil {
		e.sem.Release(1)
	}
}

// recordInference folds one completed inference into the running counters.
func (e *Engine) recordInference(latency time.Duration, streaming bool) {
	ms := float64(latency) / float64(time.Millisecond)

	e.statsMu.Lock()
	defer e.statsMu.Unlock()

	e.stats.total++
	e.stats.avgLatencyMs += (ms - e.stats.avgLatencyMs) / float64(e.stats.total)

	if streaming {
		e.stats.streaming++
	}
}

// executeCallbacks runs the registered callbacks for the lifecycle point,
// tolerating a nil manager.
func (e *Engine) executeCallbacks(ctx context.Context, callbackType CallbackType, callbackCtx *CallbackContext) error {
	if e.callbacks == nil {
		return nil
	}

	return e.callbacks.ExecuteCallbacks(ctx, callbackType, callbackCtx)
}

// runErrorCallbacks runs error callbacks without letting their failures mask
// the original error.
func (e *Engine) runErrorCallbacks(ctx context.Context, contextID, agentType string, err error) {
	if cbErr := e.executeCallbacks(ctx, CallbackOnInferenceError, &CallbackContext{
		ContextID:    contextID,
		AgentType:    agentType,
		CallbackType: CallbackOnInferenceError,
		Err:          err,
	}); cbErr != nil {
		e.logger.Warn("Error callback failed", "context_id", contextID, "error", cbErr)
	}
}

// collectResponse drains the backend channels until both close, keeping the
// last non-partial response. Partial responses are ignored on the
// synchronous path since the final response carries the full text.
func collectResponse(ctx context.Context, respCh <-chan model.Response, errCh <-chan error) (string, *core.TokenUsage, string, error) {
	var (
		text         string
		usage        *core.TokenUsage
		finishReason string
	)

	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return "", nil, "", ctx.Err()

		case resp, ok := <-respCh:
			if !ok {
				respCh = nil

				continue
			}

			if resp.Partial {
				continue
			}

			text = resp.Text
			usage = resp.Usage
			finishReason = resp.FinishReason

		case err, ok := <-errCh:
			if !ok {
				errCh = nil

				continue
			}

			return "", nil, "", err
		}
	}

	return text, usage, finishReason, nil
}

// completionTokens picks the backend-reported completion tokens, falling
// back to a heuristic estimate when the backend reported none.
func completionTokens(usage *core.TokenUsage, text string) int {
	if usage != nil && usage.CompletionTokens > 0 {
		return usage.CompletionTokens
	}

	return core.EstimateTokens(text)
}
