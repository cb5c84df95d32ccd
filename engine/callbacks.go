package engine

import (
	"context"
	"sync"

	"github.com/hupe1980/reasonmesh/core"
	"github.com/hupe1980/reasonmesh/logging"
)

// CallbackType identifies the lifecycle point at which a callback runs.
type CallbackType string

const (
	// CallbackBeforeInference runs after agent resolution and before the
	// model backend is invoked. An error returned here vetoes the
	// inference and is surfaced to the caller unchanged.
	CallbackBeforeInference CallbackType = "before_inference"

	// CallbackAfterInference runs once an inference has completed and its
	// outcome has been recorded. Errors are logged but never affect the
	// already-returned result.
	CallbackAfterInference CallbackType = "after_inference"

	// CallbackOnInferenceError runs when the model backend fails. Errors
	// from the callback itself are logged and discarded so the original
	// failure always reaches the caller.
	CallbackOnInferenceError CallbackType = "on_inference_error"
)

// CallbackContext carries the state visible to a callback at its
// lifecycle point. Fields are populated according to the callback type:
// Request is always set for before-inference callbacks, Result only for
// after-inference callbacks, and Err only for error callbacks.
type CallbackContext struct {
	// Request is the inference request being processed.
	Request *core.InferenceRequest

	// Result is the completed inference result, when one exists.
	Result *core.InferenceResult

	// ContextID identifies the reasoning context of the inference.
	ContextID string

	// AgentType is the resolved agent handling the inference.
	AgentType string

	// CallbackType is the lifecycle point being executed.
	CallbackType CallbackType

	// Err is the failure that triggered an error callback.
	Err error

	// Metadata carries optional callback-specific values.
	Metadata map[string]interface{}
}

// Callback is the interface implemented by inference lifecycle hooks.
type Callback interface {
	// Execute runs the callback logic for the given lifecycle point.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error

	// Name returns a human-readable identifier used in logs.
	Name() string
}

// FunctionCallback adapts a plain function into a Callback.
type FunctionCallback struct {
	name string
	fn   func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a callback backed by the given function.
func NewFunctionCallback(name string, fn func(ctx context.Context, callbackCtx *CallbackContext) error) *FunctionCallback {
	return &FunctionCallback{
		name: name,
		fn:   fn,
	}
}

// Execute invokes the wrapped function.
func (fc *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return fc.fn(ctx, callbackCtx)
}

// Name returns the callback identifier.
func (fc *FunctionCallback) Name() string {
	return fc.name
}

// CallbackManager registers callbacks per lifecycle point and executes
// them in registration order. It is safe for concurrent use.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
	logger    logging.Logger
}

// NewCallbackManager creates an empty callback manager.
func NewCallbackManager(logger logging.Logger) *CallbackManager {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
		logger:    logger,
	}
}

// RegisterCallback adds a callback for the given lifecycle point.
func (cm *CallbackManager) RegisterCallback(callbackType CallbackType, callback Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)

	cm.logger.Debug("Callback registered", "type", string(callbackType), "name", callback.Name())
}

// ExecuteCallbacks runs all callbacks registered for the lifecycle point
// in registration order. The first error stops execution and is returned.
func (cm *CallbackManager) ExecuteCallbacks(ctx context.Context, callbackType CallbackType, callbackCtx *CallbackContext) error {
	cm.mu.RLock()
	callbacks := cm.callbacks[callbackType]
	cm.mu.RUnlock()

	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			cm.logger.Debug("Callback returned error", "type", string(callbackType), "name", callback.Name(), "error", err)

			return err
		}
	}

	return nil
}

// LoggingCallback logs inference lifecycle events. Register it for any
// callback type to obtain an audit trail of the pipeline.
type LoggingCallback struct {
	logger logging.Logger
}

// NewLoggingCallback creates a callback that writes lifecycle events to
// the given logger.
func NewLoggingCallback(logger logging.Logger) *LoggingCallback {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &LoggingCallback{logger: logger}
}

// Execute logs the lifecycle event with its inference coordinates.
func (lc *LoggingCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	switch callbackCtx.CallbackType {
	case CallbackBeforeInference:
		lc.logger.Info("Inference starting", "context_id", callbackCtx.ContextID, "agent_type", callbackCtx.AgentType)
	case CallbackAfterInference:
		lc.logger.Info("Inference completed", "context_id", callbackCtx.ContextID, "agent_type", callbackCtx.AgentType)
	case CallbackOnInferenceError:
		lc.logger.Error("Inference failed", "context_id", callbackCtx.ContextID, "agent_type", callbackCtx.AgentType, "error", callbackCtx.Err)
	}

	return nil
}

// Name returns the callback identifier.
func (lc *LoggingCallback) Name() string {
	return "logging_callback"
}
