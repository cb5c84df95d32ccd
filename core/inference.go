package core

import "time"

// GenerationParams carries per-request generation tuning handed through to
// the model collaborator. Zero values defer to the provider's defaults.
type GenerationParams struct {
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// TokenUsage captures token usage statistics reported by a model provider.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// InferenceRequest is the value object accepted by the engine's unified
// inference entry point.
//
// Agent resolution: an explicit AgentType short-circuits routing; otherwise
// RequiredCapability (when set) drives router selection; when neither
// resolves an agent the engine falls back to its default execution path.
type InferenceRequest struct {
	ContextID          string           `json:"context_id"`
	Prompt             string           `json:"prompt"`
	AgentType          string           `json:"agent_type,omitempty"`
	RequiredCapability string           `json:"required_capability,omitempty"`
	Priority           Priority         `json:"priority,omitempty"`
	Stream             bool             `json:"stream,omitempty"`
	Params             GenerationParams `json:"params,omitempty"`
}

// InferenceResult is the outcome of a single inference.
//
// For synchronous requests Content holds the full produced text and Stream is
// nil. For streaming requests Stream holds the lazy fragment sequence,
// Content is empty, and Usage/Latency are folded into engine metrics when the
// stream completes rather than reported here.
//
// Cached is always false in the current design: the context cache stores
// reasoning contexts, not inference outputs, so results are never served from
// cache.
type InferenceResult struct {
	ID           string        `json:"id"`
	ContextID    string        `json:"context_id"`
	AgentType    string        `json:"agent_type"`
	Content      string        `json:"content,omitempty"`
	Stream       *Stream       `json:"-"`
	Usage        TokenUsage    `json:"usage"`
	Latency      time.Duration `json:"latency"`
	Cached       bool          `json:"cached"`
	Confidence   float64       `json:"confidence,omitempty"`
	FinishReason string        `json:"finish_reason,omitempty"`
}
