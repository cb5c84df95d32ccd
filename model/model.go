package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/reasonmesh/core"
)

// Request captures the normalized model input assembled by the engine.
type Request struct {
	// Instructions carry system-level guidance for the exchange.
	Instructions string `json:"instructions,omitempty"`

	// Prompt is the assembled context payload plus the caller's prompt.
	Prompt string `json:"prompt"`

	// Params tune the generation call. Zero values fall back to the
	// provider adapter's configured defaults.
	Params core.GenerationParams `json:"params"`

	// Stream requests incremental partial responses ahead of the final one.
	Stream bool `json:"stream,omitempty"`
}

// Response is a (partial or final) chunk emitted by a model.
type Response struct {
	// Partial marks an incremental fragment; the final response carries the
	// full text and, when the provider reports it, the token usage.
	Partial      bool             `json:"partial"`
	Text         string           `json:"text"`
	FinishReason string           `json:"finish_reason,omitempty"` // "stop", "length", etc.
	Usage        *core.TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "gemini", "mock", etc.
}

// Model is the minimal interface required by the engine to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// cannedRule matches prompts by substring and yields either a canned
// completion or an injected error. Rules are evaluated in insertion order.
type cannedRule struct {
	match    string
	response string
	err      error
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Its output is a pure function of the request, so streaming and
// non-streaming calls for identical input produce identical text.
type MockModel struct {
	info  Info
	rules []cannedRule
	delay time.Duration
}

// NewMockModel constructs a MockModel.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:     name,
			Provider: provider,
		},
	}
}

// AddResponse registers a canned completion for any prompt containing match.
func (m *MockModel) AddResponse(match, response string) {
	m.rules = append(m.rules, cannedRule{match: match, response: response})
}

// AddError registers an injected failure for any prompt containing match.
func (m *MockModel) AddError(match string, err error) {
	m.rules = append(m.rules, cannedRule{match: match, err: err})
}

// WithDelay makes every generation pause before responding, so callers can
// observe measurable latency. Returns the model for chaining.
func (m *MockModel) WithDelay(d time.Duration) *MockModel {
	m.delay = d
	return m
}

// Generate implements Model; emits optional streaming char chunks then the
// final response with estimated token usage.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if m.delay > 0 {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case <-time.After(m.delay):
			}
		}

		full := fmt.Sprintf("Mock response to: %s", req.Prompt)

		for _, rule := range m.rules {
			if !strings.Contains(req.Prompt, rule.match) {
				continue
			}

			if rule.err != nil {
				errCh <- rule.err
				return
			}

			full = rule.response

			break
		}

		if req.Stream {
			for _, r := range full {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					Partial: true,
					Text:    string(r),
				}:
				}
			}
		}

		respCh <- Response{
			Partial:      false,
			Text:         full,
			FinishReason: "stop",
			Usage: &core.TokenUsage{
				PromptTokens:     core.EstimateTokens(req.Prompt),
				CompletionTokens: core.EstimateTokens(full),
				TotalTokens:      core.EstimateTokens(req.Prompt) + core.EstimateTokens(full),
			},
		}
	}()

	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
