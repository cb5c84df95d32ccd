package core

import (
	"github.com/google/uuid"
)

// NewID returns a fresh opaque identifier. Contexts and inferences are keyed
// by these; callers must treat them as opaque strings.
func NewID() string {
	return uuid.NewString()
}

// EstimateTokens returns a rough token-count estimate for a text payload,
// using the common ~4 characters per token heuristic. It is used to fill
// ContextEntry.Tokens when the model provider did not report usage. Returns 0
// for empty text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
