package testutil

import (
	"github.com/hupe1980/reasonmesh/core"
)

// ContextBuilder helps construct reasoning contexts with fluent chaining for
// tests. Example:
//
//	rc := NewContextBuilder("ctx-1").Priority(core.PriorityHigh).Entries(e1, e2).Build()
type ContextBuilder struct {
	id         string
	sessionID  string
	userID     string
	campaignID string
	priority   core.Priority
	metadata   map[string]any
	entries    []core.ContextEntry
	window     int
}

// NewContextBuilder creates a new builder for a context with the given id.
// Use chainable methods (Session, Priority, Entry, Entries) then call Build.
func NewContextBuilder(id string) *ContextBuilder {
	return &ContextBuilder{id: id, sessionID: id + "-session", metadata: map[string]any{}}
}

// Session sets the session correlation id (chainable).
func (b *ContextBuilder) Session(id string) *ContextBuilder { b.sessionID = id; return b }

// User sets the user correlation id (chainable).
func (b *ContextBuilder) User(id string) *ContextBuilder { b.userID = id; return b }

// Campaign sets the campaign correlation id (chainable).
func (b *ContextBuilder) Campaign(id string) *ContextBuilder { b.campaignID = id; return b }

// Priority sets the context priority (chainable).
func (b *ContextBuilder) Priority(p core.Priority) *ContextBuilder { b.priority = p; return b }

// Meta sets or overwrites a metadata key/value pair on the resulting context (chainable).
func (b *ContextBuilder) Meta(key string, val any) *ContextBuilder { b.metadata[key] = val; return b }

// Entry appends a single history entry (chainable).
func (b *ContextBuilder) Entry(entry core.ContextEntry) *ContextBuilder {
	b.entries = append(b.entries, entry)
	return b
}

// Entries appends multiple history entries (chainable).
func (b *ContextBuilder) Entries(entries ...core.ContextEntry) *ContextBuilder {
	b.entries = append(b.entries, entries...)
	return b
}

// Window sets the history window applied while appending entries (chainable).
func (b *ContextBuilder) Window(n int) *ContextBuilder { b.window = n; return b }

// Build returns a *core.ReasoningContext with pre-populated correlation
// fields, metadata, and history.
func (b *ContextBuilder) Build() *core.ReasoningContext {
	rc := core.NewReasoningContext(b.id, b.sessionID)
	rc.UserID = b.userID
	rc.CampaignID = b.campaignID

	if b.priority != "" {
		rc.Priority = b.priority
	}

	for k, v := range b.metadata {
		rc.SetMetadata(k, v)
	}

	for _, entry := range b.entries {
		rc.Append(entry, b.window)
	}

	return rc
}
