package testutil

import (
	"time"

	"github.com/hupe1980/reasonmesh/core"
)

// EntryBuilder provides a fluent helper for constructing history entries in
// tests. Example:
//
//	entry := NewEntryBuilder().UserText("hello").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type EntryBuilder struct {
	entryType core.EntryType
	content   string
	tokens    int
	timestamp time.Time
}

// NewEntryBuilder creates a builder with default type user_input.
func NewEntryBuilder() *EntryBuilder { return &EntryBuilder{entryType: core.EntryTypeUserInput} }

// Type sets the entry type (chainable).
func (b *EntryBuilder) Type(t core.EntryType) *EntryBuilder { b.entryType = t; return b }

// Content sets the entry content (chainable).
func (b *EntryBuilder) Content(c string) *EntryBuilder { b.content = c; return b }

// Tokens sets the token count (chainable).
func (b *EntryBuilder) Tokens(n int) *EntryBuilder { b.tokens = n; return b }

// Timestamp overrides the append-time stamping (chainable). Use mainly in tests where determinism matters.
func (b *EntryBuilder) Timestamp(t time.Time) *EntryBuilder { b.timestamp = t; return b }

// UserText sets the content and marks the entry as user input (chainable).
func (b *EntryBuilder) UserText(t string) *EntryBuilder {
	b.entryType = core.EntryTypeUserInput
	b.content = t
	return b
}

// AgentText sets the content and marks the entry as agent output (chainable).
func (b *EntryBuilder) AgentText(t string) *EntryBuilder {
	b.entryType = core.EntryTypeAgentOutput
	b.content = t
	return b
}

// SystemText sets the content and marks the entry as a system event (chainable).
func (b *EntryBuilder) SystemText(t string) *EntryBuilder {
	b.entryType = core.EntryTypeSystemEvent
	b.content = t
	return b
}

// Build returns the assembled core.ContextEntry.
func (b *EntryBuilder) Build() core.ContextEntry {
	return core.ContextEntry{
		Type:      b.entryType,
		Content:   b.content,
		Tokens:    b.tokens,
		Timestamp: b.timestamp,
	}
}
