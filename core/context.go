package core

import (
	"sync"
	"time"
)

// Priority classifies how urgent the work attached to a context is. It biases
// routing: high and critical shift scoring weight toward success rate over
// latency. The zero value ("") is treated as PriorityMedium wherever it is
// consumed.
type Priority string

const (
	// PriorityLow marks background or best-effort work.
	PriorityLow Priority = "low"
	// PriorityMedium is the default priority for new contexts.
	PriorityMedium Priority = "medium"
	// PriorityHigh marks latency-tolerant but correctness-sensitive work.
	PriorityHigh Priority = "high"
	// PriorityCritical marks work where failures are unacceptable.
	PriorityCritical Priority = "critical"
)

// OrDefault normalizes the empty priority to PriorityMedium.
func (p Priority) OrDefault() Priority {
	if p == "" {
		return PriorityMedium
	}
	return p
}

// Urgent reports whether the priority is high or critical.
func (p Priority) Urgent() bool {
	return p == PriorityHigh || p == PriorityCritical
}

// EntryType tags a ContextEntry with its origin. The set is open: unknown
// tags pass through untouched so callers can extend it.
type EntryType string

const (
	// EntryTypeUserInput marks caller-supplied conversational input.
	EntryTypeUserInput EntryType = "user_input"
	// EntryTypeAgentOutput marks text produced by an inference.
	EntryTypeAgentOutput EntryType = "agent_output"
	// EntryTypeSystemEvent marks non-conversational lifecycle notes.
	EntryTypeSystemEvent EntryType = "system_event"
)

// ContextEntry is one turn/event within a context history.
type ContextEntry struct {
	Type      EntryType `json:"type"`
	Content   string    `json:"content"`
	Tokens    int       `json:"tokens,omitempty"` // 0 means unknown/unestimated
	Timestamp time.Time `json:"timestamp"`
}

// DefaultHistoryWindow is the maximum number of history entries a context
// retains unless configured otherwise. Trimming always removes the oldest
// entries first.
const DefaultHistoryWindow = 50

// ReasoningContext represents one logical session/task thread: an ordered,
// bounded history of entries plus correlation fields and auxiliary metadata.
// It is safe for concurrent access.
//
// Contract:
//   - Append stamps entries missing a timestamp and trims oldest-first once
//     the window is exceeded
//   - HistorySnapshot returns a defensive copy to avoid external mutation
//   - LastAccessed is refreshed by the cache on every read via Touch
//   - Clone performs deep copies of history and metadata for safe divergence
type ReasoningContext struct {
	ID           string         `json:"id"`
	SessionID    string         `json:"session_id"`
	UserID       string         `json:"user_id,omitempty"`
	CampaignID   string         `json:"campaign_id,omitempty"`
	History      []ContextEntry `json:"history"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
	LastAccessed time.Time      `json:"last_accessed"`
	Priority     Priority       `json:"priority"`
	mu           sync.RWMutex
}

// NewReasoningContext creates an empty context with the given id and session
// correlation, medium priority and both timestamps set to now.
func NewReasoningContext(id, sessionID string) *ReasoningContext {
	now := time.Now()
	return &ReasoningContext{
		ID:           id,
		SessionID:    sessionID,
		History:      []ContextEntry{},
		Metadata:     map[string]any{},
		CreatedAt:    now,
		LastAccessed: now,
		Priority:     PriorityMedium,
	}
}

// Append adds an entry to the history, stamping a zero Timestamp with the
// current time, then trims from the head so that at most window entries
// remain. A window <= 0 falls back to DefaultHistoryWindow.
func (c *ReasoningContext) Append(entry ContextEntry, window int) {
	if window <= 0 {
		window = DefaultHistoryWindow
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	c.History = append(c.History, entry)
	if over := len(c.History) - window; over > 0 {
		copy(c.History, c.History[over:])
		c.History = c.History[:window]
	}
}

// HistorySnapshot returns a defensive copy of the history slice.
func (c *ReasoningContext) HistorySnapshot() []ContextEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	history := make([]ContextEntry, len(c.History))
	copy(history, c.History)
	return history
}

// HistoryLen returns the current number of history entries.
func (c *ReasoningContext) HistoryLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.History)
}

// Touch updates the last-accessed timestamp. Called by the cache on reads.
func (c *ReasoningContext) Touch(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastAccessed = t
}

// SetMetadata sets a key/value pair in the metadata map.
func (c *ReasoningContext) SetMetadata(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Metadata[key] = value
}

// GetMetadata returns the value and existence flag for a metadata key.
func (c *ReasoningContext) GetMetadata(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.Metadata[key]
	return v, ok
}

// MetadataSnapshot returns a shallow copy of the metadata map.
func (c *ReasoningContext) MetadataSnapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	md := make(map[string]any, len(c.Metadata))
	for k, v := range c.Metadata {
		md[k] = v
	}
	return md
}

// SetPriority updates the context priority.
func (c *ReasoningContext) SetPriority(p Priority) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Priority = p
}

// EffectivePriority returns the context priority normalized to a concrete
// value (empty becomes medium).
func (c *ReasoningContext) EffectivePriority() Priority {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Priority.OrDefault()
}

// Clone returns a deep copy of the context safe for independent mutation.
func (c *ReasoningContext) Clone() *ReasoningContext {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clone := &ReasoningContext{
		ID:           c.ID,
		SessionID:    c.SessionID,
		UserID:       c.UserID,
		CampaignID:   c.CampaignID,
		History:      make([]ContextEntry, len(c.History)),
		Metadata:     make(map[string]any, len(c.Metadata)),
		CreatedAt:    c.CreatedAt,
		LastAccessed: c.LastAccessed,
		Priority:     c.Priority,
	}
	copy(clone.History, c.History)
	for k, v := range c.Metadata {
		clone.Metadata[k] = v
	}
	return clone
}
