package engine

import (
	"fmt"
	"strings"

	"github.com/hupe1980/reasonmesh/core"
	"github.com/hupe1980/reasonmesh/internal/util"
)

// assemblePrompt renders the context history followed by the current
// prompt. Each entry contributes one line tagged with its type so the
// model backend sees who produced it.
func assemblePrompt(history []core.ContextEntry, prompt string) string {
	if len(history) == 0 {
		return prompt
	}

	var sb strings.Builder

	for _, entry := range history {
		fmt.Fprintf(&sb, "[%s] %s\n", entry.Type, entry.Content)
	}

	sb.WriteString("\n")
	sb.WriteString(prompt)

	return sb.String()
}

// renderPrompt resolves template markers in a prompt against the context's
// state. Prompts without markers come back unchanged.
func renderPrompt(rc *core.ReasoningContext, prompt string) (string, error) {
	return util.RenderPrompt(prompt, templateState(rc))
}

// templateState builds the variable set prompt templates resolve against:
// a snapshot of the context's metadata plus its correlation fields. The
// correlation fields win when a metadata key collides with them.
func templateState(rc *core.ReasoningContext) map[string]any {
	state := rc.MetadataSnapshot()

	state["context_id"] = rc.ID
	state["session_id"] = rc.SessionID
	if rc.UserID != "" {
		state["user_id"] = rc.UserID
	}
	if rc.CampaignID != "" {
		state["campaign_id"] = rc.CampaignID
	}

	return state
}
