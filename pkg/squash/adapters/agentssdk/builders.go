// builders.go builds Squash entries from run errors and recovered panics.

package agentssdk

import (
	"context"
	"errors"
	"strings"

	"github.com/strongdm/squash-observe/pkg/squash"
)

// guardrailPatterns mark an error message as a guardrail violation.
var guardrailPatterns = []string{
	"guardrail",
	"content policy",
	"safety filter",
	"blocked by policy",
}

// buildErrorEntry creates an entry for an error returned by a run.
// The enrichment and the error classification go into user_data.
func buildErrorEntry(cfg squash.ClientConfig, err error, contextID uint64, enrichment Enrichment) squash.Entry {
	entry := squash.NewEntry(cfg, runLogMessage(enrichment, describeOperation(enrichment)+" failed"), err)
	entry.UserData = enrichment.UserData()
	entry.UserData["error_type"] = classifyError(err)
	setContextID(&entry, contextID)
	return entry
}

// buildPanicEntry creates an entry for a panic recovered from a run.
func buildPanicEntry(cfg squash.ClientConfig, panicErr *squash.PanicError, contextID uint64, enrichment Enrichment) squash.Entry {
	entry := squash.NewEntry(cfg, runLogMessage(enrichment, squash.PanicLogMessage+" in "+describeOperation(enrichment)), panicErr)
	entry.UserData = enrichment.UserData()
	entry.UserData["error_type"] = "panic"
	setContextID(&entry, contextID)
	return entry
}

func setContextID(entry *squash.Entry, contextID uint64) {
	if contextID != 0 {
		entry.ContextID = &contextID
	}
}

// describeOperation names the operation in progress, e.g. "tool WebSearch".
func describeOperation(e Enrichment) string {
	switch e.Operation {
	case "tool":
		return strings.TrimSpace("tool " + e.ToolName)
	case "llm":
		return strings.TrimSpace("llm " + e.Model)
	case "handoff":
		return "handoff"
	default:
		return "run"
	}
}

// runLogMessage prefixes msg with the agent name when known.
func runLogMessage(e Enrichment, msg string) string {
	if e.AgentName == "" {
		return msg
	}
	return "agent " + e.AgentName + ": " + msg
}

// classifyError determines the error type based on the error.
func classifyError(err error) string {
	if err == nil {
		return "error"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	// Guardrail violations are recognized by message only
	msg := strings.ToLower(err.Error())
	for _, p := range guardrailPatterns {
		if strings.Contains(msg, p) {
			return "guardrail"
		}
	}

	return "error"
}
