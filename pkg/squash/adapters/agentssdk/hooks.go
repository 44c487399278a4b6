// hooks.go implements RunHooks for capturing operation context for enrichment.
// This adapter provides ENRICHMENT only - error detection is done by RunWrapper.

package agentssdk

import (
	"context"
	"log"

	"github.com/strongdm/ai-agents-sdk/pkg/agents"
	llmsdk "github.com/strongdm/ai-llm-sdk/pkg/llm"
	"github.com/strongdm/squash-observe/pkg/squash"
)

// HookAdapter implements agents.RunHooks to capture operation context.
// It delegates to an inner RunHooks and captures enrichment data for correlation.
type HookAdapter struct {
	store  EnrichmentStore
	inner  agents.RunHooks
	logger *log.Logger
}

// NewHookAdapter wraps an existing RunHooks and captures operation context.
// This adapter provides ENRICHMENT only - error detection is done by RunWrapper.
//
// The store is used to correlate hook data with errors captured at the runner boundary.
// The inner hooks (if non-nil) are called for all hook methods; only their errors are returned.
// The logger is used for debug output (can be nil for no logging).
func NewHookAdapter(store EnrichmentStore, inner agents.RunHooks, logger *log.Logger) agents.RunHooks {
	return &HookAdapter{
		store:  store,
		inner:  inner,
		logger: logger,
	}
}

// OnAgentStart captures the agent name for enrichment.
func (h *HookAdapter) OnAgentStart(ctx context.Context, runCtx *agents.AgentHookContext, agent *agents.Agent) error {
	if agent != nil {
		h.update(ctx, func(e *Enrichment) {
			e.AgentName = agent.Name()
		})
	}

	if h.inner != nil {
		return h.inner.OnAgentStart(ctx, runCtx, agent)
	}
	return nil
}

// OnAgentEnd delegates to inner hooks.
func (h *HookAdapter) OnAgentEnd(ctx context.Context, runCtx *agents.AgentHookContext, agent *agents.Agent, result agents.RunResult) error {
	if h.inner != nil {
		return h.inner.OnAgentEnd(ctx, runCtx, agent, result)
	}
	return nil
}

// OnHandoff records the handoff target as the current agent.
func (h *HookAdapter) OnHandoff(ctx context.Context, runCtx *agents.RunContext, from *agents.Agent, to *agents.Agent) error {
	if to != nil {
		h.update(ctx, func(e *Enrichment) {
			e.Operation = "handoff"
			e.OperationID = ""
			e.AgentName = to.Name()
		})
	}

	if h.inner != nil {
		return h.inner.OnHandoff(ctx, runCtx, from, to)
	}
	return nil
}

// OnToolStart captures tool context for enrichment.
func (h *HookAdapter) OnToolStart(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, tool agents.Tool, call llmsdk.ToolCall) error {
	h.update(ctx, func(e *Enrichment) {
		if agent != nil {
			e.AgentName = agent.Name()
		}
		e.Operation = "tool"
		e.ToolName = tool.Name
		e.ToolCallID = call.ID
		e.OperationID = call.ID
		e.ToolArgs = append(e.ToolArgs[:0:0], call.Arguments...)
		e.RecordOperation(newToolRecord(e.AgentName, tool.Name, call))
	})

	if h.inner != nil {
		return h.inner.OnToolStart(ctx, runCtx, agent, tool, call)
	}
	return nil
}

// OnToolEnd completes the tool's history record.
func (h *HookAdapter) OnToolEnd(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, tool agents.Tool, output string) error {
	h.update(ctx, func(e *Enrichment) {
		e.history.UpdateLast("tool", func(r *OperationRecord) {
			r.completeTool(output)
		})
	})

	if h.inner != nil {
		return h.inner.OnToolEnd(ctx, runCtx, agent, tool, output)
	}
	return nil
}

// OnLLMStart captures LLM context for enrichment.
func (h *HookAdapter) OnLLMStart(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, req llmsdk.Request) error {
	h.update(ctx, func(e *Enrichment) {
		if agent != nil {
			e.AgentName = agent.Name()
		}
		e.Operation = "llm"
		e.OperationID = ""
		e.Model = req.Model
		e.RecordOperation(newLLMRecord(e.AgentName, req))
	})

	if h.inner != nil {
		return h.inner.OnLLMStart(ctx, runCtx, agent, req)
	}
	return nil
}

// OnLLMEnd completes the LLM call's history record.
func (h *HookAdapter) OnLLMEnd(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, resp llmsdk.Response) error {
	h.update(ctx, func(e *Enrichment) {
		e.history.UpdateLast("llm", func(r *OperationRecord) {
			r.completeLLM(resp)
		})
	})

	if h.inner != nil {
		return h.inner.OnLLMEnd(ctx, runCtx, agent, resp)
	}
	return nil
}

// update applies fn to the enrichment of the run in ctx. Hooks called
// outside a wrapped run are ignored.
func (h *HookAdapter) update(ctx context.Context, fn func(e *Enrichment)) {
	runID, ok := squash.RunIDFromContext(ctx)
	if !ok {
		if h.logger != nil {
			h.logger.Printf("squash: hook called without run ID, enrichment skipped")
		}
		return
	}
	h.store.Update(runID, fn)
}
