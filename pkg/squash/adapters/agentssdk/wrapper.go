// wrapper.go implements WrappedRunner that wraps agents.Runner to capture errors and panics.
// This is the PRIMARY error capture mechanism - hooks provide enrichment only.

package agentssdk

import (
	"context"
	"log"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/strongdm/ai-agents-sdk/pkg/agents"
	"github.com/strongdm/squash-observe/pkg/squash"
)

// WrappedRunner wraps an agents.Runner to capture errors and panics.
// It is the primary error capture mechanism - hooks provide enrichment only.
type WrappedRunner struct {
	inner       *agents.Runner
	collector   squash.Collector
	enrichments EnrichmentStore
	client      squash.ClientConfig
	logger      *log.Logger
	startTime   time.Time
}

// NewWrappedRunner creates a new WrappedRunner that wraps the given Runner.
// The collector is used to record errors and panics.
// The enrichment store is used to correlate hook data with errors.
// The logger is used for debug output (can be nil for no logging).
func NewWrappedRunner(inner *agents.Runner, collector squash.Collector, store EnrichmentStore, logger *log.Logger) *WrappedRunner {
	return Instrument(inner, collector, WithEnrichmentStore(store), WithLogger(logger))
}

// Run executes the agent with the given input and session, capturing any errors or panics.
func (w *WrappedRunner) Run(ctx context.Context, agent *agents.Agent, input string, session agents.Session, cfg *agents.RunConfig) (agents.RunResult, error) {
	var result agents.RunResult
	err := w.capture(ctx, session, func(ctx context.Context) error {
		var err error
		result, err = w.inner.Run(ctx, agent, input, session, w.wrapRunConfig(cfg))
		return err
	})
	return result, err
}

// RunOnce executes a single turn of the agent, capturing any errors or panics.
// Without a session the context ID comes from ctx only.
func (w *WrappedRunner) RunOnce(ctx context.Context, agent *agents.Agent, input string, cfg *agents.RunConfig) (agents.RunResult, error) {
	var result agents.RunResult
	err := w.capture(ctx, nil, func(ctx context.Context) error {
		var err error
		result, err = w.inner.RunOnce(ctx, agent, input, w.wrapRunConfig(cfg))
		return err
	})
	return result, err
}

// RunStream starts a streaming run, capturing any errors at the start.
// Errors during streaming are not captured by this wrapper. The run's
// enrichment is kept until ctx is done, since the stream may outlive this call.
func (w *WrappedRunner) RunStream(ctx context.Context, agent *agents.Agent, input string, session agents.Session, cfg *agents.RunConfig) (*agents.StreamingRun, error) {
	runID := uuid.NewString()
	ctx = squash.WithRunID(ctx, runID)
	contextID := w.extractContextID(ctx, session)

	defer w.capturePanic(ctx, runID, contextID)

	stream, err := w.inner.RunStream(ctx, agent, input, session, w.wrapRunConfig(cfg))
	if err != nil {
		w.captureError(ctx, runID, contextID, err)
		w.enrichments.Delete(runID)
		return stream, err
	}

	context.AfterFunc(ctx, func() {
		w.enrichments.Delete(runID)
	})
	return stream, nil
}

// capture runs fn under a fresh run ID, recording its error or panic.
// The run's enrichment is released when fn returns.
func (w *WrappedRunner) capture(ctx context.Context, session any, fn func(ctx context.Context) error) error {
	runID := uuid.NewString()
	ctx = squash.WithRunID(ctx, runID)
	defer w.enrichments.Delete(runID)

	contextID := w.extractContextID(ctx, session)

	// Runs before Delete so the panic entry still sees the enrichment
	defer w.capturePanic(ctx, runID, contextID)

	err := fn(ctx)
	if err != nil {
		w.captureError(ctx, runID, contextID, err)
	}
	return err
}

// extractContextID extracts the context ID from a session if it implements ContextIDProvider.
func (w *WrappedRunner) extractContextID(ctx context.Context, session any) uint64 {
	if provider, ok := session.(squash.ContextIDProvider); ok {
		if id, err := provider.ContextID(ctx); err == nil {
			return id
		}
	}
	// Fallback to context propagation when session cannot provide a context ID.
	if id, ok := squash.ContextIDFromContext(ctx); ok {
		return id
	}
	return 0
}

// wrapRunConfig clones cfg and wraps hooks with HookAdapter for enrichment capture.
func (w *WrappedRunner) wrapRunConfig(cfg *agents.RunConfig) *agents.RunConfig {
	var cloned agents.RunConfig
	if cfg != nil {
		cloned = *cfg
	}
	cloned.Hooks = NewHookAdapter(w.enrichments, cloned.Hooks, w.logger)
	return &cloned
}

// captureError records an entry for an error returned by the run.
func (w *WrappedRunner) captureError(ctx context.Context, runID string, contextID uint64, err error) {
	enrichment, _ := w.enrichments.Get(runID)
	w.safeRecord(ctx, buildErrorEntry(w.client, err, contextID, enrichment))
}

// capturePanic recovers from a panic, records it, and re-panics.
func (w *WrappedRunner) capturePanic(ctx context.Context, runID string, contextID uint64) {
	if r := recover(); r != nil {
		panicErr := squash.NewPanicError(r, 0)
		enrichment, _ := w.enrichments.Get(runID)
		w.safeRecord(ctx, buildPanicEntry(w.client, panicErr, contextID, enrichment))
		panic(r)
	}
}

// safeRecord adds system state to the entry and records it, logging any
// errors rather than propagating them.
func (w *WrappedRunner) safeRecord(ctx context.Context, entry squash.Entry) {
	state := squash.CaptureSystemState(w.startTime).UserData()
	maps.Copy(state, entry.UserData)
	entry.UserData = state

	if err := w.collector.Record(ctx, entry); err != nil && w.logger != nil {
		w.logger.Printf("squash: failed to record entry: %v", err)
	}
}

// Inner returns the underlying Runner for advanced usage.
func (w *WrappedRunner) Inner() *agents.Runner {
	return w.inner
}
