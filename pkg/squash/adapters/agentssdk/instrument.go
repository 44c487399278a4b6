// instrument.go provides the Instrument function for convenient runner setup.
// This is the recommended entry point for reporting ai-agents-sdk failures to Squash.

package agentssdk

import (
	"log"
	"time"

	"github.com/strongdm/ai-agents-sdk/pkg/agents"
	"github.com/strongdm/squash-observe/pkg/squash"
)

// WrapOption configures a WrappedRunner.
type WrapOption func(*WrappedRunner)

// WithLogger sets the logger for the wrapper.
// The logger is used for debug output when recording entries fails.
func WithLogger(logger *log.Logger) WrapOption {
	return func(w *WrappedRunner) {
		w.logger = logger
	}
}

// WithEnrichmentStore sets the enrichment store for the wrapper.
// The store is used to correlate hook data with errors captured at the runner boundary.
func WithEnrichmentStore(store EnrichmentStore) WrapOption {
	return func(w *WrappedRunner) {
		if store != nil {
			w.enrichments = store
		}
	}
}

// WithClientConfig sets the client settings stamped onto recorded entries
// (default: squash.DefaultClientConfig).
func WithClientConfig(cfg squash.ClientConfig) WrapOption {
	return func(w *WrappedRunner) {
		w.client = cfg
	}
}

// Instrument wraps a Runner with error and panic capture.
//
// Example:
//
//	collector := squash.NewCollector(squash.WithSink(sink))
//	runner := agents.NewRunner(client)
//	wrapped := agentssdk.Instrument(runner, collector)
//	result, err := wrapped.Run(ctx, agent, input, session, nil)
func Instrument(baseRunner *agents.Runner, collector squash.Collector, opts ...WrapOption) *WrappedRunner {
	wrapper := &WrappedRunner{
		inner:       baseRunner,
		collector:   collector,
		enrichments: NewEnrichmentStore(),
		client:      squash.DefaultClientConfig(),
		startTime:   time.Now(),
	}

	for _, opt := range opts {
		opt(wrapper)
	}

	return wrapper
}
