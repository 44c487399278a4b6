// sink.go defines the Sink interface for Squash entry destinations.

package squash

import "context"

// Sink is the destination for Squash entries.
// Implementations must be safe for concurrent use.
type Sink interface {
	// Write persists an entry. Called after enrichment, scrubbing and fingerprinting.
	// Implementations should be idempotent on Entry.EventID when possible.
	Write(ctx context.Context, entry Entry) error

	// Flush ensures any buffered entries are persisted.
	// For synchronous sinks, this may be a no-op.
	Flush(ctx context.Context) error

	// Close releases resources held by the sink.
	// After Close is called, Write and Flush should return errors.
	Close() error
}
