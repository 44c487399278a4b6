// collector.go provides the central Collector interface and default implementation.

package squash

import (
	"context"
	"fmt"
	"log"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Collector records Squash entries to configured sinks.
type Collector interface {
	// Record delivers an assembled entry. Blocks until persisted (synchronous).
	// Applies enrichment, scrubbing and fingerprinting before delegating to sinks.
	Record(ctx context.Context, entry Entry) error

	// Notify builds an entry for err with the collector's client settings and
	// records it. err may be nil to report only a log message.
	Notify(ctx context.Context, logMessage string, err error) error

	// Flush ensures any buffered entries are persisted.
	// For synchronous collectors, this may be a no-op.
	Flush(ctx context.Context) error

	// Close releases resources held by the collector.
	Close() error
}

// CollectorOption configures a Collector.
type CollectorOption func(*collectorConfig)

type collectorConfig struct {
	sink      Sink
	scrubber  *Scrubber
	client    ClientConfig
	startTime *time.Time
	logger    *log.Logger
}

// WithSink sets the sink for the collector.
func WithSink(sink Sink) CollectorOption {
	return func(c *collectorConfig) {
		c.sink = sink
	}
}

// WithScrubber configures the collector with a custom scrubber configuration.
func WithScrubber(cfg ScrubberConfig) CollectorOption {
	return func(c *collectorConfig) {
		c.scrubber = NewScrubber(cfg)
	}
}

// WithDefaultScrubbing enables scrubbing with production-safe defaults.
func WithDefaultScrubbing() CollectorOption {
	return func(c *collectorConfig) {
		c.scrubber = NewScrubber(DefaultScrubberConfig())
	}
}

// WithClientConfig sets the client settings Notify stamps onto new entries
// (default: DefaultClientConfig).
func WithClientConfig(cfg ClientConfig) CollectorOption {
	return func(c *collectorConfig) {
		c.client = cfg
	}
}

// WithSystemState adds memory, goroutine, uptime and host details to every
// entry's user_data. startTime is the process start used for uptime.
func WithSystemState(startTime time.Time) CollectorOption {
	return func(c *collectorConfig) {
		c.startTime = &startTime
	}
}

// WithLogger sets a logger for sink failures. Nil disables logging.
func WithLogger(logger *log.Logger) CollectorOption {
	return func(c *collectorConfig) {
		c.logger = logger
	}
}

// defaultCollector is the standard Collector implementation.
type defaultCollector struct {
	sink      Sink
	scrubber  *Scrubber
	client    ClientConfig
	startTime *time.Time
	logger    *log.Logger
}

// NewCollector creates a new Collector with the given options.
func NewCollector(opts ...CollectorOption) Collector {
	cfg := &collectorConfig{client: DefaultClientConfig()}
	for _, opt := range opts {
		opt(cfg)
	}

	// Default to a noop sink if none provided
	if cfg.sink == nil {
		cfg.sink = &noopSinkInternal{}
	}

	return &defaultCollector{
		sink:      cfg.sink,
		scrubber:  cfg.scrubber,
		client:    cfg.client,
		startTime: cfg.startTime,
		logger:    cfg.logger,
	}
}

// Notify assembles an entry for err and records it.
func (c *defaultCollector) Notify(ctx context.Context, logMessage string, err error) error {
	return c.Record(ctx, NewEntry(c.client, logMessage, err))
}

// Record enriches, scrubs and fingerprints the entry, then writes it.
func (c *defaultCollector) Record(ctx context.Context, entry Entry) error {
	if entry.EventID == "" {
		entry.EventID = uuid.NewString()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}

	if entry.ContextID == nil {
		if contextID, ok := ContextIDFromContext(ctx); ok {
			entry.ContextID = &contextID
		}
	}
	if userID, ok := UserIDFromContext(ctx); ok {
		entry.UserID = userID
	}
	if deviceID, ok := DeviceIDFromContext(ctx); ok {
		entry.DeviceID = deviceID
	}

	if c.startTime != nil {
		entry.UserData = mergeUserData(entry.UserData, CaptureSystemState(*c.startTime).UserData())
	}

	if c.scrubber != nil {
		entry = c.scrubber.ScrubEntry(entry)
	}

	entry.Fingerprint = Fingerprint(entry)

	if err := c.sink.Write(ctx, entry); err != nil {
		c.logf("squash: write entry %s: %v", entry.EventID, err)
		return fmt.Errorf("write entry: %w", err)
	}
	return nil
}

// Flush delegates to the sink.
func (c *defaultCollector) Flush(ctx context.Context) error {
	return c.sink.Flush(ctx)
}

// Close delegates to the sink.
func (c *defaultCollector) Close() error {
	return c.sink.Close()
}

func (c *defaultCollector) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

// mergeUserData returns a copy of data with extra added. Keys already present
// in data win.
func mergeUserData(data, extra map[string]any) map[string]any {
	merged := make(map[string]any, len(data)+len(extra))
	maps.Copy(merged, extra)
	maps.Copy(merged, data)
	return merged
}

// noopSinkInternal is an internal noop sink to avoid import cycles.
type noopSinkInternal struct{}

func (s *noopSinkInternal) Write(ctx context.Context, entry Entry) error {
	return nil
}

func (s *noopSinkInternal) Flush(ctx context.Context) error {
	return nil
}

func (s *noopSinkInternal) Close() error {
	return nil
}
