// Package squash turns Go errors into Squash crash reports.
//
// The core extracts the diagnostic payload of an error: the stack it carries
// (backtraces), its own field values (ivars) and its chain of causes (parent
// exceptions). Around that core sits a small reporting pipeline that stamps
// client settings onto each report, enriches and scrubs it, and delivers it to
// pluggable sinks.
//
// # Core Components
//
//   - Backtraces, Frames, Ivars, PopulateNestedExceptions: the extractor
//   - Entry: the Squash notification document, built with NewEntry
//   - Collector: applies enrichment, scrubbing and fingerprinting before persistence
//   - Sink: destination for entries (cxdb, stderr, async, multi, noop)
//   - Scrubber: redacts sensitive data with fail-closed behavior
//
// # Stacks
//
// Go errors do not record a stack by default. An error contributes frames when
// it implements one of:
//
//	StackTrace() []runtime.Frame
//	StackTrace() []uintptr
//	StackTrace() errors.StackTrace // github.com/pkg/errors
//
// Errors created with github.com/pkg/errors (New, Errorf, Wrap, WithStack)
// work without changes. Other errors report an empty backtrace.
//
// # Quick Start
//
//	cfg, err := squash.LoadConfig(".")
//	collector := squash.NewCollector(
//	    squash.WithSink(stderr.NewStderrSink()),
//	    squash.WithClientConfig(cfg),
//	    squash.WithDefaultScrubbing(),
//	)
//	defer squash.Recover(ctx, collector)
//
//	if err := loadProfile(ctx); err != nil {
//	    _ = collector.Notify(ctx, "loading profile", err)
//	}
//
// For ai-agents-sdk integration:
//
//	runner := agentssdk.Instrument(baseRunner, collector)
//	result, err := runner.Run(ctx, agent, input, session, cfg)
//
// # Design Principles
//
//   - Extraction never fails: unreadable state is reported, not returned as an error
//   - Adapters never abort agent runs: all collector errors are swallowed and logged
//   - Fail-closed scrubbing: on any error, fields are fully redacted (never persist raw data)
package squash
