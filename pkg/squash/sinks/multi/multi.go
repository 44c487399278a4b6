// Package multi provides a sink that fans each Squash entry out to several sinks.
// Every sink is called even when earlier ones fail; failures are joined.
package multi

import (
	"context"
	"errors"
	"fmt"

	"github.com/strongdm/squash-observe/pkg/squash"
)

type multiSink struct {
	sinks []squash.Sink
}

// NewMultiSink creates a sink that writes to each of sinks in order.
// Nil sinks are ignored.
func NewMultiSink(sinks ...squash.Sink) squash.Sink {
	s := &multiSink{}
	for _, sink := range sinks {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
	return s
}

// Write sends the entry to every sink.
func (s *multiSink) Write(ctx context.Context, entry squash.Entry) error {
	return s.each(func(sink squash.Sink) error {
		return sink.Write(ctx, entry)
	})
}

// Flush flushes every sink.
func (s *multiSink) Flush(ctx context.Context) error {
	return s.each(func(sink squash.Sink) error {
		return sink.Flush(ctx)
	})
}

// Close closes every sink.
func (s *multiSink) Close() error {
	return s.each(squash.Sink.Close)
}

// each calls fn for every sink and joins the failures, tagged with the sink's position.
func (s *multiSink) each(fn func(squash.Sink) error) error {
	var errs []error
	for i, sink := range s.sinks {
		if err := fn(sink); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
