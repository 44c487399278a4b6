// Package noop provides a sink that discards every Squash entry.
// Use it to disable reporting without changing call sites.
package noop

import (
	"context"

	"github.com/strongdm/squash-observe/pkg/squash"
)

type noopSink struct{}

// NewNoopSink creates a sink whose methods do nothing and return nil.
func NewNoopSink() squash.Sink {
	return noopSink{}
}

func (noopSink) Write(context.Context, squash.Entry) error { return nil }

func (noopSink) Flush(context.Context) error { return nil }

func (noopSink) Close() error { return nil }
