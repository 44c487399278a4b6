// Package stderr provides a sink that prints Squash entries in human-readable form.
// Useful for development and debugging.
package stderr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/strongdm/squash-observe/pkg/squash"
)

const indent = "        "

// StderrSinkOption configures the stderr sink.
type StderrSinkOption func(*stderrSinkConfig)

type stderrSinkConfig struct {
	verbose bool
	out     io.Writer
}

// WithVerbose enables full entry details: backtraces, causes, ivars and user data.
func WithVerbose() StderrSinkOption {
	return func(c *stderrSinkConfig) {
		c.verbose = true
	}
}

// WithWriter sends output to w instead of os.Stderr.
func WithWriter(w io.Writer) StderrSinkOption {
	return func(c *stderrSinkConfig) {
		c.out = w
	}
}

// stderrSink writes entries in human-readable format.
type stderrSink struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

// NewStderrSink creates a sink that writes to stderr.
func NewStderrSink(opts ...StderrSinkOption) squash.Sink {
	cfg := &stderrSinkConfig{out: os.Stderr}
	for _, opt := range opts {
		opt(cfg)
	}
	return &stderrSink{
		out:     cfg.out,
		verbose: cfg.verbose,
	}
}

// Write formats the entry and prints it as a single block.
//
// Format: [SQUASH] <occurred_at> <environment> <class_name>
func (s *stderrSink) Write(ctx context.Context, entry squash.Entry) error {
	var b strings.Builder

	className := entry.ClassName
	if className == "" {
		className = "log"
	}
	fmt.Fprintf(&b, "[SQUASH] %s %s %s\n",
		entry.OccurredAt.Format("2006-01-02T15:04:05Z07:00"), entry.Environment, className)

	fmt.Fprintf(&b, "%sMessage: %s\n", indent, entry.Message)
	if entry.LogMessage != "" && entry.LogMessage != entry.Message {
		fmt.Fprintf(&b, "%sLog: %s\n", indent, entry.LogMessage)
	}
	if entry.Fingerprint != "" {
		fmt.Fprintf(&b, "%sFingerprint: %s\n", indent, entry.Fingerprint)
	}
	if entry.ContextID != nil {
		fmt.Fprintf(&b, "%sContext: %d\n", indent, *entry.ContextID)
	}

	if s.verbose {
		writeBacktraces(&b, entry.Backtraces)
		for _, ne := range entry.ParentExceptions {
			msg := ""
			if ne.Message != nil {
				msg = ": " + *ne.Message
			}
			fmt.Fprintf(&b, "%sCaused by: %s%s\n", indent, ne.ClassName, msg)
			writeBacktraces(&b, ne.Backtraces)
		}
		writeJSON(&b, "Ivars", entry.Ivars)
		writeJSON(&b, "User data", entry.UserData)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.out, b.String())
	return err
}

func writeBacktraces(b *strings.Builder, backtraces []squash.ThreadBacktrace) {
	for _, bt := range backtraces {
		if len(bt.Backtrace) == 0 {
			continue
		}
		fmt.Fprintf(b, "%sBacktrace (%s):\n", indent, bt.Name)
		for _, fr := range bt.Backtrace {
			location := "unknown"
			if fr.File != nil {
				location = fmt.Sprintf("%s:%d", *fr.File, fr.Line)
			}
			fmt.Fprintf(b, "%s  at %s.%s (%s)\n", indent, fr.ClassName, fr.Symbol, location)
		}
	}
}

func writeJSON(b *strings.Builder, label string, fields map[string]any) {
	if len(fields) == 0 {
		return
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		fmt.Fprintf(b, "%s%s: <unencodable: %v>\n", indent, label, err)
		return
	}
	fmt.Fprintf(b, "%s%s: %s\n", indent, label, encoded)
}

// Flush is a no-op for stderr sink.
func (s *stderrSink) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for stderr sink.
func (s *stderrSink) Close() error {
	return nil
}
