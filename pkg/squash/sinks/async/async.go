// Package async provides a sink wrapper with a bounded queue for high-throughput scenarios.
// Entries are queued and written by a background goroutine; the oldest entries are
// dropped when the queue is full.
package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/strongdm/squash-observe/pkg/squash"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("async sink is closed")

// AsyncSinkOption configures the async sink.
type AsyncSinkOption func(*asyncSinkConfig)

type asyncSinkConfig struct {
	queueSize    int
	pollInterval time.Duration
	onDropped    func(count int)
	onError      func(entry squash.Entry, err error)
}

// WithQueueSize sets the maximum number of queued entries (default: 1000).
func WithQueueSize(size int) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithFlushInterval sets how often Flush checks for the queue to drain (default: 10ms).
func WithFlushInterval(d time.Duration) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithOnDropped sets a callback invoked when entries are dropped due to queue overflow.
func WithOnDropped(fn func(count int)) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		c.onDropped = fn
	}
}

// WithOnError sets a callback invoked when the inner sink rejects an entry.
// It runs on the background goroutine.
func WithOnError(fn func(entry squash.Entry, err error)) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		c.onError = fn
	}
}

// asyncSink wraps a sink with a bounded queue.
type asyncSink struct {
	inner        squash.Sink
	queue        chan squash.Entry
	done         chan struct{}
	wg           sync.WaitGroup
	pollInterval time.Duration
	onDropped    func(count int)
	onError      func(entry squash.Entry, err error)

	// mu guards closed and pending. pending counts entries accepted by
	// Write that have not yet been written or dropped.
	mu        sync.Mutex
	closed    bool
	pending   int
	closeOnce sync.Once
}

// NewAsyncSink wraps a sink with a bounded queue for async writes.
// Write returns without waiting for the inner sink; Flush waits for every
// accepted entry to be written.
func NewAsyncSink(inner squash.Sink, opts ...AsyncSinkOption) squash.Sink {
	cfg := &asyncSinkConfig{
		queueSize:    1000,
		pollInterval: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &asyncSink{
		inner:        inner,
		queue:        make(chan squash.Entry, cfg.queueSize),
		done:         make(chan struct{}),
		pollInterval: cfg.pollInterval,
		onDropped:    cfg.onDropped,
		onError:      cfg.onError,
	}

	s.wg.Add(1)
	go s.processLoop()

	return s
}

// processLoop drains the queue into the inner sink until Close, then writes
// whatever is still queued.
func (s *asyncSink) processLoop() {
	defer s.wg.Done()
	for {
		select {
		case entry := <-s.queue:
			s.write(entry)
		case <-s.done:
			for {
				select {
				case entry := <-s.queue:
					s.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (s *asyncSink) write(entry squash.Entry) {
	if err := s.inner.Write(context.Background(), entry); err != nil && s.onError != nil {
		s.onError(entry, err)
	}
	s.settle(1)
}

// settle marks n pending entries as finished.
func (s *asyncSink) settle(n int) {
	s.mu.Lock()
	s.pending -= n
	s.mu.Unlock()
}

// Write enqueues an entry. If the queue is full, the oldest queued entry is dropped.
func (s *asyncSink) Write(ctx context.Context, entry squash.Entry) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.pending++
	dropped := s.enqueue(entry)
	s.pending -= dropped
	s.mu.Unlock()

	if dropped > 0 && s.onDropped != nil {
		s.onDropped(dropped)
	}
	return nil
}

// enqueue adds entry to the queue, dropping the oldest queued entry to make
// room if needed. It returns the number of entries dropped. Callers hold mu.
func (s *asyncSink) enqueue(entry squash.Entry) int {
	select {
	case s.queue <- entry:
		return 0
	default:
	}

	dropped := 0
	select {
	case <-s.queue:
		dropped++
	default:
		// The processor emptied a slot in the meantime
	}

	select {
	case s.queue <- entry:
	default:
		// Still full, drop the new entry instead
		dropped++
	}
	return dropped
}

// Flush blocks until every accepted entry has been written or dropped, then
// flushes the inner sink.
func (s *asyncSink) Flush(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		s.mu.Lock()
		pending := s.pending
		s.mu.Unlock()
		if pending == 0 {
			return s.inner.Flush(ctx)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close stops accepting entries, writes what is queued and closes the inner sink.
func (s *asyncSink) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		close(s.done)
		s.wg.Wait()
	})

	return s.inner.Close()
}
