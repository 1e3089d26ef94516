package auth

import (
	"context"
	"errors"
	"log"
	"sync"
)

// FanoutSink records each event to every underlying sink. One sink failing
// does not stop the others.
type FanoutSink struct {
	sinks []AuditSink
}

func NewFanoutSink(sinks ...AuditSink) *FanoutSink {
	return &FanoutSink{sinks: sinks}
}

func (s *FanoutSink) Record(ctx context.Context, e Event) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AsyncSink decouples audit recording from the authentication decision: a
// bounded buffer feeds a single writer goroutine, and when the buffer is
// full the event is dropped and counted rather than blocking the caller.
type AsyncSink struct {
	inner  AuditSink
	logger *log.Logger

	ch   chan Event
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	stopped bool
	dropped int64
}

func NewAsyncSink(inner AuditSink, buffer int, logger *log.Logger) *AsyncSink {
	if buffer <= 0 {
		buffer = 64
	}
	s := &AsyncSink{
		inner:  inner,
		logger: logger,
		ch:     make(chan Event, buffer),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for e := range s.ch {
		if err := s.inner.Record(context.Background(), e); err != nil && s.logger != nil {
			s.logger.Printf("audit write failed: %v", err)
		}
	}
}

// Record enqueues the event and returns immediately; it never blocks. A
// record arriving after Close is dropped and counted, not sent into the
// closed channel. The enqueue happens under the same lock Close takes
// before closing, so the two can never interleave.
func (s *AsyncSink) Record(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.dropped++
		return nil
	}
	select {
	case s.ch <- e:
	default:
		s.dropped++
		if s.logger != nil {
			s.logger.Printf("audit buffer full, event dropped")
		}
	}
	return nil
}

// Dropped reports how many events were discarded because the buffer was
// full.
func (s *AsyncSink) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close flushes the buffer and stops the writer.
func (s *AsyncSink) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		close(s.ch)
		<-s.done
	})
}
