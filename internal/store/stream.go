package store

import (
	"context"
	"errors"
	"sync"
)

// Stream is a cancellable, lazy, unbounded sequence of collection snapshots.
// Only the latest undelivered snapshot is kept: a slow consumer never sees
// an intermediate state it could not act on anyway.
type Stream[R any] struct {
	ch     chan []R
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Producer runs until ctx is cancelled or the source fails. It hands each
// snapshot to emit.
type Producer[R any] func(ctx context.Context, emit func([]R)) error

// NewStream starts produce on its own goroutine.
func NewStream[R any](ctx context.Context, produce Producer[R]) *Stream[R] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream[R]{
		ch:     make(chan []R, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(s.ch)
		err := produce(ctx, func(snap []R) { s.emit(ctx, snap) })
		if err != nil && !errors.Is(err, context.Canceled) {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
		}
	}()

	return s
}

func (s *Stream[R]) emit(ctx context.Context, snap []R) {
	for {
		select {
		case <-ctx.Done():
			return
		case s.ch <- snap:
			return
		default:
		}
		// drop the stale pending snapshot and retry
		select {
		case <-s.ch:
		default:
		}
	}
}

// Snapshots is closed when the stream ends; check Err afterwards.
func (s *Stream[R]) Snapshots() <-chan []R {
	return s.ch
}

// Err reports why the stream ended. It is nil after Close.
func (s *Stream[R]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close cancels the producer and waits for it to exit. Safe to call twice.
func (s *Stream[R]) Close() {
	s.cancel()
	<-s.done
}
