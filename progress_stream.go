package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"sync"
	"sync/atomic"
)

// progressStreamBuffer is the capacity of the channel between the call's
// progress callback and the Updates() iterator: large enough to absorb a
// burst of rapid progress publishes without blocking the dispatcher's read
// loop, small enough that per-stream overhead stays negligible.
const progressStreamBuffer = 64

// ErrProgressStreamConsumed is returned when Updates() is called on a
// ProgressStream whose updates have already been consumed by a prior
// iteration.
var ErrProgressStreamConsumed = errors.New("mcp: progress stream already consumed")

type progressEventOrErr struct {
	update ProgressUpdate
	err    error
}

// guardedProgressChan wraps a channel with an RWMutex so sends and close
// are mutually exclusive: senders hold a read lock (concurrent sends are
// fine), the closer takes a write lock, ensuring no send is in flight when
// the channel closes.
type guardedProgressChan struct {
	mu     sync.RWMutex
	ch     chan progressEventOrErr
	closed bool
}

func newGuardedProgressChan(size int) *guardedProgressChan {
	return &guardedProgressChan{ch: make(chan progressEventOrErr, size)}
}

func (g *guardedProgressChan) send(ctx context.Context, eoe progressEventOrErr) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return
	}
	select {
	case g.ch <- eoe:
	case <-ctx.Done():
	}
}

func (g *guardedProgressChan) closeOnce() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.closed {
		g.closed = true
		close(g.ch)
	}
}

// ProgressStream is the iterator-based counterpart to CallWithProgress: a
// caller ranges over progress updates as they arrive instead of supplying a
// callback, while a background goroutine drives the underlying call to
// completion (spec.md §3 "ProgressToken", §5 "Concurrency").
type ProgressStream struct {
	updates iter.Seq2[ProgressUpdate, error]

	done      chan struct{}
	mu        sync.Mutex
	result    json.RawMessage
	resultErr error
	consumed  atomic.Bool
}

// Updates yields (ProgressUpdate, error) pairs. Iterate with a
// range-over-func loop; iteration ends when the call completes, is
// cancelled, or the consumer stops early. The iterator is single-use: a
// second call returns one yielding ErrProgressStreamConsumed.
func (s *ProgressStream) Updates() iter.Seq2[ProgressUpdate, error] {
	if !s.consumed.CompareAndSwap(false, true) {
		return func(yield func(ProgressUpdate, error) bool) {
			yield(ProgressUpdate{}, ErrProgressStreamConsumed)
		}
	}
	return s.updates
}

// Result blocks until the underlying call completes and returns its raw
// result (or the error that ended it).
func (s *ProgressStream) Result() (json.RawMessage, error) {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.resultErr
}

// CallStream issues method as an outbound request the way Session.Call
// does, but returns immediately with a ProgressStream instead of blocking:
// notifications/progress updates tied to the request are delivered through
// Updates, and the eventual Response (or failure) through Result.
func (s *Session) CallStream(ctx context.Context, method string, params interface{}) *ProgressStream {
	g := newGuardedProgressChan(progressStreamBuffer)
	stream := &ProgressStream{done: make(chan struct{})}
	stream.updates = func(yield func(ProgressUpdate, error) bool) {
		for eoe := range g.ch {
			if !yield(eoe.update, eoe.err) {
				return
			}
		}
	}

	go func() {
		defer g.closeOnce()
		defer close(stream.done)

		raw, err := s.CallWithProgress(ctx, method, params, func(u ProgressUpdate) {
			g.send(ctx, progressEventOrErr{update: u})
		})

		stream.mu.Lock()
		stream.result = raw
		stream.resultErr = err
		stream.mu.Unlock()
	}()

	return stream
}
