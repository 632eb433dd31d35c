package mcp

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryTransport is the reference Transport implementation: an unbounded
// FIFO queue wired to a peer MemoryTransport. It is the only concrete
// transport the core ships — stdio, HTTP/SSE, and WebSocket transports are
// external collaborators implementing the same interface (spec.md §4.4).
type MemoryTransport struct {
	kind string
	peer *MemoryTransport

	mu     sync.Mutex
	closed bool
	queue  []Frame
	notify chan struct{} // signaled (non-blocking) whenever queue grows or closes

	// selfClosedFlag is set true by this transport's own Close; the peer
	// reads it (as its linkedClosedFlag) to know no more frames are coming.
	selfClosedFlag   *atomic.Bool
	linkedClosedFlag *atomic.Bool // the peer's selfClosedFlag; lets Receive report EOF after drain

	sent     atomic.Uint64
	received atomic.Uint64
}

// NewMemoryTransportPair creates two linked MemoryTransport endpoints.
// Frames sent on one are received, in order, on the other. Closing either
// side half-closes its write direction; the peer's Receive returns
// ErrEndOfStream once its queue is drained.
func NewMemoryTransportPair() (server, client *MemoryTransport) {
	serverClosed := &atomic.Bool{}
	clientClosed := &atomic.Bool{}

	server = &MemoryTransport{kind: "memory-server", notify: make(chan struct{}, 1), selfClosedFlag: serverClosed, linkedClosedFlag: clientClosed}
	client = &MemoryTransport{kind: "memory-client", notify: make(chan struct{}, 1), selfClosedFlag: clientClosed, linkedClosedFlag: serverClosed}

	server.peer = client
	client.peer = server
	return server, client
}

func (t *MemoryTransport) Send(ctx context.Context, frame Frame) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return NewTransportError(TransportKindConnectionClosed, "send on closed memory transport", nil)
	}
	peer := t.peer
	t.mu.Unlock()

	if peer == nil {
		return NewTransportError(TransportKindWriteFailed, "memory transport has no peer", nil)
	}

	peer.mu.Lock()
	if peer.closed {
		peer.mu.Unlock()
		return NewTransportError(TransportKindConnectionClosed, "peer memory transport closed", nil)
	}
	peer.queue = append(peer.queue, frame)
	peer.mu.Unlock()

	select {
	case peer.notify <- struct{}{}:
	default:
	}

	t.sent.Add(1)
	return nil
}

func (t *MemoryTransport) Receive(ctx context.Context) (Frame, error) {
	for {
		t.mu.Lock()
		if len(t.queue) > 0 {
			f := t.queue[0]
			t.queue = t.queue[1:]
			t.mu.Unlock()
			t.received.Add(1)
			return f, nil
		}
		closed := t.closed
		peerGone := t.linkedClosedFlag != nil && t.linkedClosedFlag.Load()
		t.mu.Unlock()

		if closed || peerGone {
			return Frame{}, ErrEndOfStream
		}

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-t.notify:
			continue
		}
	}
}

func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	if t.selfClosedFlag != nil {
		t.selfClosedFlag.Store(true)
	}
	// Wake a blocked Receive on the peer so it observes EOF promptly.
	if t.peer != nil {
		select {
		case t.peer.notify <- struct{}{}:
		default:
		}
	}
	return nil
}

func (t *MemoryTransport) Metadata() TransportMetadata {
	return TransportMetadata{
		Kind:          t.kind,
		SentCount:     t.sent.Load(),
		ReceivedCount: t.received.Load(),
	}
}
