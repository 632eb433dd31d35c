package mcp

import (
	"context"
	"errors"
)

// ErrEndOfStream is returned by Transport.Receive once the peer has closed
// its write side and all buffered frames have been drained.
var ErrEndOfStream = errors.New("mcp: end of stream")

// TransportMetadata carries read-only facts about a transport connection.
type TransportMetadata struct {
	Kind       string
	PeerAddr   string
	SentCount  uint64
	ReceivedCount uint64
}

// Transport is the narrow, bidirectional, ordered, framed byte channel the
// dispatch engine consumes (spec.md §4.4/§6.1). It knows nothing about
// JSON-RPC method semantics — only about moving already-decoded Frames in
// order. Implementations must guarantee that Receive returns frames in the
// order the remote peer called Send, and must never expose a partial frame.
type Transport interface {
	// Send enqueues one frame for transmission. It returns once the frame
	// is accepted by the transport, not necessarily once it is flushed to
	// the wire. Fails with a *TransportError on a closed or broken
	// connection.
	Send(ctx context.Context, frame Frame) error

	// Receive blocks until the next inbound frame is available, the
	// context is cancelled, or the stream ends (ErrEndOfStream) or fails
	// (*TransportError).
	Receive(ctx context.Context) (Frame, error)

	// Close half-closes the write side. Subsequent Sends fail; Receives
	// may still drain already-buffered frames before returning
	// ErrEndOfStream. Close must be safe to call more than once.
	Close() error

	// Metadata returns a snapshot of read-only transport facts.
	Metadata() TransportMetadata
}
