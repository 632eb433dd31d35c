package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

// SessionState is the FSM label from spec.md §4.5.
type SessionState int

const (
	StateDisconnected SessionState = iota
	// StateInitializingClient is the client-side state after attach, before
	// the server's InitializeResult arrives.
	StateInitializingClient
	// StateAwaitingInitialize is the server-side state after attach, before
	// the client's initialize request arrives.
	StateAwaitingInitialize
	// StateInitializedWaitingClient is the server-side state after
	// InitializeResult is sent, before notifications/initialized arrives.
	StateInitializedWaitingClient
	StateReady
	StateShuttingDown
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateInitializingClient:
		return "initializing"
	case StateAwaitingInitialize:
		return "awaitingInitialize"
	case StateInitializedWaitingClient:
		return "initializedWaitingClient"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shuttingDown"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Role distinguishes which side of the handshake a Session plays. The
// dispatch engine itself has no client-only or server-only code path
// (spec.md §4.6) — Role only changes which side of the initialize
// handshake this Session drives.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// Session is one active bidirectional protocol relationship over one
// Transport. It owns the FSM (this file) and the dispatch engine
// (dispatch.go): one reader goroutine and one writer goroutine atop the
// Transport, the pending-request/inbound-cancel/progress-subscription
// tables, and the method-routed handler registries.
type Session struct {
	role      Role
	transport Transport
	logger    Logger

	stateMu sync.RWMutex
	state   SessionState

	negotiatedVersion ProtocolVersion
	peerCaps          CapabilityDescriptor
	initializeSeen    atomic.Bool

	supportedVersions []ProtocolVersion

	dispatch dispatcher

	listChangedMu      sync.Mutex
	coalescedListKinds map[string]bool // mutations before Ready, flushed on completeServerHandshake
}

// SessionOption configures a Session at construction.
type SessionOption func(*Session)

// WithLogger installs a structured Logger. The default is NopLogger.
func WithLogger(l Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithSupportedVersions overrides the locally supported protocol version
// set used during negotiation. Defaults to every version this build knows.
func WithSupportedVersions(versions ...ProtocolVersion) SessionOption {
	return func(s *Session) { s.supportedVersions = versions }
}

// WithMaxConcurrentRequests sets a soft ceiling on concurrently-dispatched
// inbound requests (spec.md §4.6 "Concurrency"). n <= 0 means unbounded,
// the default.
func WithMaxConcurrentRequests(n int) SessionOption {
	return func(s *Session) { s.dispatch.maxConcurrent = int64(n) }
}

func newSession(role Role, transport Transport, opts ...SessionOption) *Session {
	s := &Session{
		role:              role,
		transport:         transport,
		logger:            NopLogger{},
		state:             StateDisconnected,
		supportedVersions: append([]ProtocolVersion(nil), versionOrder...),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dispatch.init(s)

	if role == RoleClient {
		s.setState(StateInitializingClient)
	} else {
		s.setState(StateAwaitingInitialize)
	}
	s.dispatch.start()
	return s
}

func (s *Session) State() SessionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Session) setState(next SessionState) {
	s.stateMu.Lock()
	s.state = next
	s.stateMu.Unlock()
}

// NegotiatedVersion returns the protocol version agreed during the
// handshake, or "" before Ready.
func (s *Session) NegotiatedVersion() ProtocolVersion {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.negotiatedVersion
}

// PeerCapabilities returns the capability snapshot negotiated during the
// handshake.
func (s *Session) PeerCapabilities() CapabilityDescriptor {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.peerCaps
}

// checkInboundRequestAllowed gatekeeps which request methods are legal in
// the current state (spec.md §3 I5, §4.5 "Rejections").
func (s *Session) checkInboundRequestAllowed(method string) error {
	state := s.State()

	if method == methodPing {
		if state == StateDisconnected || state == StateClosed {
			return newProtocolError(ErrCodeInvalidRequest, fmt.Sprintf("ping is not legal in state %s", state), nil)
		}
		return nil
	}

	if method == methodInitialize {
		if s.role == RoleServer && state == StateAwaitingInitialize {
			return nil
		}
		return newProtocolError(ErrCodeInvalidRequest, fmt.Sprintf("initialize is not legal in state %s", state), nil)
	}

	if state != StateReady {
		return newProtocolError(ErrCodeInvalidRequest, fmt.Sprintf("method %q is not legal in state %s", method, state), nil)
	}
	return nil
}

// checkInboundNotificationAllowed mirrors checkInboundRequestAllowed for
// notifications; "initialized" is the sole transition trigger out of
// StateInitializedWaitingClient (I5).
func (s *Session) checkInboundNotificationAllowed(method string) bool {
	if method == methodInitializedNotify {
		return s.role == RoleServer && s.State() == StateInitializedWaitingClient
	}
	return s.State() == StateReady
}

// completeClientHandshake transitions a client Session to Ready after a
// successful InitializeResult, storing the negotiated version and peer
// capabilities, and fires the "initialized" notification (§4.5).
func (s *Session) completeClientHandshake(ctx context.Context, version ProtocolVersion, peerCaps CapabilityDescriptor) error {
	s.stateMu.Lock()
	s.negotiatedVersion = version
	s.peerCaps = peerCaps
	s.state = StateReady
	s.stateMu.Unlock()

	return s.dispatch.notify(methodInitializedNotify, nil)
}

// failHandshake transitions to Closed and fails every pending call with
// err, per spec.md §7's HandshakeFailed row.
func (s *Session) failHandshake(err error) {
	s.setState(StateClosed)
	s.dispatch.failAllPending(err)
}

// claimInitialize reports whether this is the first initialize request
// seen by the session, claiming it atomically. A second initialize must be
// rejected with -32600 (spec.md I6).
func (s *Session) claimInitialize() bool {
	return s.initializeSeen.CompareAndSwap(false, true)
}

// beginServerHandshake transitions AwaitingInitialize -> InitializedWaitingClient
// after a server has validated and responded to the client's initialize
// request.
func (s *Session) beginServerHandshake(version ProtocolVersion, peerCaps CapabilityDescriptor) {
	s.stateMu.Lock()
	s.negotiatedVersion = version
	s.peerCaps = peerCaps
	s.state = StateInitializedWaitingClient
	s.stateMu.Unlock()
}

// completeServerHandshake transitions InitializedWaitingClient -> Ready
// upon receiving the "initialized" notification.
func (s *Session) completeServerHandshake() {
	s.setState(StateReady)
}

// beginShutdown transitions Ready -> ShuttingDown: new inbound requests are
// rejected from here on, but in-flight ones are allowed to drain.
func (s *Session) beginShutdown() {
	s.stateMu.Lock()
	if s.state == StateReady {
		s.state = StateShuttingDown
	}
	s.stateMu.Unlock()
}

// Done returns a channel closed once the dispatch engine has torn down,
// whether from an explicit Close, a transport failure, or transport EOF.
func (s *Session) Done() <-chan struct{} {
	return s.dispatch.closed
}

// Close transitions to Closed, closes the transport, and fails every
// pending outbound call.
func (s *Session) Close() error {
	s.stateMu.Lock()
	already := s.state == StateClosed
	s.state = StateClosed
	s.stateMu.Unlock()
	if !already {
		s.dispatch.failAllPending(NewTransportError(TransportKindConnectionClosed, "session closed", nil))
	}
	s.dispatch.stop()
	return s.transport.Close()
}

// Call issues an outbound request and blocks for its matching Response
// (spec.md §4.6 "Outbound API"). Cancelling ctx (or its deadline expiring)
// emits notifications/cancelled and returns a *CanceledError.
func (s *Session) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	return s.dispatch.call(ctx, method, params)
}

// CallWithProgress is Call, but also streams notifications/progress
// updates tied to this request to onProgress as they arrive.
func (s *Session) CallWithProgress(ctx context.Context, method string, params interface{}, onProgress func(ProgressUpdate)) (json.RawMessage, error) {
	return s.dispatch.callWithProgress(ctx, method, params, onProgress)
}

// Notify sends a fire-and-forget Notification.
func (s *Session) Notify(method string, params interface{}) error {
	return s.dispatch.notify(method, params)
}

// Handle registers the handler for an inbound request method. Must be
// called before the peer can legally send that method (i.e. before Ready
// for anything but initialize/ping).
func (s *Session) Handle(method string, h requestHandlerFunc) {
	s.dispatch.handle(method, h)
}

// OnNotification registers a handler for an inbound notification method.
func (s *Session) OnNotification(method string, h notificationHandlerFunc) {
	s.dispatch.onNotification(method, h)
}

// broadcastListChanged emits a notifications/{kind}/list_changed
// notification, unless the session isn't Ready yet, in which case the
// mutation is coalesced and replayed once as part of the Ready transition
// (spec.md §4.7 "List-changed broadcast").
func (s *Session) broadcastListChanged(method string) {
	if s.State() != StateReady {
		s.listChangedMu.Lock()
		if s.coalescedListKinds == nil {
			s.coalescedListKinds = make(map[string]bool)
		}
		s.coalescedListKinds[method] = true
		s.listChangedMu.Unlock()
		return
	}
	if err := s.Notify(method, nil); err != nil {
		s.logger.Warnw("mcp: list_changed notification failed", "method", method, "error", err)
	}
}

// flushCoalescedListChanged replays every list_changed kind that mutated
// before the session reached Ready, once, in no particular order (the
// registries themselves are the source of truth for current content; this
// only tells the peer "go re-list").
func (s *Session) flushCoalescedListChanged() {
	s.listChangedMu.Lock()
	kinds := s.coalescedListKinds
	s.coalescedListKinds = nil
	s.listChangedMu.Unlock()

	for method := range kinds {
		if err := s.Notify(method, nil); err != nil {
			s.logger.Warnw("mcp: coalesced list_changed notification failed", "method", method, "error", err)
		}
	}
}
