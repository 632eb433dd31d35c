package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// requestHandlerFunc handles one inbound Request. Returning a non-nil error
// serializes it onto the wire via toErrorObject; a nil error serializes the
// returned value as the success result.
type requestHandlerFunc func(call *InboundCall) (interface{}, error)

// notificationHandlerFunc handles one inbound Notification whose method is
// not one of the engine's own special-cased methods (cancelled, progress,
// initialized).
type notificationHandlerFunc func(ctx context.Context, params json.RawMessage)

// InboundCall is what a registered requestHandlerFunc receives: the
// request's raw params, a cancellation signal that fires if the peer sends
// notifications/cancelled for this id, and a progress reporter that is
// inert unless the caller attached a progress token (spec.md §4.6, §5).
type InboundCall struct {
	Context  context.Context
	ID       RequestID
	Method   string
	Params   json.RawMessage
	Cancel   *CancelSignal
	Progress *ProgressReporter
}

// CancelSignal is a one-shot, observable cancellation flag, used both for
// inbound requests (fired by a peer's notifications/cancelled) and
// threaded through to the context a handler runs under (spec.md §5).
type CancelSignal struct {
	once   sync.Once
	ch     chan struct{}
	reason string
	mu     sync.Mutex
}

func newCancelSignal() *CancelSignal {
	return &CancelSignal{ch: make(chan struct{})}
}

// Cancel fires the signal. Safe to call more than once; only the first
// call's reason sticks.
func (c *CancelSignal) Cancel(reason string) {
	c.once.Do(func() {
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()
		close(c.ch)
	})
}

// Done returns a channel closed when Cancel is called.
func (c *CancelSignal) Done() <-chan struct{} { return c.ch }

// Cancelled reports whether Cancel has already fired.
func (c *CancelSignal) Cancelled() bool {
	select {
	case <-c.ch:
		return true
	default:
		return false
	}
}

// Reason returns the reason passed to Cancel, or "" before cancellation.
func (c *CancelSignal) Reason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// pendingRequest is the PendingRequest of spec.md §3: it lives only while
// an outbound call awaits its matching Response. trace is a log-correlation
// id only — it carries no protocol meaning and never rides the wire.
type pendingRequest struct {
	method   string
	trace    string
	resultCh chan callResult
}

type callResult struct {
	result json.RawMessage
	err    error
}

// dispatcher is component C6, embedded by value in Session. It owns the
// reader loop, writer queue, pending/inbound/progress tables, and the
// method router, for both client and server roles alike — there is no
// client-only or server-only code path here (spec.md §4.6, §9).
type dispatcher struct {
	session *Session

	nextID atomic.Int64

	mu      sync.Mutex
	pending map[int64]*pendingRequest // keyed by RequestID.Value when it's our own counter id
	inbound map[string]*CancelSignal  // keyed by RequestID.String()

	router     map[string]requestHandlerFunc
	notifiers  map[string]notificationHandlerFunc
	routerMu   sync.RWMutex

	progress *progressTable

	writeCh chan Frame
	closed  chan struct{}
	closeOnce sync.Once

	baseCtx    context.Context
	cancelBase context.CancelFunc

	wg sync.WaitGroup

	maxConcurrent int64
	inFlight      atomic.Int64
}

const defaultWriteQueueDepth = 256

func (d *dispatcher) init(s *Session) {
	d.session = s
	d.pending = make(map[int64]*pendingRequest)
	d.inbound = make(map[string]*CancelSignal)
	d.router = make(map[string]requestHandlerFunc)
	d.notifiers = make(map[string]notificationHandlerFunc)
	d.progress = newProgressTable()
	d.writeCh = make(chan Frame, defaultWriteQueueDepth)
	d.closed = make(chan struct{})
	d.baseCtx, d.cancelBase = context.WithCancel(context.Background())
}

// handle registers the handler for an inbound request method. Called by
// Server/Client wiring before the session starts handling traffic.
func (d *dispatcher) handle(method string, h requestHandlerFunc) {
	d.routerMu.Lock()
	defer d.routerMu.Unlock()
	d.router[method] = h
}

// onNotification registers a handler for an inbound notification method
// not already special-cased by the engine.
func (d *dispatcher) onNotification(method string, h notificationHandlerFunc) {
	d.routerMu.Lock()
	defer d.routerMu.Unlock()
	d.notifiers[method] = h
}

func (d *dispatcher) availableMethods() []string {
	d.routerMu.RLock()
	defer d.routerMu.RUnlock()
	out := make([]string, 0, len(d.router))
	for m := range d.router {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// start launches the reader and writer goroutines. Must be called exactly
// once, after init and after every built-in/handler registration the
// constructor wants in place before the first frame can possibly arrive.
func (d *dispatcher) start() {
	d.wg.Add(2)
	go d.readLoop()
	go d.writeLoop()
}

func (d *dispatcher) readLoop() {
	defer d.wg.Done()
	for {
		frame, err := d.session.transport.Receive(d.baseCtx)
		if err != nil {
			d.handleTransportFailure(err)
			return
		}
		d.route(frame)
	}
}

func (d *dispatcher) handleTransportFailure(err error) {
	if err == ErrEndOfStream {
		d.session.beginShutdown()
		d.session.setState(StateClosed)
		d.failAllPending(NewTransportError(TransportKindConnectionClosed, "peer closed connection", nil))
		d.stop()
		return
	}
	if err == context.Canceled {
		return
	}
	d.session.setState(StateClosed)
	te, ok := err.(*TransportError)
	if !ok {
		te = NewTransportError(TransportKindReadFailed, "transport receive failed", err)
	}
	d.failAllPending(te)
	d.stop()
}

func (d *dispatcher) writeLoop() {
	defer d.wg.Done()
	for {
		select {
		case frame, ok := <-d.writeCh:
			if !ok {
				return
			}
			if err := d.session.transport.Send(d.baseCtx, frame); err != nil {
				d.session.logger.Warnw("mcp: transport send failed", "error", err)
			}
		case <-d.closed:
			// Drain whatever is already queued before exiting so responses
			// produced just before Close still have a chance to go out.
			for {
				select {
				case frame := <-d.writeCh:
					_ = d.session.transport.Send(d.baseCtx, frame)
					continue
				default:
				}
				return
			}
		}
	}
}

// stop tears down the dispatcher: cancels the base context (unblocking any
// handler selecting on it) and signals the writer loop to drain and exit.
// It does not wait for the loops to finish, since the reader loop itself
// calls it on transport failure.
func (d *dispatcher) stop() {
	d.closeOnce.Do(func() {
		close(d.closed)
		d.cancelBase()
	})
}

// enqueue hands one outbound frame to the writer loop, preserving
// producer-submission order across every caller (spec.md §4.6 "Ordering
// guarantees" (b)).
func (d *dispatcher) enqueue(frame Frame) error {
	select {
	case d.writeCh <- frame:
		return nil
	case <-d.closed:
		return NewTransportError(TransportKindConnectionClosed, "session closed", nil)
	}
}

func (d *dispatcher) route(frame Frame) {
	if frame.IsBatch() {
		for _, f := range frame.Batch {
			d.route(f)
		}
		return
	}
	switch {
	case frame.Response != nil:
		d.handleResponse(frame.Response)
	case frame.Notification != nil:
		d.handleNotification(frame.Notification)
	case frame.Request != nil:
		d.handleRequest(frame.Request)
	}
}

// handleResponse correlates an inbound Response to its pending outbound
// call by id (spec.md §3 I1). Unmatched responses are logged and dropped.
func (d *dispatcher) handleResponse(resp *Response) {
	key, ok := idKey(resp.ID)
	if !ok {
		d.session.logger.Warnw("mcp: dropping response with non-numeric id", "id", resp.ID.String())
		return
	}
	d.mu.Lock()
	pr, ok := d.pending[key]
	if ok {
		delete(d.pending, key)
	}
	d.mu.Unlock()

	if !ok {
		d.session.logger.Warnw("mcp: dropping unmatched response", "id", resp.ID.String())
		return
	}

	var cr callResult
	if resp.Error != nil {
		cr.err = NewRPCError(resp.Error)
	} else {
		cr.result = resp.Result
	}
	d.session.logger.Debugw("mcp: outbound call completed", "method", pr.method, "trace", pr.trace)
	select {
	case pr.resultCh <- cr:
	default:
	}
}

// idKey extracts the int64 form of a RequestID assigned by this engine's
// own counter. Outbound ids minted by this dispatcher are always int64, so
// any Response id that isn't one can never match a pending call.
func idKey(id RequestID) (int64, bool) {
	v, ok := id.Value.(int64)
	return v, ok
}

func (d *dispatcher) handleNotification(n *Notification) {
	switch n.Method {
	case notifyCancelled:
		var params struct {
			RequestID RequestID `json:"requestId"`
			Reason    string    `json:"reason"`
		}
		if err := json.Unmarshal(n.Params, &params); err != nil {
			return
		}
		d.mu.Lock()
		cancel, ok := d.inbound[params.RequestID.String()]
		d.mu.Unlock()
		if ok {
			cancel.Cancel(params.Reason)
		}
	case notifyProgress:
		var update ProgressUpdate
		if err := json.Unmarshal(n.Params, &update); err != nil {
			return
		}
		d.progress.dispatch(update)
	case methodInitializedNotify:
		if !d.session.checkInboundNotificationAllowed(n.Method) {
			return
		}
		d.session.completeServerHandshake()
		d.session.flushCoalescedListChanged()
	default:
		if !d.session.checkInboundNotificationAllowed(n.Method) {
			return
		}
		d.routerMu.RLock()
		h, ok := d.notifiers[n.Method]
		d.routerMu.RUnlock()
		if ok {
			h(d.baseCtx, n.Params)
		}
		// Unknown notifications are ignored per JSON-RPC (spec.md §4.6).
	}
}

func (d *dispatcher) handleRequest(req *Request) {
	if err := d.session.checkInboundRequestAllowed(req.Method); err != nil {
		d.writeError(req.ID, err)
		return
	}

	d.routerMu.RLock()
	handler, ok := d.router[req.Method]
	d.routerMu.RUnlock()
	if !ok {
		d.writeError(req.ID, &MethodNotFoundError{Method: req.Method, Available: d.availableMethods()})
		return
	}

	if d.maxConcurrent > 0 {
		if d.inFlight.Load() >= d.maxConcurrent {
			d.writeError(req.ID, NewInternalError("too many concurrent inbound requests", nil))
			return
		}
	}

	cancel := newCancelSignal()
	idStr := req.ID.String()
	d.mu.Lock()
	d.inbound[idStr] = cancel
	d.mu.Unlock()

	d.inFlight.Add(1)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.inFlight.Add(-1)
		defer func() {
			d.mu.Lock()
			delete(d.inbound, idStr)
			d.mu.Unlock()
		}()

		ctx, cancelCtx := context.WithCancel(d.baseCtx)
		defer cancelCtx()
		stopWatch := make(chan struct{})
		defer close(stopWatch)
		go func() {
			select {
			case <-cancel.Done():
				cancelCtx()
			case <-stopWatch:
			}
		}()

		call := &InboundCall{
			Context: ctx,
			ID:      req.ID,
			Method:  req.Method,
			Params:  req.Params,
			Cancel:  cancel,
			Progress: &ProgressReporter{
				token: extractProgressToken(req.Params),
				d:     d,
			},
		}

		result, err := d.safeInvoke(handler, call)
		if err != nil {
			d.writeError(req.ID, err)
			return
		}
		d.writeResult(req.ID, result)
	}()
}

// safeInvoke recovers a panicking handler, converting it into an Internal
// error response rather than crashing the reader's goroutine pool.
func (d *dispatcher) safeInvoke(h requestHandlerFunc, call *InboundCall) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.session.logger.Errorw("mcp: recovered panic in request handler", "method", call.Method, "panic", r)
			err = NewInternalError(fmt.Sprintf("handler panicked: %v", r), nil)
		}
	}()
	return h(call)
}

func (d *dispatcher) writeResult(id RequestID, result interface{}) {
	raw, err := json.Marshal(result)
	if err != nil {
		d.writeError(id, NewInternalError("marshal handler result", err))
		return
	}
	_ = d.enqueue(Frame{Response: &Response{JSONRPC: jsonrpcVersion, ID: id, Result: raw}})
}

func (d *dispatcher) writeError(id RequestID, err error) {
	_ = d.enqueue(Frame{Response: &Response{JSONRPC: jsonrpcVersion, ID: id, Error: toErrorObject(err)}})
}

// failAllPending resolves every outstanding outbound call with err — used
// when the session transitions to Closed from a transport failure or
// handshake failure (spec.md §7).
func (d *dispatcher) failAllPending(err error) {
	d.mu.Lock()
	pending := d.pending
	d.pending = make(map[int64]*pendingRequest)
	d.mu.Unlock()

	for _, pr := range pending {
		d.session.logger.Warnw("mcp: failing pending outbound call", "method", pr.method, "trace", pr.trace, "error", err)
		select {
		case pr.resultCh <- callResult{err: err}:
		default:
		}
	}
}

// notify sends a fire-and-forget Notification. Used both internally (the
// "initialized" notification, progress publishes, cancellation) and by the
// public Session.Notify wrapper.
func (d *dispatcher) notify(method string, params interface{}) error {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("mcp: marshal notification params for %s: %w", method, err)
		}
		raw = b
	}
	return d.enqueue(Frame{Notification: &Notification{JSONRPC: jsonrpcVersion, Method: method, Params: raw}})
}

// call implements the Outbound API of spec.md §4.6: assigns a fresh id,
// registers a completion sink, writes the frame, and waits for a matching
// Response, a peer-side error, caller cancellation/timeout, or session
// close.
func (d *dispatcher) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	return d.callWithProgress(ctx, method, params, nil)
}

func (d *dispatcher) callWithProgress(ctx context.Context, method string, params interface{}, onProgress func(ProgressUpdate)) (json.RawMessage, error) {
	id := d.nextID.Add(1)

	var raw json.RawMessage
	var token ProgressToken
	var hasToken bool
	if onProgress != nil {
		token = NewProgressToken()
		hasToken = true
		b, err := withProgressToken(params, token)
		if err != nil {
			return nil, fmt.Errorf("mcp: marshal request params for %s: %w", method, err)
		}
		raw = b
	} else if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("mcp: marshal request params for %s: %w", method, err)
		}
		raw = b
	}

	trace := newTraceID()
	resultCh := make(chan callResult, 1)
	d.mu.Lock()
	d.pending[id] = &pendingRequest{method: method, trace: trace, resultCh: resultCh}
	d.mu.Unlock()

	if hasToken {
		d.progress.register(token, onProgress)
		defer d.progress.unregister(token)
	}

	reqID := RequestID{Value: id}
	if err := d.enqueue(Frame{Request: &Request{JSONRPC: jsonrpcVersion, ID: reqID, Method: method, Params: raw}}); err != nil {
		d.mu.Lock()
		delete(d.pending, id)
		d.mu.Unlock()
		return nil, err
	}

	select {
	case res := <-resultCh:
		return res.result, res.err
	case <-ctx.Done():
		reason := "user"
		if ctx.Err() == context.DeadlineExceeded {
			reason = "timeout"
		}
		d.cancelOutbound(id, reqID, reason, trace)
		return nil, &CanceledError{Reason: reason}
	case <-d.closed:
		return nil, NewTransportError(TransportKindConnectionClosed, "session closed", nil)
	}
}

// cancelOutbound implements spec.md I7/P3: unregister the pending id, emit
// notifications/cancelled, and let the (possible) eventual Response be
// dropped by handleResponse's "unmatched" path.
func (d *dispatcher) cancelOutbound(id int64, reqID RequestID, reason, trace string) {
	d.mu.Lock()
	delete(d.pending, id)
	d.mu.Unlock()

	d.session.logger.Debugw("mcp: cancelling outbound call", "id", reqID.String(), "reason", reason, "trace", trace)

	_ = d.notify(notifyCancelled, struct {
		RequestID RequestID `json:"requestId"`
		Reason    string    `json:"reason,omitempty"`
	}{RequestID: reqID, Reason: reason})
}

// newTraceID is used only for log-field correlation (SPEC_FULL.md §4
// DOMAIN STACK row for google/uuid) — it carries no protocol meaning.
func newTraceID() string {
	return uuid.NewString()
}
