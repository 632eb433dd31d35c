package mcp

import (
	"encoding/json"
	"fmt"
)

// Error is the common interface every protocol error kind implements, on
// top of the stdlib error interface: a JSON-RPC code, and the structured
// data (if any) that should ride along in the wire ErrorObject.
type Error interface {
	error
	Code() int
	Data() json.RawMessage
}

// ProtocolError is a ParseError or InvalidRequest detected by the codec
// before a Request's method/id could be trusted.
type ProtocolError struct {
	code int
	msg  string
	err  error
}

func newProtocolError(code int, msg string, cause error) *ProtocolError {
	return &ProtocolError{code: code, msg: msg, err: cause}
}

func (e *ProtocolError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *ProtocolError) Unwrap() error     { return e.err }
func (e *ProtocolError) Code() int         { return e.code }
func (e *ProtocolError) Data() json.RawMessage { return nil }

// MethodNotFoundError reports an unroutable method, optionally listing the
// methods that are available so the peer can self-correct (spec scenario 3).
type MethodNotFoundError struct {
	Method    string
	Available []string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("method not found: %s", e.Method)
}

func (e *MethodNotFoundError) Code() int { return ErrCodeMethodNotFound }

func (e *MethodNotFoundError) Data() json.RawMessage {
	data := struct {
		Method    string   `json:"method"`
		Available []string `json:"available,omitempty"`
	}{e.Method, e.Available}
	b, _ := json.Marshal(data)
	return b
}

// InvalidParamsError reports that a request's params failed to bind against
// the method's expected shape.
type InvalidParamsError struct {
	Method   string
	Path     string
	Expected string
	Actual   string
	cause    error
}

func NewInvalidParamsError(method, expected, actual string, cause error) *InvalidParamsError {
	return &InvalidParamsError{Method: method, Expected: expected, Actual: actual, cause: cause}
}

func (e *InvalidParamsError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("invalid params for %s: %v", e.Method, e.cause)
	}
	return fmt.Sprintf("invalid params for %s: expected %s, got %s", e.Method, e.Expected, e.Actual)
}

func (e *InvalidParamsError) Unwrap() error { return e.cause }
func (e *InvalidParamsError) Code() int     { return ErrCodeInvalidParams }

func (e *InvalidParamsError) Data() json.RawMessage {
	data := struct {
		Method   string `json:"method"`
		Path     string `json:"path,omitempty"`
		Expected string `json:"expected,omitempty"`
		Actual   string `json:"actual,omitempty"`
	}{e.Method, e.Path, e.Expected, e.Actual}
	b, _ := json.Marshal(data)
	return b
}

// InternalError wraps an unexpected handler-side failure.
type InternalError struct {
	Msg   string
	cause error
}

func NewInternalError(msg string, cause error) *InternalError {
	return &InternalError{Msg: msg, cause: cause}
}

func (e *InternalError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("internal error: %s: %v", e.Msg, e.cause)
	}
	return fmt.Sprintf("internal error: %s", e.Msg)
}

func (e *InternalError) Unwrap() error         { return e.cause }
func (e *InternalError) Code() int             { return ErrCodeInternalError }
func (e *InternalError) Data() json.RawMessage { return nil }

// ToolExecutionError wraps a tool handler failure; Data carries whatever
// structured payload the tool chose to attach.
type ToolExecutionError struct {
	Tool string
	data json.RawMessage
	err  error
}

func NewToolExecutionError(tool string, cause error, data json.RawMessage) *ToolExecutionError {
	return &ToolExecutionError{Tool: tool, err: cause, data: data}
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.err)
}

func (e *ToolExecutionError) Unwrap() error         { return e.err }
func (e *ToolExecutionError) Code() int             { return ErrCodeInternalError }
func (e *ToolExecutionError) Data() json.RawMessage { return e.data }

// ResourceNotFoundError reports that no registered resource template
// matched the requested URI.
type ResourceNotFoundError struct {
	URI string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.URI)
}

func (e *ResourceNotFoundError) Code() int { return ErrCodeResourceNotFound }

func (e *ResourceNotFoundError) Data() json.RawMessage {
	b, _ := json.Marshal(struct {
		URI string `json:"uri"`
	}{e.URI})
	return b
}

// UserRejectedError reports that a human declined an elicitation or
// approval request.
type UserRejectedError struct {
	Reason string
}

func (e *UserRejectedError) Error() string {
	if e.Reason == "" {
		return "user rejected"
	}
	return fmt.Sprintf("user rejected: %s", e.Reason)
}

func (e *UserRejectedError) Code() int             { return ErrCodeUserRejected }
func (e *UserRejectedError) Data() json.RawMessage { return nil }

// HandshakeError reports that protocol version negotiation failed. The
// server marks its session Closed and answers the offending initialize
// request with this error; the client's Initialize then returns that
// response as an *RPCError (spec.md §7).
type HandshakeError struct {
	ClientVersion string
	ServerVersion string
	Suggested     string
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("protocol version negotiation failed: client=%s server=%s", e.ClientVersion, e.ServerVersion)
}

// Code reports InvalidRequest, the code carried by the error response to
// the offending initialize request.
func (e *HandshakeError) Code() int { return ErrCodeInvalidRequest }

func (e *HandshakeError) Data() json.RawMessage {
	b, _ := json.Marshal(struct {
		ClientVersion string `json:"clientVersion"`
		ServerVersion string `json:"serverVersion"`
		Suggested     string `json:"suggestedVersion,omitempty"`
	}{e.ClientVersion, e.ServerVersion, e.Suggested})
	return b
}

// TransportKind classifies a transport-level failure.
type TransportKind string

const (
	TransportKindWriteFailed       TransportKind = "writeFailed"
	TransportKindReadFailed        TransportKind = "readFailed"
	TransportKindConnectionClosed  TransportKind = "connectionClosed"
	TransportKindResourceExhausted TransportKind = "resourceExhausted"
)

// TransportError wraps an I/O or connection failure. Transport errors are
// never sent on the wire; they terminate the session (spec.md §4.2).
type TransportError struct {
	Kind    TransportKind
	Context string
	cause   error
}

func NewTransportError(kind TransportKind, context string, cause error) *TransportError {
	return &TransportError{Kind: kind, Context: context, cause: cause}
}

func (e *TransportError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("transport error (%s): %s: %v", e.Kind, e.Context, e.cause)
	}
	return fmt.Sprintf("transport error (%s): %s", e.Kind, e.Context)
}

func (e *TransportError) Unwrap() error { return e.cause }

func (e *TransportError) Is(target error) bool {
	t, ok := target.(*TransportError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// ContextualError wraps an underlying Error with a human-readable message,
// preserving the chain for logging while flattening to a single
// ErrorObject when serialized: the code comes from the innermost concrete
// Error, the message is "context: inner display", and Data is the
// innermost kind's structured fields (spec.md §4.2).
type ContextualError struct {
	message string
	cause   error
}

func WrapContext(message string, cause error) *ContextualError {
	return &ContextualError{message: message, cause: cause}
}

func (e *ContextualError) Error() string {
	return fmt.Sprintf("%s: %v", e.message, e.cause)
}

func (e *ContextualError) Unwrap() error { return e.cause }

func (e *ContextualError) Code() int {
	if inner, ok := innermost(e.cause); ok {
		return inner.Code()
	}
	return ErrCodeInternalError
}

func (e *ContextualError) Data() json.RawMessage {
	if inner, ok := innermost(e.cause); ok {
		return inner.Data()
	}
	return nil
}

// innermost walks an Unwrap chain to the deepest error implementing Error.
func innermost(err error) (Error, bool) {
	var found Error
	for err != nil {
		if e, ok := err.(Error); ok {
			found = e
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return found, found != nil
}

// CanceledError represents cancellation of an in-flight outbound call,
// whether caller-initiated or deadline-driven (spec.md §5 "Timeouts").
type CanceledError struct {
	Reason string
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("request cancelled: %s", e.Reason)
}

func (e *CanceledError) Is(target error) bool {
	_, ok := target.(*CanceledError)
	return ok
}

// RPCError wraps a peer-returned JSON-RPC ErrorObject observed by a caller
// of Call.
type RPCError struct {
	obj *ErrorObject
}

func NewRPCError(obj *ErrorObject) *RPCError {
	return &RPCError{obj: obj}
}

// Error deliberately omits Data — it is peer-controlled and may carry
// sensitive detail. Use Data() to access it explicitly.
func (e *RPCError) Error() string {
	if e.obj == nil {
		return "rpc error: <nil>"
	}
	return fmt.Sprintf("rpc error: code=%d message=%q", e.obj.Code, e.obj.Message)
}

func (e *RPCError) Code() int {
	if e.obj == nil {
		return 0
	}
	return e.obj.Code
}

func (e *RPCError) Data() json.RawMessage {
	if e.obj == nil {
		return nil
	}
	return e.obj.Data
}

func (e *RPCError) Is(target error) bool {
	t, ok := target.(*RPCError)
	if !ok || e.obj == nil || t.obj == nil {
		return false
	}
	return e.obj.Code == t.obj.Code
}

// toErrorObject flattens any error into a wire ErrorObject. Errors that
// don't implement the Error interface are treated as Internal, with their
// message discarded in favor of a generic one — unstructured errors
// shouldn't leak implementation detail across the trust boundary.
func toErrorObject(err error) *ErrorObject {
	if e, ok := err.(Error); ok {
		return &ErrorObject{Code: e.Code(), Message: err.Error(), Data: e.Data()}
	}
	return &ErrorObject{Code: ErrCodeInternalError, Message: "internal error"}
}
