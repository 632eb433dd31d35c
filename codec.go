package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// jsonrpcVersion is the protocol version string for JSON-RPC 2.0.
const jsonrpcVersion = "2.0"

// JSON-RPC 2.0 reserved error codes, plus the MCP-specific
// resource-not-found code (in the server-defined [-32099,-32000] range) and
// the user-rejected code (-1).
const (
	ErrCodeParseError        = -32700
	ErrCodeInvalidRequest    = -32600
	ErrCodeMethodNotFound    = -32601
	ErrCodeInvalidParams     = -32602
	ErrCodeInternalError     = -32603
	ErrCodeResourceNotFound  = -32002
	ErrCodeUserRejected      = -1
)

// RequestID is a union of int64 | string | nil, matching the JSON-RPC 2.0
// id field. The zero value represents a notification (no id).
type RequestID struct {
	Value interface{} // int64 | string | nil
}

// IsNil reports whether the id is the JSON null used for notifications and
// for responses to requests that could not be parsed.
func (r RequestID) IsNil() bool {
	return r.Value == nil
}

// Equal reports whether two ids carry the same variant and value, per the
// spec's "equality and hashing are by variant+value" rule.
func (r RequestID) Equal(other RequestID) bool {
	return r.Value == other.Value
}

func (r RequestID) String() string {
	switch v := r.Value.(type) {
	case nil:
		return "<nil>"
	case string:
		return v
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// MarshalJSON implements json.Marshaler for RequestID.
func (r RequestID) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Value)
}

// UnmarshalJSON implements json.Unmarshaler for RequestID. Fractional
// numbers and non-finite floats are rejected by Decode before this is ever
// called on a standalone id value; here we just normalize whole-number
// floats (the only numeric shape encoding/json hands us) to int64.
func (r *RequestID) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if f, ok := v.(float64); ok {
		v = int64(f)
	}
	r.Value = v
	return nil
}

// Request is a JSON-RPC 2.0 request: a method call that expects a Response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      RequestID       `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Notification is a JSON-RPC 2.0 notification: a method call with no id and
// no expected response.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response: exactly one of Result or Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      RequestID       `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is a JSON-RPC 2.0 error object.
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Frame is a decoded inbound message: exactly one of Request, Notification,
// Response, or Batch is non-nil/non-empty.
type Frame struct {
	Request      *Request
	Notification *Notification
	Response     *Response
	Batch        []Frame
}

// IsBatch reports whether the frame is a JSON array of ≥1 messages.
func (f Frame) IsBatch() bool {
	return f.Batch != nil
}

// envelope is the peek structure decodeObject uses to decide whether an
// object is a request, a notification, or a response, per spec.md §4.1
// rule 4.
type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  *string         `json:"method"`
	Params  json.RawMessage `json:"params"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
}

// Decode parses a single top-level JSON value (object or array) into a
// Frame. It never performs I/O; callers own framing (newline delimiting,
// SSE events, WebSocket text messages, ...).
func Decode(data []byte) (Frame, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Frame{}, newProtocolError(ErrCodeParseError, "empty message", nil)
	}

	if trimmed[0] == '[' {
		return decodeBatch(trimmed)
	}
	return decodeObject(trimmed)
}

func decodeBatch(data []byte) (Frame, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Frame{}, newProtocolError(ErrCodeParseError, "invalid JSON", err)
	}
	if len(raw) == 0 {
		return Frame{}, newProtocolError(ErrCodeInvalidRequest, "empty batch", nil)
	}
	out := make([]Frame, len(raw))
	for i, elem := range raw {
		f, err := decodeObject(elem)
		if err != nil {
			return Frame{}, err
		}
		out[i] = f
	}
	return Frame{Batch: out}, nil
}

func decodeObject(data []byte) (Frame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Frame{}, newProtocolError(ErrCodeParseError, "invalid JSON", err)
	}
	if env.JSONRPC != jsonrpcVersion {
		return Frame{}, newProtocolError(ErrCodeInvalidRequest, `missing or invalid "jsonrpc" field`, nil)
	}
	if len(env.Result) > 0 && len(env.Error) > 0 {
		return Frame{}, newProtocolError(ErrCodeInvalidRequest, "response carries both result and error", nil)
	}

	hasID := len(env.ID) > 0 && !bytes.Equal(bytes.TrimSpace(env.ID), []byte("null"))
	hasMethod := env.Method != nil

	switch {
	case hasMethod && hasID:
		id, err := decodeID(env.ID)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Request: &Request{JSONRPC: jsonrpcVersion, ID: id, Method: *env.Method, Params: env.Params}}, nil

	case hasMethod && !hasID:
		return Frame{Notification: &Notification{JSONRPC: jsonrpcVersion, Method: *env.Method, Params: env.Params}}, nil

	case !hasMethod && (len(env.Result) > 0 || len(env.Error) > 0):
		id, err := decodeID(env.ID)
		if err != nil {
			return Frame{}, err
		}
		resp := Response{JSONRPC: jsonrpcVersion, ID: id, Result: env.Result}
		if len(env.Error) > 0 {
			var eo ErrorObject
			if err := json.Unmarshal(env.Error, &eo); err != nil {
				return Frame{}, newProtocolError(ErrCodeInvalidRequest, "malformed error object", err)
			}
			resp.Error = &eo
		}
		return Frame{Response: &resp}, nil

	default:
		return Frame{}, newProtocolError(ErrCodeInvalidRequest, "message is neither request, notification, nor response", nil)
	}
}

// decodeID parses the raw id field, rejecting fractional numbers and
// non-finite floats per spec.md §4.1 rule 6. A missing id field decodes to
// nil (used only for the batch-of-one response-with-parse-error case).
func decodeID(raw json.RawMessage) (RequestID, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return RequestID{}, nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return RequestID{}, newProtocolError(ErrCodeInvalidRequest, "malformed id", err)
	}
	switch t := v.(type) {
	case string:
		return RequestID{Value: t}, nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return RequestID{}, newProtocolError(ErrCodeInvalidRequest, "id must be finite", nil)
		}
		if t != math.Trunc(t) {
			return RequestID{}, newProtocolError(ErrCodeInvalidRequest, "id must not be fractional", nil)
		}
		return RequestID{Value: int64(t)}, nil
	default:
		return RequestID{}, newProtocolError(ErrCodeInvalidRequest, "id must be a string, integer, or null", nil)
	}
}

// Encode serializes a Request, Notification, Response, or []Frame (batch)
// back to wire bytes. Field order follows spec.md §4.1: jsonrpc, id?,
// method?, then params?/result?/error?.
func Encode(msg interface{}) ([]byte, error) {
	switch m := msg.(type) {
	case Request:
		return json.Marshal(m)
	case *Request:
		return json.Marshal(m)
	case Notification:
		return json.Marshal(m)
	case *Notification:
		return json.Marshal(m)
	case Response:
		return json.Marshal(m)
	case *Response:
		return json.Marshal(m)
	case []Frame:
		return encodeBatch(m)
	default:
		return nil, fmt.Errorf("mcp: cannot encode value of type %T as a JSON-RPC frame", msg)
	}
}

func encodeBatch(frames []Frame) ([]byte, error) {
	parts := make([]json.RawMessage, 0, len(frames))
	for _, f := range frames {
		var (
			b   []byte
			err error
		)
		switch {
		case f.Request != nil:
			b, err = Encode(f.Request)
		case f.Notification != nil:
			b, err = Encode(f.Notification)
		case f.Response != nil:
			b, err = Encode(f.Response)
		default:
			err = fmt.Errorf("mcp: empty frame in batch")
		}
		if err != nil {
			return nil, err
		}
		parts = append(parts, b)
	}
	return json.Marshal(parts)
}
