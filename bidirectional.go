package mcp

import (
	"context"
	"encoding/json"
)

// callTyped issues an outbound Call and unmarshals its result into R,
// the generic counterpart of the teacher's handleApproval[P,R] helper
// (approval.go), used here for both directions of bidirectional traffic:
// server→client (sampling/elicitation/roots) and client→server (tools,
// resources, prompts, tasks).
func callTyped[R any](ctx context.Context, session *Session, method string, params interface{}) (R, error) {
	var zero R
	raw, err := session.Call(ctx, method, params)
	if err != nil {
		return zero, err
	}
	var result R
	if len(raw) == 0 {
		return zero, nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return zero, NewInternalError("unmarshal "+method+" result", err)
	}
	return result, nil
}

// SamplingMessage is one entry in a sampling/createMessage request's
// messages array.
type SamplingMessage struct {
	Role    string           `json:"role"`
	Content ToolContentBlock `json:"content"`
}

func (m SamplingMessage) MarshalJSON() ([]byte, error) {
	content, err := json.Marshal(m.Content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}{Role: m.Role, Content: content})
}

func (m *SamplingMessage) UnmarshalJSON(data []byte) error {
	var aux struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	block, err := unmarshalToolContentBlock(aux.Content)
	if err != nil {
		return err
	}
	m.Role = aux.Role
	m.Content = block
	return nil
}

// ModelHint and ModelPreferences steer which model a client picks to
// service a sampling/createMessage request; the client is free to ignore
// them entirely.
type ModelHint struct {
	Name string `json:"name,omitempty"`
}

type ModelPreferences struct {
	Hints                []ModelHint `json:"hints,omitempty"`
	CostPriority         *float64    `json:"costPriority,omitempty"`
	SpeedPriority        *float64    `json:"speedPriority,omitempty"`
	IntelligencePriority *float64    `json:"intelligencePriority,omitempty"`
}

// CreateMessageParams are the parameters of a sampling/createMessage
// request (spec.md §2 "sampling").
type CreateMessageParams struct {
	Messages         []SamplingMessage `json:"messages"`
	ModelPreferences *ModelPreferences `json:"modelPreferences,omitempty"`
	SystemPrompt     string            `json:"systemPrompt,omitempty"`
	MaxTokens        int               `json:"maxTokens,omitempty"`
}

// CreateMessageResult is the result of a sampling/createMessage request
// (spec.md §8 scenario 6, bit-exact field names).
type CreateMessageResult struct {
	Model      string           `json:"model"`
	Role       string           `json:"role"`
	Content    ToolContentBlock `json:"content"`
	StopReason string           `json:"stopReason,omitempty"`
}

func (r CreateMessageResult) MarshalJSON() ([]byte, error) {
	content, err := json.Marshal(r.Content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Model      string          `json:"model"`
		Role       string          `json:"role"`
		Content    json.RawMessage `json:"content"`
		StopReason string          `json:"stopReason,omitempty"`
	}{Model: r.Model, Role: r.Role, Content: content, StopReason: r.StopReason})
}

func (r *CreateMessageResult) UnmarshalJSON(data []byte) error {
	var aux struct {
		Model      string          `json:"model"`
		Role       string          `json:"role"`
		Content    json.RawMessage `json:"content"`
		StopReason string          `json:"stopReason,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	block, err := unmarshalToolContentBlock(aux.Content)
	if err != nil {
		return err
	}
	r.Model = aux.Model
	r.Role = aux.Role
	r.Content = block
	r.StopReason = aux.StopReason
	return nil
}

// ElicitParams are the parameters of an elicitation/create request: a
// human-readable message plus a JSON Schema describing the structured
// input being requested.
type ElicitParams struct {
	Message         string          `json:"message"`
	RequestedSchema json.RawMessage `json:"requestedSchema"`
}

// ElicitAction is the user's disposition toward an elicitation request.
type ElicitAction string

const (
	ElicitActionAccept  ElicitAction = "accept"
	ElicitActionDecline ElicitAction = "decline"
	ElicitActionCancel  ElicitAction = "cancel"
)

// ElicitResult is the result of an elicitation/create request.
type ElicitResult struct {
	Action  ElicitAction    `json:"action"`
	Content json.RawMessage `json:"content,omitempty"`
}

// Root is one filesystem root a client exposes to a server.
type Root struct {
	URI  string `json:"uri"`
	Name string `json:"name,omitempty"`
}

// ListRootsResult is the result of a roots/list request.
type ListRootsResult struct {
	Roots []Root `json:"roots"`
}

// SamplingHandler services an inbound sampling/createMessage request on
// the client side.
type SamplingHandler func(ctx context.Context, params CreateMessageParams) (CreateMessageResult, error)

// ElicitationHandler services an inbound elicitation/create request on
// the client side. Returning a *UserRejectedError answers the request with
// a JSON-RPC error (code ErrCodeUserRejected) rather than an ElicitResult,
// so the server's Elicit fails with an *RPCError carrying that code.
type ElicitationHandler func(ctx context.Context, params ElicitParams) (ElicitResult, error)

// RootsListHandler services an inbound roots/list request on the client
// side.
type RootsListHandler func(ctx context.Context) (ListRootsResult, error)

// wrapTypedHandler adapts a typed (params, result) handler function into
// the engine's requestHandlerFunc shape, the same unmarshal/marshal
// bridge the teacher's handleApproval[P,R] provides for server→client
// requests — reused here for both directions.
func wrapTypedHandler[P any, R any](method string, h func(ctx context.Context, params P) (R, error)) requestHandlerFunc {
	return func(call *InboundCall) (interface{}, error) {
		var params P
		if len(call.Params) > 0 {
			if err := json.Unmarshal(call.Params, &params); err != nil {
				return nil, NewInvalidParamsError(method, "", string(call.Params), err)
			}
		}
		return h(call.Context, params)
	}
}
