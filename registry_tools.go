package mcp

import (
	"context"
	"encoding/json"
	"sync"
)

// ToolAnnotations are optional hints about a tool's side effects, carried
// as pointer-bool fields so an absent hint is distinguishable from an
// explicit false, the same pattern the teacher's model.go uses for
// capability structs.
type ToolAnnotations struct {
	ReadOnlyHint    *bool `json:"readOnlyHint,omitempty"`
	IdempotentHint  *bool `json:"idempotentHint,omitempty"`
	DestructiveHint *bool `json:"destructiveHint,omitempty"`
}

// ToolHandler executes a tool call. Binding arguments against InputSchema
// is the handler's responsibility, not the registry's (spec.md §4.7).
type ToolHandler func(ctx context.Context, call ToolCall) (CallToolResult, error)

// ToolCall is what a ToolHandler receives.
type ToolCall struct {
	Name      string
	Arguments json.RawMessage
	Progress  *ProgressReporter
}

// ToolEntry is a registered tool (spec.md §3).
type ToolEntry struct {
	Name        string
	Title       string
	Description string
	InputSchema json.RawMessage
	Annotations ToolAnnotations
	Handler     ToolHandler
}

// CallToolParams are the parameters of a tools/call request.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// toolListing is the wire shape of one entry in a tools/list response.
type toolListing struct {
	Name        string           `json:"name"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	InputSchema json.RawMessage  `json:"inputSchema"`
	Annotations *ToolAnnotations `json:"annotations,omitempty"`
}

// ListToolsResult is the result of a tools/list request.
type ListToolsResult struct {
	Tools      []toolListing `json:"tools"`
	NextCursor *string       `json:"nextCursor,omitempty"`
}

// ToolRegistry is capability registry C7 for tools: ordered by insertion
// for listing stability, O(1) lookup by name, unique names (spec.md I3).
// Mutation after the session is Ready triggers notifications/tools/list_changed
// (spec.md §4.7), coalesced until Ready per §4.7's closing paragraph.
type ToolRegistry struct {
	session *Session

	mu      sync.RWMutex
	order   []string
	entries map[string]ToolEntry
}

func newToolRegistry(session *Session) *ToolRegistry {
	return &ToolRegistry{session: session, entries: make(map[string]ToolEntry)}
}

// Register adds or replaces a tool. Registering a name that already
// exists replaces its entry in place (same position in listing order) and
// still triggers list_changed, since the content set changed (spec.md P7).
func (r *ToolRegistry) Register(entry ToolEntry) {
	r.mu.Lock()
	_, existed := r.entries[entry.Name]
	r.entries[entry.Name] = entry
	if !existed {
		r.order = append(r.order, entry.Name)
	}
	r.mu.Unlock()

	r.session.broadcastListChanged(notifyToolsListChanged)
}

// Unregister removes a tool by name, reporting whether it was present.
func (r *ToolRegistry) Unregister(name string) bool {
	r.mu.Lock()
	_, ok := r.entries[name]
	if ok {
		delete(r.entries, name)
		for i, n := range r.order {
			if n == name {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	if ok {
		r.session.broadcastListChanged(notifyToolsListChanged)
	}
	return ok
}

// Lookup returns the entry for name, if registered.
func (r *ToolRegistry) Lookup(name string) (ToolEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// List returns a snapshot of every registered tool, insertion order.
func (r *ToolRegistry) List() []ToolEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolEntry, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name])
	}
	return out
}

// handleList implements the tools/list request handler.
func (r *ToolRegistry) handleList(call *InboundCall) (interface{}, error) {
	entries := r.List()
	listing := make([]toolListing, len(entries))
	for i, e := range entries {
		var ann *ToolAnnotations
		if e.Annotations != (ToolAnnotations{}) {
			a := e.Annotations
			ann = &a
		}
		listing[i] = toolListing{
			Name:        e.Name,
			Title:       e.Title,
			Description: e.Description,
			InputSchema: e.InputSchema,
			Annotations: ann,
		}
	}
	return ListToolsResult{Tools: listing}, nil
}

// handleCall implements the tools/call request handler: (1) lookup,
// (2) dispatch — argument binding against InputSchema is left to the
// handler — (3) wrap the result, or a handler error, as a CallToolResult
// with isError set (spec.md §4.7's tool invocation path).
func (r *ToolRegistry) handleCall(call *InboundCall) (interface{}, error) {
	var params CallToolParams
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, NewInvalidParamsError(methodToolsCall, "CallToolParams", string(call.Params), err)
	}

	entry, ok := r.Lookup(params.Name)
	if !ok {
		return nil, &MethodNotFoundError{Method: "tools/call:" + params.Name}
	}

	result, err := entry.Handler(call.Context, ToolCall{
		Name:      params.Name,
		Arguments: params.Arguments,
		Progress:  call.Progress,
	})
	if err != nil {
		if toolErr, ok := err.(*ToolExecutionError); ok {
			return CallToolResult{
				IsError: true,
				Content: []ToolContentBlock{TextContent{Text: toolErr.Error()}},
			}, nil
		}
		return CallToolResult{
			IsError: true,
			Content: []ToolContentBlock{TextContent{Text: err.Error()}},
		}, nil
	}
	return result, nil
}
