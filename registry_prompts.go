package mcp

import (
	"context"
	"encoding/json"
	"sync"
)

// PromptHandler renders a prompt for the given named arguments.
type PromptHandler func(ctx context.Context, args map[string]string) ([]PromptMessage, error)

// PromptArgument describes one named argument a prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptEntry is a registered prompt (spec.md §3), keyed by Name.
type PromptEntry struct {
	Name        string
	Description string
	Arguments   []PromptArgument
	Handler     PromptHandler
}

// GetPromptParams are the parameters of a prompts/get request.
type GetPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// GetPromptResult is the result of a prompts/get request.
type GetPromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// promptListing is the wire shape of one entry in a prompts/list response.
type promptListing struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// ListPromptsResult is the result of a prompts/list request.
type ListPromptsResult struct {
	Prompts    []promptListing `json:"prompts"`
	NextCursor *string         `json:"nextCursor,omitempty"`
}

// PromptRegistry is capability registry C7 for prompts: keyed by name
// (spec.md §4.7 "Prompts").
type PromptRegistry struct {
	session *Session

	mu      sync.RWMutex
	order   []string
	entries map[string]PromptEntry
}

func newPromptRegistry(session *Session) *PromptRegistry {
	return &PromptRegistry{session: session, entries: make(map[string]PromptEntry)}
}

// Register adds or replaces a prompt.
func (r *PromptRegistry) Register(entry PromptEntry) {
	r.mu.Lock()
	_, existed := r.entries[entry.Name]
	r.entries[entry.Name] = entry
	if !existed {
		r.order = append(r.order, entry.Name)
	}
	r.mu.Unlock()

	r.session.broadcastListChanged(notifyPromptsChanged)
}

// Unregister removes a prompt by name.
func (r *PromptRegistry) Unregister(name string) bool {
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
		r.session.broadcastListChanged(notifyPromptsChanged)
	}
	return ok
}

// Lookup returns the entry for name, if registered.
func (r *PromptRegistry) Lookup(name string) (PromptEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// List returns a snapshot of every registered prompt, insertion order.
func (r *PromptRegistry) List() []PromptEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PromptEntry, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name])
	}
	return out
}

func (r *PromptRegistry) handleList(call *InboundCall) (interface{}, error) {
	entries := r.List()
	listing := make([]promptListing, len(entries))
	for i, e := range entries {
		listing[i] = promptListing{Name: e.Name, Description: e.Description, Arguments: e.Arguments}
	}
	return ListPromptsResult{Prompts: listing}, nil
}

func (r *PromptRegistry) handleGet(call *InboundCall) (interface{}, error) {
	var params GetPromptParams
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, NewInvalidParamsError(methodPromptsGet, "GetPromptParams", string(call.Params), err)
	}

	entry, ok := r.Lookup(params.Name)
	if !ok {
		return nil, &MethodNotFoundError{Method: "prompts/get:" + params.Name}
	}

	messages, err := entry.Handler(call.Context, params.Arguments)
	if err != nil {
		return nil, err
	}
	return GetPromptResult{Description: entry.Description, Messages: messages}, nil
}
