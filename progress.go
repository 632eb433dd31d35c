package mcp

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// ProgressToken is the opaque handle attached to a request (carried in
// params._meta.progressToken) that ties a stream of notifications/progress
// messages back to the request that asked for them (spec.md §3).
type ProgressToken struct {
	Value interface{} // uint64 | string
}

// NewProgressToken mints a fresh string-valued token. Outbound calls that
// ask for progress updates (Session.CallWithProgress, and so
// Session.CallStream) generate one of these rather than
// reusing the counter-based RequestID scheme, so a token remains stable and
// externally meaningful even if the underlying request is retried by a
// caller-supplied wrapper.
func NewProgressToken() ProgressToken {
	return ProgressToken{Value: uuid.NewString()}
}

func (t ProgressToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Value)
}

func (t *ProgressToken) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if f, ok := v.(float64); ok {
		v = uint64(f)
	}
	t.Value = v
	return nil
}

func (t ProgressToken) equal(other ProgressToken) bool {
	return t.Value == other.Value
}

// ProgressUpdate is one notifications/progress message (spec.md §6.2).
type ProgressUpdate struct {
	Token    ProgressToken `json:"progressToken"`
	Progress float64       `json:"progress"`
	Total    *float64      `json:"total,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// progressSink is the callback a progress subscription invokes for every
// matching notifications/progress message.
type progressSink func(ProgressUpdate)

// progressTable is the "progress subscriptions (map ProgressToken->sink)"
// piece of SessionState (spec.md §3), keyed by value equality since
// ProgressToken.Value is always a comparable (string or uint64). It is
// single-writer/concurrent-reader the same way collab_tracker.go's
// AgentTracker guards its map: a plain sync.RWMutex, no fancier primitive
// needed since there is no "wait for change" consumer here (that's
// progress_stream.go's job, via a per-subscription channel instead of this
// table).
type progressTable struct {
	mu   sync.RWMutex
	subs map[interface{}]progressSink
}

func newProgressTable() *progressTable {
	return &progressTable{subs: make(map[interface{}]progressSink)}
}

func (p *progressTable) register(token ProgressToken, sink progressSink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs[token.Value] = sink
}

func (p *progressTable) unregister(token ProgressToken) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subs, token.Value)
}

func (p *progressTable) dispatch(update ProgressUpdate) {
	p.mu.RLock()
	sink, ok := p.subs[update.Token.Value]
	p.mu.RUnlock()
	if ok {
		sink(update)
	}
}

// ProgressReporter is the capability handed to an inbound request handler
// for emitting notifications/progress. It is inert (every method is a
// no-op) when the caller supplied no progress token, exactly as spec.md
// §4.6 "Concurrency" requires: "both are inert no-ops if the caller
// supplied no progress token."
type ProgressReporter struct {
	token *ProgressToken
	d     *dispatcher
}

// Report publishes one progress update by enqueueing a
// notifications/progress message for the caller's token. It does no
// per-token serialization of its own: updates from concurrent callers reach
// the peer in the order they are enqueued.
func (r *ProgressReporter) Report(progress float64, message string) error {
	if r == nil || r.token == nil || r.d == nil {
		return nil
	}
	return r.d.notify(notifyProgress, ProgressUpdate{
		Token:    *r.token,
		Progress: progress,
		Message:  message,
	})
}

// progressMeta mirrors the MCP convention of carrying a progress token in
// an object's "_meta.progressToken" field.
type progressMeta struct {
	Meta *struct {
		ProgressToken *ProgressToken `json:"progressToken,omitempty"`
	} `json:"_meta,omitempty"`
}

// extractProgressToken pulls _meta.progressToken out of an opaque params
// blob, if present. A decode failure is treated the same as "absent" —
// progress is an optional courtesy, not something that should fail an
// otherwise well-formed request.
func extractProgressToken(params json.RawMessage) *ProgressToken {
	if len(params) == 0 {
		return nil
	}
	var m progressMeta
	if err := json.Unmarshal(params, &m); err != nil {
		return nil
	}
	if m.Meta == nil {
		return nil
	}
	return m.Meta.ProgressToken
}

// withProgressToken injects token into the "_meta" object of a params
// value and returns the marshalled JSON; the caller registers its
// subscription against the same token.
func withProgressToken(params interface{}, token ProgressToken) (json.RawMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if len(raw) == 0 || string(raw) == "null" {
		obj = map[string]json.RawMessage{}
	} else if err := json.Unmarshal(raw, &obj); err != nil {
		// params wasn't a JSON object (e.g. an array); progress tokens only
		// attach to object-shaped params, so fall back to the unmodified
		// encoding rather than corrupting it.
		return raw, nil
	}
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return nil, err
	}
	meta := map[string]json.RawMessage{"progressToken": tokenJSON}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	obj["_meta"] = metaJSON
	return json.Marshal(obj)
}
