package mcp

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"sync"
)

// ResourceHandler reads a resource, given the fields captured from the
// matched URI template.
type ResourceHandler func(ctx context.Context, uri string, captures map[string]string) (ReadResourceResult, error)

// ResourceEntry is a registered resource (spec.md §3). URIPattern is a URI
// template per RFC 6570's subset the spec names: "{name}" for a single
// path segment, "{/path*}" for a greedy multi-segment tail (its leading
// slash is optional in the URI, so "file:///{/path*}" and
// "file://{/path*}" both match "file:///a/b").
type ResourceEntry struct {
	URIPattern  string
	Name        string
	Description string
	MimeType    string
	Handler     ResourceHandler
}

// ReadResourceResult is the result of a resources/read request.
type ReadResourceResult struct {
	Contents []EmbeddedResourceContent `json:"contents"`
}

// MarshalJSON writes each entry of Contents in the flat resources/read
// shape ({uri, mimeType, text|blob}), not the {"type":"resource",...}
// wrapper EmbeddedResourceContent uses inside a tool content array.
func (r ReadResourceResult) MarshalJSON() ([]byte, error) {
	type flat EmbeddedResourceContent
	contents := make([]flat, len(r.Contents))
	for i, c := range r.Contents {
		contents[i] = flat(c)
	}
	return json.Marshal(struct {
		Contents []flat `json:"contents"`
	}{Contents: contents})
}

// resourceListing is the wire shape of one entry in a resources/list
// response.
type resourceListing struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ListResourcesResult is the result of a resources/list request.
type ListResourcesResult struct {
	Resources  []resourceListing `json:"resources"`
	NextCursor *string           `json:"nextCursor,omitempty"`
}

// ReadResourceParams are the parameters of a resources/read request.
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// compiledTemplate is a ResourceEntry plus the regexp it compiles to and
// the literal-prefix length used for specificity tie-breaking (spec.md
// §4.7 "Resources": "longer literal prefix wins; on tie, registration
// order wins").
type compiledTemplate struct {
	entry         ResourceEntry
	re            *regexp.Regexp
	fieldNames    []string
	literalPrefix int
	seq           int // registration order, for tie-breaking
}

var templateFieldRe = regexp.MustCompile(`\{(/?)([a-zA-Z_][a-zA-Z0-9_]*)(\*?)\}`)

// compileTemplate turns a URI template into a regexp that captures each
// named field, following the two forms named in spec.md §4.7: "{name}"
// matches one non-slash path segment, "{/path*}" greedily matches a
// possibly multi-segment tail, consuming one leading slash if present (the
// capture never includes it).
func compileTemplate(pattern string) *compiledTemplate {
	var out strings.Builder
	out.WriteString("^")
	literalPrefix := 0
	measuring := true
	fields := make([]string, 0)

	last := 0
	for _, loc := range templateFieldRe.FindAllStringSubmatchIndex(pattern, -1) {
		start, end := loc[0], loc[1]
		literal := pattern[last:start]
		out.WriteString(regexp.QuoteMeta(literal))
		if measuring {
			literalPrefix += len(literal)
			measuring = false
		}

		slashPrefixed := loc[3] > loc[2]
		name := pattern[loc[4]:loc[5]]
		greedy := loc[7] > loc[6]
		fields = append(fields, name)

		switch {
		case slashPrefixed && greedy:
			out.WriteString(`/?(?P<` + name + `>.*)`)
		case greedy:
			out.WriteString(`(?P<` + name + `>.*)`)
		default:
			out.WriteString(`(?P<` + name + `>[^/]+)`)
		}
		last = end
	}
	trailingLiteral := pattern[last:]
	out.WriteString(regexp.QuoteMeta(trailingLiteral))
	if measuring {
		literalPrefix += len(trailingLiteral)
	}
	out.WriteString("$")

	re := regexp.MustCompile(out.String())
	return &compiledTemplate{re: re, fieldNames: fields, literalPrefix: literalPrefix}
}

func (t *compiledTemplate) match(uri string) (map[string]string, bool) {
	m := t.re.FindStringSubmatch(uri)
	if m == nil {
		return nil, false
	}
	captures := make(map[string]string, len(t.fieldNames))
	for _, name := range t.fieldNames {
		idx := t.re.SubexpIndex(name)
		if idx >= 0 && idx < len(m) {
			captures[name] = m[idx]
		}
	}
	return captures, true
}

// ResourceRegistry is capability registry C7 for resources (spec.md §4.7).
type ResourceRegistry struct {
	session *Session

	mu       sync.RWMutex
	order    []string // URIPattern, insertion order
	entries  map[string]ResourceEntry
	compiled map[string]*compiledTemplate
	nextSeq  int
}

func newResourceRegistry(session *Session) *ResourceRegistry {
	return &ResourceRegistry{
		session:  session,
		entries:  make(map[string]ResourceEntry),
		compiled: make(map[string]*compiledTemplate),
	}
}

// Register adds or replaces a resource template.
func (r *ResourceRegistry) Register(entry ResourceEntry) {
	r.mu.Lock()
	_, existed := r.entries[entry.URIPattern]
	r.entries[entry.URIPattern] = entry
	c := compileTemplate(entry.URIPattern)
	c.entry = entry
	c.seq = r.nextSeq
	r.nextSeq++
	r.compiled[entry.URIPattern] = c
	if !existed {
		r.order = append(r.order, entry.URIPattern)
	}
	r.mu.Unlock()

	r.session.broadcastListChanged(notifyResourcesChanged)
}

// Unregister removes a resource template by its exact pattern string.
func (r *ResourceRegistry) Unregister(pattern string) bool {
	r.mu.Lock()
	_, ok := r.entries[pattern]
	if ok {
		delete(r.entries, pattern)
		delete(r.compiled, pattern)
		for i, p := range r.order {
			if p == pattern {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	if ok {
		r.session.broadcastListChanged(notifyResourcesChanged)
	}
	return ok
}

// List returns a snapshot of every registered resource template,
// insertion order.
func (r *ResourceRegistry) List() []ResourceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ResourceEntry, 0, len(r.order))
	for _, p := range r.order {
		out = append(out, r.entries[p])
	}
	return out
}

// Match finds the template matching uri, breaking ties by longer literal
// prefix, then registration order (spec.md §4.7).
func (r *ResourceRegistry) Match(uri string) (ResourceEntry, map[string]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *compiledTemplate
	var bestCaptures map[string]string
	for _, p := range r.order {
		c := r.compiled[p]
		captures, ok := c.match(uri)
		if !ok {
			continue
		}
		if best == nil || c.literalPrefix > best.literalPrefix || (c.literalPrefix == best.literalPrefix && c.seq < best.seq) {
			best = c
			bestCaptures = captures
		}
	}
	if best == nil {
		return ResourceEntry{}, nil, false
	}
	return best.entry, bestCaptures, true
}

func (r *ResourceRegistry) handleList(call *InboundCall) (interface{}, error) {
	entries := r.List()
	listing := make([]resourceListing, len(entries))
	for i, e := range entries {
		listing[i] = resourceListing{URI: e.URIPattern, Name: e.Name, Description: e.Description, MimeType: e.MimeType}
	}
	return ListResourcesResult{Resources: listing}, nil
}

func (r *ResourceRegistry) handleRead(call *InboundCall) (interface{}, error) {
	var params ReadResourceParams
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, NewInvalidParamsError(methodResourcesRead, "ReadResourceParams", string(call.Params), err)
	}

	entry, captures, ok := r.Match(params.URI)
	if !ok {
		return nil, &ResourceNotFoundError{URI: params.URI}
	}
	return entry.Handler(call.Context, params.URI, captures)
}

// resources/subscribe and resources/unsubscribe acknowledge without
// maintaining a per-client subscription table of their own — the core's
// job ends at "the peer asked to watch this URI"; actually pushing
// resources/updated notifications when content changes is a host
// responsibility the core exposes no hook for beyond list_changed
// (spec.md §1 non-goals: "no enforcement... core exposes hooks only").
func (r *ResourceRegistry) handleSubscribe(call *InboundCall) (interface{}, error) {
	return struct{}{}, nil
}

func (r *ResourceRegistry) handleUnsubscribe(call *InboundCall) (interface{}, error) {
	return struct{}{}, nil
}
