package mcp

import "encoding/json"

// ListChangedCapability is the {"listChanged": bool} shape shared by every
// capability sub-object that supports change notifications (spec.md §6.3).
type ListChangedCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ClientCapabilities is the capabilities object a client declares during
// initialize. Absent optional sub-objects mean "not supported"
// (spec.md §6.3) — every field here is a pointer for exactly that reason.
type ClientCapabilities struct {
	Sampling     *struct{}              `json:"sampling,omitempty"`
	Elicitation  *struct{}              `json:"elicitation,omitempty"`
	Roots        *ListChangedCapability `json:"roots,omitempty"`
	Experimental json.RawMessage        `json:"experimental,omitempty"`
}

// ServerCapabilities is the capabilities object a server declares during
// initialize.
type ServerCapabilities struct {
	Tools        *ListChangedCapability `json:"tools,omitempty"`
	Resources    *ListChangedCapability `json:"resources,omitempty"`
	Prompts      *ListChangedCapability `json:"prompts,omitempty"`
	Tasks        *ListChangedCapability `json:"tasks,omitempty"`
	Logging      *struct{}              `json:"logging,omitempty"`
	Completions  *struct{}              `json:"completions,omitempty"`
	Experimental json.RawMessage        `json:"experimental,omitempty"`
}

// CapabilityDescriptor is a snapshot of what a peer offers, built from the
// capabilities object it sent during the handshake, kept for the lifetime
// of a Session. It carries only the bool flags derived from known
// capability keys — an unrecognized key in the peer's capabilities object
// is silently dropped by ClientCapabilities/ServerCapabilities decoding
// rather than causing a decode failure or being retained anywhere, per the
// negotiation compatibility tests in original_source's mcpkit test suite.
type CapabilityDescriptor struct {
	SupportsTools       bool
	SupportsResources   bool
	SupportsPrompts     bool
	SupportsTasks       bool
	SupportsSampling    bool
	SupportsElicitation bool
	SupportsRoots       bool
	SupportsLogging     bool
	SupportsCompletions bool

	ToolsListChanged     bool
	ResourcesListChanged bool
	PromptsListChanged   bool
	TasksListChanged     bool
	RootsListChanged     bool
}

// DescribeServer builds a CapabilityDescriptor from a server's declared
// capabilities, as observed by a client after initialize.
func DescribeServer(c ServerCapabilities) CapabilityDescriptor {
	d := CapabilityDescriptor{
		SupportsTools:       c.Tools != nil,
		SupportsResources:   c.Resources != nil,
		SupportsPrompts:     c.Prompts != nil,
		SupportsTasks:       c.Tasks != nil,
		SupportsLogging:     c.Logging != nil,
		SupportsCompletions: c.Completions != nil,
	}
	if c.Tools != nil {
		d.ToolsListChanged = c.Tools.ListChanged
	}
	if c.Resources != nil {
		d.ResourcesListChanged = c.Resources.ListChanged
	}
	if c.Prompts != nil {
		d.PromptsListChanged = c.Prompts.ListChanged
	}
	if c.Tasks != nil {
		d.TasksListChanged = c.Tasks.ListChanged
	}
	return d
}

// DescribeClient builds a CapabilityDescriptor from a client's declared
// capabilities, as observed by a server after initialize.
func DescribeClient(c ClientCapabilities) CapabilityDescriptor {
	d := CapabilityDescriptor{
		SupportsSampling:    c.Sampling != nil,
		SupportsElicitation: c.Elicitation != nil,
		SupportsRoots:       c.Roots != nil,
	}
	if c.Roots != nil {
		d.RootsListChanged = c.Roots.ListChanged
	}
	return d
}
