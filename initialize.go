package mcp

// ClientInfo identifies the client application during the handshake.
type ClientInfo struct {
	Name    string  `json:"name"`
	Version string  `json:"version"`
	Title   *string `json:"title,omitempty"`
}

// ServerInfo identifies the server application during the handshake.
type ServerInfo struct {
	Name    string  `json:"name"`
	Version string  `json:"version"`
	Title   *string `json:"title,omitempty"`
}

// InitializeParams are the parameters of the initialize request
// (spec.md §6.3, bit-exact field names).
type InitializeParams struct {
	ProtocolVersion ProtocolVersion    `json:"protocolVersion"`
	ClientInfo      ClientInfo         `json:"clientInfo"`
	Capabilities    ClientCapabilities `json:"capabilities"`
}

// InitializeResult is the result of the initialize request.
type InitializeResult struct {
	ProtocolVersion ProtocolVersion    `json:"protocolVersion"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	Instructions    *string            `json:"instructions,omitempty"`
}

const (
	methodInitialize         = "initialize"
	methodInitializedNotify  = "notifications/initialized"
	methodPing               = "ping"
	methodToolsList          = "tools/list"
	methodToolsCall          = "tools/call"
	methodResourcesList      = "resources/list"
	methodResourcesRead      = "resources/read"
	methodResourcesSubscribe = "resources/subscribe"
	methodResourcesUnsub     = "resources/unsubscribe"
	methodPromptsList        = "prompts/list"
	methodPromptsGet         = "prompts/get"
	methodTasksCreate        = "tasks/create"
	methodTasksStatus        = "tasks/status"
	methodTasksCancel        = "tasks/cancel"
	methodTasksList          = "tasks/list"
	methodSamplingCreate     = "sampling/createMessage"
	methodElicitationCreate  = "elicitation/create"
	methodRootsList          = "roots/list"
	methodLoggingSetLevel    = "logging/setLevel"

	notifyProgress          = "notifications/progress"
	notifyCancelled         = "notifications/cancelled"
	notifyToolsListChanged  = "notifications/tools/list_changed"
	notifyResourcesChanged  = "notifications/resources/list_changed"
	notifyPromptsChanged    = "notifications/prompts/list_changed"
	notifyTasksProgress     = "notifications/tasks/progress"
)
