package mcp

import (
	"context"
	"encoding/json"
)

// Server is a session driven from the server side of the handshake: it
// owns the capability registries (tools, resources, prompts, tasks) and
// answers the client-driven methods of spec.md §6.2's table.
type Server struct {
	session      *Session
	info         ServerInfo
	caps         ServerCapabilities
	instructions *string
	sessionOpts  []SessionOption

	tools     *ToolRegistry
	resources *ResourceRegistry
	prompts   *PromptRegistry
	tasks     *TaskRegistry

	loggingHandler func(ctx context.Context, level string) error
}

// ServerOption configures a Server at construction, the way the teacher's
// ClientOption configures a Client.
type ServerOption func(*Server)

// WithInstructions sets the free-text instructions returned in
// InitializeResult.
func WithInstructions(instructions string) ServerOption {
	return func(s *Server) { s.instructions = &instructions }
}

// WithSessionOptions forwards SessionOptions (logger, supported versions,
// concurrency ceiling) to the underlying Session.
func WithSessionOptions(opts ...SessionOption) ServerOption {
	return func(s *Server) { s.sessionOpts = append(s.sessionOpts, opts...) }
}

// WithServerCapabilities sets the capability flags advertised in
// InitializeResult. Without this option, ServerCapabilities is the zero
// value: every capability (Tools, Resources, Prompts, Tasks, Logging,
// Completions) is absent regardless of what is registered on the
// registries, since registration and advertised capabilities are decided
// independently (see DESIGN.md's "Capability auto-derivation" decision).
// Callers that want accurate advertising should register tools/resources/
// prompts before calling Serve, then pass this option explicitly.
func WithServerCapabilities(caps ServerCapabilities) ServerOption {
	return func(s *Server) { s.caps = caps }
}

// NewServer constructs a Server bound to transport, wires its built-in
// method handlers, and starts the dispatch engine's reader/writer loops.
func NewServer(transport Transport, info ServerInfo, opts ...ServerOption) *Server {
	srv := &Server{info: info}
	for _, opt := range opts {
		opt(srv)
	}

	srv.session = newSession(RoleServer, transport, srv.sessionOpts...)
	srv.tools = newToolRegistry(srv.session)
	srv.resources = newResourceRegistry(srv.session)
	srv.prompts = newPromptRegistry(srv.session)
	srv.tasks = newTaskRegistry(srv.session)

	srv.wireHandlers()
	return srv
}

func (s *Server) wireHandlers() {
	d := s.session
	d.Handle(methodInitialize, s.handleInitialize)
	d.Handle(methodPing, handlePing)
	d.Handle(methodToolsList, s.tools.handleList)
	d.Handle(methodToolsCall, s.tools.handleCall)
	d.Handle(methodResourcesList, s.resources.handleList)
	d.Handle(methodResourcesRead, s.resources.handleRead)
	d.Handle(methodResourcesSubscribe, s.resources.handleSubscribe)
	d.Handle(methodResourcesUnsub, s.resources.handleUnsubscribe)
	d.Handle(methodPromptsList, s.prompts.handleList)
	d.Handle(methodPromptsGet, s.prompts.handleGet)
	d.Handle(methodTasksCreate, s.tasks.handleCreate)
	d.Handle(methodTasksStatus, s.tasks.handleStatus)
	d.Handle(methodTasksCancel, s.tasks.handleCancel)
	d.Handle(methodTasksList, s.tasks.handleList)
	d.Handle(methodLoggingSetLevel, s.handleSetLevel)
}

func handlePing(call *InboundCall) (interface{}, error) {
	return struct{}{}, nil
}

// handleInitialize implements the server side of the handshake (spec.md
// §4.5, §6.3): negotiate the protocol version, record the client's
// capabilities, and reply with this server's own. A second initialize on
// the same session is rejected per I6; a version mismatch closes the
// session per §7's HandshakeFailed row.
func (s *Server) handleInitialize(call *InboundCall) (interface{}, error) {
	if !s.session.claimInitialize() {
		return nil, newProtocolError(ErrCodeInvalidRequest, "initialize already received for this session", nil)
	}

	var params InitializeParams
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, NewInvalidParamsError(methodInitialize, "InitializeParams", string(call.Params), err)
	}

	negotiated, err := Negotiate(params.ProtocolVersion, s.session.supportedVersions)
	if err != nil {
		s.session.failHandshake(err)
		return nil, err
	}

	peerCaps := DescribeClient(params.Capabilities)
	s.session.beginServerHandshake(negotiated, peerCaps)

	return InitializeResult{
		ProtocolVersion: negotiated,
		ServerInfo:      s.info,
		Capabilities:    s.caps,
		Instructions:    s.instructions,
	}, nil
}

func (s *Server) handleSetLevel(call *InboundCall) (interface{}, error) {
	var params struct {
		Level string `json:"level"`
	}
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, NewInvalidParamsError(methodLoggingSetLevel, "{level}", string(call.Params), err)
	}
	if s.loggingHandler != nil {
		if err := s.loggingHandler(call.Context, params.Level); err != nil {
			return nil, err
		}
	}
	return struct{}{}, nil
}

// OnSetLevel installs the handler invoked for logging/setLevel requests.
func (s *Server) OnSetLevel(h func(ctx context.Context, level string) error) {
	s.loggingHandler = h
}

// Tools, Resources, Prompts, Tasks expose the capability registries for
// registration by host code before or during a session.
func (s *Server) Tools() *ToolRegistry         { return s.tools }
func (s *Server) Resources() *ResourceRegistry { return s.resources }
func (s *Server) Prompts() *PromptRegistry     { return s.prompts }
func (s *Server) Tasks() *TaskRegistry         { return s.tasks }

// Session exposes the underlying protocol Session, e.g. for Close or for
// inspecting negotiated state.
func (s *Server) Session() *Session { return s.session }

// CreateMessage issues a server→client sampling/createMessage request
// (spec.md §8 scenario 6).
func (s *Server) CreateMessage(ctx context.Context, params CreateMessageParams) (CreateMessageResult, error) {
	return callTyped[CreateMessageResult](ctx, s.session, methodSamplingCreate, params)
}

// Elicit issues a server→client elicitation/create request.
func (s *Server) Elicit(ctx context.Context, params ElicitParams) (ElicitResult, error) {
	return callTyped[ElicitResult](ctx, s.session, methodElicitationCreate, params)
}

// ListRoots issues a server→client roots/list request.
func (s *Server) ListRoots(ctx context.Context) (ListRootsResult, error) {
	return callTyped[ListRootsResult](ctx, s.session, methodRootsList, struct{}{})
}

// Serve blocks until ctx is cancelled or the session closes on its own
// (transport EOF or failure), then closes the session.
func (s *Server) Serve(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-s.session.Done():
	}
	return s.session.Close()
}

// Close closes the underlying session and transport.
func (s *Server) Close() error { return s.session.Close() }
