package mcp

import (
	"context"
	"encoding/json"
)

// Client is a session driven from the client side of the handshake: it
// sends initialize, answers server-driven bidirectional requests (sampling,
// elicitation, roots), and exposes the client-originated methods of
// spec.md §6.2's table.
type Client struct {
	session     *Session
	info        ClientInfo
	sessionOpts []SessionOption

	samplingHandler SamplingHandler
	elicitHandler   ElicitationHandler
	rootsHandler    RootsListHandler
}

// ClientOption configures a Client at construction.
type ClientOption func(*Client)

// WithClientSessionOptions forwards SessionOptions (logger, supported
// versions, concurrency ceiling) to the underlying Session.
func WithClientSessionOptions(opts ...SessionOption) ClientOption {
	return func(c *Client) { c.sessionOpts = append(c.sessionOpts, opts...) }
}

// NewClient constructs a Client bound to transport and starts its dispatch
// engine's reader/writer loops. Call Initialize before issuing any other
// request.
func NewClient(transport Transport, info ClientInfo, opts ...ClientOption) *Client {
	c := &Client{info: info}
	for _, opt := range opts {
		opt(c)
	}

	c.session = newSession(RoleClient, transport, c.sessionOpts...)
	c.wireHandlers()
	return c
}

func (c *Client) wireHandlers() {
	d := c.session
	d.Handle(methodPing, handlePing)
	d.Handle(methodSamplingCreate, wrapTypedHandler(methodSamplingCreate, c.dispatchSampling))
	d.Handle(methodElicitationCreate, wrapTypedHandler(methodElicitationCreate, c.dispatchElicit))
	d.Handle(methodRootsList, wrapTypedHandler(methodRootsList, c.dispatchRootsList))
}

func (c *Client) dispatchSampling(ctx context.Context, params CreateMessageParams) (CreateMessageResult, error) {
	if c.samplingHandler == nil {
		return CreateMessageResult{}, &MethodNotFoundError{Method: methodSamplingCreate}
	}
	return c.samplingHandler(ctx, params)
}

func (c *Client) dispatchElicit(ctx context.Context, params ElicitParams) (ElicitResult, error) {
	if c.elicitHandler == nil {
		return ElicitResult{}, &MethodNotFoundError{Method: methodElicitationCreate}
	}
	return c.elicitHandler(ctx, params)
}

func (c *Client) dispatchRootsList(ctx context.Context, _ struct{}) (ListRootsResult, error) {
	if c.rootsHandler == nil {
		return ListRootsResult{}, &MethodNotFoundError{Method: methodRootsList}
	}
	return c.rootsHandler(ctx)
}

// OnSampling installs the handler invoked for inbound sampling/createMessage
// requests. Must be registered before Initialize if the client declares the
// Sampling capability and expects to actually service requests.
func (c *Client) OnSampling(h SamplingHandler) { c.samplingHandler = h }

// OnElicit installs the handler invoked for inbound elicitation/create
// requests.
func (c *Client) OnElicit(h ElicitationHandler) { c.elicitHandler = h }

// OnRootsList installs the handler invoked for inbound roots/list requests.
func (c *Client) OnRootsList(h RootsListHandler) { c.rootsHandler = h }

// OnToolsListChanged registers a handler for notifications/tools/list_changed.
func (c *Client) OnToolsListChanged(h ListChangedHandler) {
	bindListChangedNotification(c.session, notifyToolsListChanged, h)
}

// OnResourcesListChanged registers a handler for
// notifications/resources/list_changed.
func (c *Client) OnResourcesListChanged(h ListChangedHandler) {
	bindListChangedNotification(c.session, notifyResourcesChanged, h)
}

// OnPromptsListChanged registers a handler for
// notifications/prompts/list_changed.
func (c *Client) OnPromptsListChanged(h ListChangedHandler) {
	bindListChangedNotification(c.session, notifyPromptsChanged, h)
}

// OnTasksProgress registers a handler for notifications/tasks/progress.
func (c *Client) OnTasksProgress(h TaskProgressHandler) {
	bindTaskProgressNotification(c.session, h)
}

// Initialize drives the client side of the handshake (spec.md §4.5, §6.3):
// sends initialize with caps, waits for the server's InitializeResult, then
// sends notifications/initialized to reach Ready.
func (c *Client) Initialize(ctx context.Context, caps ClientCapabilities) (*InitializeResult, error) {
	raw, err := c.session.Call(ctx, methodInitialize, InitializeParams{
		ProtocolVersion: highestOf(c.session.supportedVersions),
		ClientInfo:      c.info,
		Capabilities:    caps,
	})
	if err != nil {
		c.session.failHandshake(err)
		return nil, err
	}

	var result InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		err = NewInternalError("unmarshal InitializeResult", err)
		c.session.failHandshake(err)
		return nil, err
	}

	peerCaps := DescribeServer(result.Capabilities)
	if err := c.session.completeClientHandshake(ctx, result.ProtocolVersion, peerCaps); err != nil {
		return nil, err
	}
	return &result, nil
}

// CallTool issues a tools/call request.
func (c *Client) CallTool(ctx context.Context, params CallToolParams) (*CallToolResult, error) {
	raw, err := c.session.Call(ctx, methodToolsCall, params)
	if err != nil {
		return nil, err
	}
	var result CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, NewInternalError("unmarshal CallToolResult", err)
	}
	return &result, nil
}

// ListTools issues a tools/list request.
func (c *Client) ListTools(ctx context.Context) (*ListToolsResult, error) {
	return callTypedPtr[ListToolsResult](ctx, c.session, methodToolsList, struct{}{})
}

// ListResources issues a resources/list request.
func (c *Client) ListResources(ctx context.Context) (*ListResourcesResult, error) {
	return callTypedPtr[ListResourcesResult](ctx, c.session, methodResourcesList, struct{}{})
}

// ReadResource issues a resources/read request.
func (c *Client) ReadResource(ctx context.Context, uri string) (*ReadResourceResult, error) {
	return callTypedPtr[ReadResourceResult](ctx, c.session, methodResourcesRead, ReadResourceParams{URI: uri})
}

// ListPrompts issues a prompts/list request.
func (c *Client) ListPrompts(ctx context.Context) (*ListPromptsResult, error) {
	return callTypedPtr[ListPromptsResult](ctx, c.session, methodPromptsList, struct{}{})
}

// GetPrompt issues a prompts/get request.
func (c *Client) GetPrompt(ctx context.Context, params GetPromptParams) (*GetPromptResult, error) {
	return callTypedPtr[GetPromptResult](ctx, c.session, methodPromptsGet, params)
}

// CreateTask issues a tasks/create request.
func (c *Client) CreateTask(ctx context.Context, params CreateTaskParams) (*CreateTaskResult, error) {
	return callTypedPtr[CreateTaskResult](ctx, c.session, methodTasksCreate, params)
}

// TaskStatus issues a tasks/status request.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*TaskEntry, error) {
	return callTypedPtr[TaskEntry](ctx, c.session, methodTasksStatus, TaskStatusParams{TaskID: taskID})
}

// CancelTask issues a tasks/cancel request.
func (c *Client) CancelTask(ctx context.Context, taskID string) (*TaskEntry, error) {
	return callTypedPtr[TaskEntry](ctx, c.session, methodTasksCancel, TaskStatusParams{TaskID: taskID})
}

// ListTasks issues a tasks/list request.
func (c *Client) ListTasks(ctx context.Context) (*ListTasksResult, error) {
	return callTypedPtr[ListTasksResult](ctx, c.session, methodTasksList, struct{}{})
}

// SetLevel issues a logging/setLevel request.
func (c *Client) SetLevel(ctx context.Context, level string) error {
	_, err := c.session.Call(ctx, methodLoggingSetLevel, struct {
		Level string `json:"level"`
	}{Level: level})
	return err
}

// callTypedPtr is callTyped, but returns a pointer result so callers get a
// nil-able zero value rather than a structurally-empty struct.
func callTypedPtr[R any](ctx context.Context, session *Session, method string, params interface{}) (*R, error) {
	result, err := callTyped[R](ctx, session, method, params)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Session exposes the underlying protocol Session.
func (c *Client) Session() *Session { return c.session }

// Serve blocks until ctx is cancelled or the session closes on its own,
// then closes the session.
func (c *Client) Serve(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-c.session.Done():
	}
	return c.session.Close()
}

// Close closes the underlying session and transport.
func (c *Client) Close() error { return c.session.Close() }
