package mcp

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the FSM label of spec.md §3 I4: a task transitions only
// forward, Pending -> Running -> {Completed|Failed|Cancelled}, and the
// terminal states are absorbing.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

func (s TaskStatus) isTerminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	}
	return false
}

// TaskEntry is the wire-visible snapshot of one task instance (spec.md §3).
type TaskEntry struct {
	TaskID   string          `json:"taskId"`
	Status   TaskStatus      `json:"status"`
	Progress *float64        `json:"progress,omitempty"`
	Message  string          `json:"message,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Created  time.Time       `json:"created"`
	Updated  time.Time       `json:"updated"`
}

// TaskHandler runs a long-running operation to completion. It observes
// cancel by selecting on ctx.Done(), and reports progress via report.
type TaskHandler func(ctx context.Context, arguments json.RawMessage, report func(progress float64, message string)) (json.RawMessage, error)

// taskRecord is a task instance plus the machinery to cancel and update it.
// Terminal transitions are made atomic by holding mu across the
// check-then-set (spec.md I4 "terminal states are absorbing").
type taskRecord struct {
	mu     sync.Mutex
	entry  TaskEntry
	cancel *CancelSignal
}

// TaskProgressNotification is the payload of notifications/tasks/progress.
type TaskProgressNotification struct {
	TaskID   string   `json:"taskId"`
	Progress *float64 `json:"progress,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// CreateTaskParams are the parameters of a tasks/create request: Name
// selects which registered TaskHandler runs, Arguments are its opaque
// input, mirroring tools/call's {name, arguments} shape.
type CreateTaskParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// CreateTaskResult is the result of a tasks/create request.
type CreateTaskResult struct {
	TaskID string `json:"taskId"`
}

// TaskStatusParams are the parameters of a tasks/status or tasks/cancel
// request.
type TaskStatusParams struct {
	TaskID string `json:"taskId"`
}

// ListTasksResult is the result of a tasks/list request.
type ListTasksResult struct {
	Tasks []TaskEntry `json:"tasks"`
}

// TaskRegistry is capability registry C7 for tasks: a write-through store
// with a monotonic, globally-unique task id, keyed on the task *handler*
// name for tasks/create dispatch and on taskId for the running instances
// it produces (spec.md §4.7 "Tasks").
type TaskRegistry struct {
	session *Session

	handlersMu sync.RWMutex
	handlers   map[string]TaskHandler

	mu    sync.RWMutex
	order []string
	tasks map[string]*taskRecord
}

func newTaskRegistry(session *Session) *TaskRegistry {
	return &TaskRegistry{
		session:  session,
		handlers: make(map[string]TaskHandler),
		tasks:    make(map[string]*taskRecord),
	}
}

// RegisterHandler makes name dispatchable via tasks/create.
func (r *TaskRegistry) RegisterHandler(name string, h TaskHandler) {
	r.handlersMu.Lock()
	defer r.handlersMu.Unlock()
	r.handlers[name] = h
}

// Status returns a snapshot of one task instance.
func (r *TaskRegistry) Status(taskID string) (TaskEntry, bool) {
	r.mu.RLock()
	rec, ok := r.tasks[taskID]
	r.mu.RUnlock()
	if !ok {
		return TaskEntry{}, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.entry, true
}

// List returns a snapshot of every task instance, insertion order.
func (r *TaskRegistry) List() []TaskEntry {
	r.mu.RLock()
	order := append([]string(nil), r.order...)
	recs := make([]*taskRecord, len(order))
	for i, id := range order {
		recs[i] = r.tasks[id]
	}
	r.mu.RUnlock()

	out := make([]TaskEntry, len(recs))
	for i, rec := range recs {
		rec.mu.Lock()
		out[i] = rec.entry
		rec.mu.Unlock()
	}
	return out
}

func (r *TaskRegistry) handleCreate(call *InboundCall) (interface{}, error) {
	var params CreateTaskParams
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, NewInvalidParamsError(methodTasksCreate, "CreateTaskParams", string(call.Params), err)
	}

	r.handlersMu.RLock()
	handler, ok := r.handlers[params.Name]
	r.handlersMu.RUnlock()
	if !ok {
		return nil, &MethodNotFoundError{Method: "tasks/create:" + params.Name}
	}

	taskID := uuid.Must(uuid.NewV7()).String()
	now := time.Now()
	rec := &taskRecord{
		entry:  TaskEntry{TaskID: taskID, Status: TaskPending, Created: now, Updated: now},
		cancel: newCancelSignal(),
	}

	r.mu.Lock()
	r.tasks[taskID] = rec
	r.order = append(r.order, taskID)
	r.mu.Unlock()

	r.run(rec, handler, params.Arguments)

	return CreateTaskResult{TaskID: taskID}, nil
}

// run executes a task handler in the background, on the session's
// lifetime context (not the tasks/create request's own context, which
// ends the moment the create response is sent).
func (r *TaskRegistry) run(rec *taskRecord, handler TaskHandler, arguments json.RawMessage) {
	ctx, cancelCtx := context.WithCancel(r.session.dispatch.baseCtx)

	rec.mu.Lock()
	rec.entry.Status = TaskRunning
	rec.entry.Updated = time.Now()
	rec.mu.Unlock()

	go func() {
		select {
		case <-rec.cancel.Done():
			cancelCtx()
		case <-ctx.Done():
		}
	}()

	go func() {
		defer cancelCtx()

		report := func(progress float64, message string) {
			rec.mu.Lock()
			if rec.entry.Status.isTerminal() {
				rec.mu.Unlock()
				return
			}
			p := progress
			rec.entry.Progress = &p
			rec.entry.Message = message
			rec.entry.Updated = time.Now()
			rec.mu.Unlock()

			_ = r.session.Notify(notifyTasksProgress, TaskProgressNotification{TaskID: rec.entry.TaskID, Progress: &p, Message: message})
		}

		result, err := handler(ctx, arguments, report)

		rec.mu.Lock()
		if rec.entry.Status.isTerminal() {
			// Already cancelled while the handler was running; terminal
			// states are absorbing (I4) — an eventual result loses.
			rec.mu.Unlock()
			return
		}
		rec.entry.Updated = time.Now()
		if err != nil {
			rec.entry.Status = TaskFailed
			rec.entry.Message = err.Error()
		} else {
			rec.entry.Status = TaskCompleted
			rec.entry.Result = result
		}
		rec.mu.Unlock()
	}()
}

func (r *TaskRegistry) handleStatus(call *InboundCall) (interface{}, error) {
	var params TaskStatusParams
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, NewInvalidParamsError(methodTasksStatus, "TaskStatusParams", string(call.Params), err)
	}
	entry, ok := r.Status(params.TaskID)
	if !ok {
		return nil, NewInvalidParamsError(methodTasksStatus, "known taskId", params.TaskID, nil)
	}
	return entry, nil
}

// handleCancel sets a non-terminal task Cancelled and delivers the cancel
// signal to its running handler, idempotently (spec.md §4.7).
func (r *TaskRegistry) handleCancel(call *InboundCall) (interface{}, error) {
	var params TaskStatusParams
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, NewInvalidParamsError(methodTasksCancel, "TaskStatusParams", string(call.Params), err)
	}

	r.mu.RLock()
	rec, ok := r.tasks[params.TaskID]
	r.mu.RUnlock()
	if !ok {
		return nil, NewInvalidParamsError(methodTasksCancel, "known taskId", params.TaskID, nil)
	}

	rec.mu.Lock()
	if !rec.entry.Status.isTerminal() {
		rec.entry.Status = TaskCancelled
		rec.entry.Updated = time.Now()
	}
	snapshot := rec.entry
	rec.mu.Unlock()

	rec.cancel.Cancel("cancelled")
	return snapshot, nil
}

func (r *TaskRegistry) handleList(call *InboundCall) (interface{}, error) {
	return ListTasksResult{Tasks: r.List()}, nil
}
