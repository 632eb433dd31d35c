package mcp

import (
	"context"
	"encoding/json"
)

// ListChangedHandler reacts to a notifications/{tools|resources|prompts}/list_changed
// notification. It carries no payload — the convention (and this runtime)
// treats the notification as "go re-list", not as a diff.
type ListChangedHandler func()

// bindListChangedNotification wires a ListChangedHandler to one of the
// three list_changed notification methods, grounded on the teacher's
// thread_notifications.go / account_notifications.go pattern of one
// typed listener per method name registered through the dispatch engine's
// generic notification table.
func bindListChangedNotification(session *Session, method string, h ListChangedHandler) {
	session.OnNotification(method, func(ctx context.Context, params json.RawMessage) {
		h()
	})
}

// TaskProgressHandler reacts to a notifications/tasks/progress message.
type TaskProgressHandler func(TaskProgressNotification)

func bindTaskProgressNotification(session *Session, h TaskProgressHandler) {
	session.OnNotification(notifyTasksProgress, func(ctx context.Context, params json.RawMessage) {
		var n TaskProgressNotification
		if err := json.Unmarshal(params, &n); err != nil {
			return
		}
		h(n)
	})
}
