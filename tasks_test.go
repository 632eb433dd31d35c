package mcp_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/praxiomlabs/mcpkit-sub003"
)

func TestTaskLifecycleCompletes(t *testing.T) {
	srv, cli := newPair(t)

	srv.Tasks().RegisterHandler("sum", func(ctx context.Context, arguments json.RawMessage, report func(float64, string)) (json.RawMessage, error) {
		report(0.5, "halfway")
		return json.RawMessage(`{"total":3}`), nil
	})

	mustReady(t, srv, cli)

	progress := make(chan mcp.TaskProgressNotification, 4)
	cli.OnTasksProgress(func(n mcp.TaskProgressNotification) { progress <- n })

	created, err := cli.CreateTask(context.Background(), mcp.CreateTaskParams{Name: "sum"})
	require.NoError(t, err)
	require.NotEmpty(t, created.TaskID)

	select {
	case n := <-progress:
		require.Equal(t, created.TaskID, n.TaskID)
		require.Equal(t, "halfway", n.Message)
	case <-time.After(time.Second):
		t.Fatal("expected notifications/tasks/progress")
	}

	require.Eventually(t, func() bool {
		status, err := cli.TaskStatus(context.Background(), created.TaskID)
		return err == nil && status.Status == mcp.TaskCompleted
	}, time.Second, 5*time.Millisecond)

	status, err := cli.TaskStatus(context.Background(), created.TaskID)
	require.NoError(t, err)
	require.JSONEq(t, `{"total":3}`, string(status.Result))
}

func TestTaskCancelIsAbsorbingAfterCompletion(t *testing.T) {
	srv, cli := newPair(t)

	done := make(chan struct{})
	srv.Tasks().RegisterHandler("fast", func(ctx context.Context, arguments json.RawMessage, report func(float64, string)) (json.RawMessage, error) {
		close(done)
		return json.RawMessage(`{}`), nil
	})
	mustReady(t, srv, cli)

	created, err := cli.CreateTask(context.Background(), mcp.CreateTaskParams{Name: "fast"})
	require.NoError(t, err)

	<-done
	require.Eventually(t, func() bool {
		status, err := cli.TaskStatus(context.Background(), created.TaskID)
		return err == nil && status.Status == mcp.TaskCompleted
	}, time.Second, 5*time.Millisecond)

	entry, err := cli.CancelTask(context.Background(), created.TaskID)
	require.NoError(t, err)
	require.Equal(t, mcp.TaskCompleted, entry.Status, "cancelling an already-completed task is a no-op")
}

func TestTaskCancelStopsRunningHandler(t *testing.T) {
	srv, cli := newPair(t)

	started := make(chan struct{})
	srv.Tasks().RegisterHandler("slow", func(ctx context.Context, arguments json.RawMessage, report func(float64, string)) (json.RawMessage, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	mustReady(t, srv, cli)

	created, err := cli.CreateTask(context.Background(), mcp.CreateTaskParams{Name: "slow"})
	require.NoError(t, err)
	<-started

	entry, err := cli.CancelTask(context.Background(), created.TaskID)
	require.NoError(t, err)
	require.Equal(t, mcp.TaskCancelled, entry.Status)

	require.Never(t, func() bool {
		status, err := cli.TaskStatus(context.Background(), created.TaskID)
		return err == nil && status.Status == mcp.TaskCompleted
	}, 200*time.Millisecond, 10*time.Millisecond, "a cancelled task must never flip back to completed")
}

func TestCreateTaskForUnknownHandlerReturnsMethodNotFound(t *testing.T) {
	srv, cli := newPair(t)
	mustReady(t, srv, cli)

	_, err := cli.CreateTask(context.Background(), mcp.CreateTaskParams{Name: "missing"})
	require.Error(t, err)
	rpcErr, ok := err.(*mcp.RPCError)
	require.True(t, ok)
	require.Equal(t, mcp.ErrCodeMethodNotFound, rpcErr.Code())
}

func TestListTasksReturnsCreatedInstances(t *testing.T) {
	srv, cli := newPair(t)
	srv.Tasks().RegisterHandler("noop", func(ctx context.Context, arguments json.RawMessage, report func(float64, string)) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	})
	mustReady(t, srv, cli)

	_, err := cli.CreateTask(context.Background(), mcp.CreateTaskParams{Name: "noop"})
	require.NoError(t, err)
	_, err = cli.CreateTask(context.Background(), mcp.CreateTaskParams{Name: "noop"})
	require.NoError(t, err)

	list, err := cli.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Tasks, 2)
}
