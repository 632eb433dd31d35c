package mcp_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/praxiomlabs/mcpkit-sub003"
)

func mustReady(t *testing.T, srv *mcp.Server, cli *mcp.Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := cli.Initialize(ctx, mcp.ClientCapabilities{})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return srv.Session().State() == mcp.StateReady }, time.Second, 5*time.Millisecond)
}

func TestCallToolRoundTrip(t *testing.T) {
	srv, cli := newPair(t)

	srv.Tools().Register(mcp.ToolEntry{
		Name:        "add",
		Description: "add two numbers",
		InputSchema: json.RawMessage(`{"type":"object"}`),
		Handler: func(ctx context.Context, call mcp.ToolCall) (mcp.CallToolResult, error) {
			var args struct{ A, B float64 }
			if err := json.Unmarshal(call.Arguments, &args); err != nil {
				return mcp.CallToolResult{}, err
			}
			return mcp.NewTextResult("3"), nil
		},
	})

	mustReady(t, srv, cli)

	result, err := cli.CallTool(context.Background(), mcp.CallToolParams{
		Name:      "add",
		Arguments: json.RawMessage(`{"A":1,"B":2}`),
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	require.Equal(t, "3", text.Text)
}

func TestCallUnknownToolReturnsMethodNotFound(t *testing.T) {
	srv, cli := newPair(t)
	mustReady(t, srv, cli)

	_, err := cli.CallTool(context.Background(), mcp.CallToolParams{Name: "does-not-exist"})
	require.Error(t, err)
	rpcErr, ok := err.(*mcp.RPCError)
	require.True(t, ok, "expected *mcp.RPCError, got %T", err)
	require.Equal(t, mcp.ErrCodeMethodNotFound, rpcErr.Code())
}

func TestToolHandlerErrorBecomesIsErrorResult(t *testing.T) {
	srv, cli := newPair(t)

	srv.Tools().Register(mcp.ToolEntry{Name: "explode", Handler: func(ctx context.Context, call mcp.ToolCall) (mcp.CallToolResult, error) {
		return mcp.CallToolResult{}, mcp.NewToolExecutionError("explode", context.DeadlineExceeded, nil)
	}})

	mustReady(t, srv, cli)

	result, err := cli.CallTool(context.Background(), mcp.CallToolParams{Name: "explode"})
	require.NoError(t, err, "a handler error is wrapped into a result, not an RPC error")
	require.True(t, result.IsError)
}

func TestUnknownMethodReturnsMethodNotFoundWithAvailableList(t *testing.T) {
	srv, cli := newPair(t)
	srv.Tools().Register(mcp.ToolEntry{Name: "noop", Handler: func(ctx context.Context, call mcp.ToolCall) (mcp.CallToolResult, error) {
		return mcp.CallToolResult{}, nil
	}})
	mustReady(t, srv, cli)

	_, err := cli.Session().Call(context.Background(), "bogus/method", nil)
	require.Error(t, err)
	rpcErr, ok := err.(*mcp.RPCError)
	require.True(t, ok)
	require.Equal(t, mcp.ErrCodeMethodNotFound, rpcErr.Code())

	var data struct {
		Available []string `json:"available"`
	}
	require.NoError(t, json.Unmarshal(rpcErr.Data(), &data))
	require.Contains(t, data.Available, "tools/call")
}

func TestToolsListChangedNotifiesClientAfterReady(t *testing.T) {
	srv, cli := newPair(t)
	mustReady(t, srv, cli)

	received := make(chan struct{}, 1)
	cli.OnToolsListChanged(func() { received <- struct{}{} })

	srv.Tools().Register(mcp.ToolEntry{Name: "late", Handler: func(ctx context.Context, call mcp.ToolCall) (mcp.CallToolResult, error) {
		return mcp.CallToolResult{}, nil
	}})

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("expected notifications/tools/list_changed after Register post-Ready")
	}
}

func TestListToolsReturnsRegisteredEntries(t *testing.T) {
	srv, cli := newPair(t)
	noop := func(ctx context.Context, call mcp.ToolCall) (mcp.CallToolResult, error) {
		return mcp.CallToolResult{}, nil
	}
	srv.Tools().Register(mcp.ToolEntry{Name: "a", InputSchema: json.RawMessage(`{}`), Handler: noop})
	srv.Tools().Register(mcp.ToolEntry{Name: "b", InputSchema: json.RawMessage(`{}`), Handler: noop})
	mustReady(t, srv, cli)

	result, err := cli.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Tools, 2)
}
