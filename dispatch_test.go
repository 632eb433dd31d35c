package mcp_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/praxiomlabs/mcpkit-sub003"
)

func TestOutboundCallTimeoutReturnsCanceledError(t *testing.T) {
	srv, cli := newPair(t)

	handlerCancelled := make(chan struct{})
	srv.Tools().Register(mcp.ToolEntry{
		Name: "hang",
		Handler: func(ctx context.Context, call mcp.ToolCall) (mcp.CallToolResult, error) {
			<-ctx.Done()
			close(handlerCancelled)
			return mcp.CallToolResult{}, ctx.Err()
		},
	})
	mustReady(t, srv, cli)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := cli.CallTool(ctx, mcp.CallToolParams{Name: "hang"})
	require.Error(t, err)
	cancelErr, ok := err.(*mcp.CanceledError)
	require.True(t, ok, "expected *mcp.CanceledError, got %T", err)
	require.Equal(t, "timeout", cancelErr.Reason)

	select {
	case <-handlerCancelled:
	case <-time.After(time.Second):
		t.Fatal("expected notifications/cancelled to propagate to the server-side handler's context")
	}
}

func TestOutboundCallUserCancelReturnsCanceledError(t *testing.T) {
	srv, cli := newPair(t)
	srv.Tools().Register(mcp.ToolEntry{
		Name: "hang",
		Handler: func(ctx context.Context, call mcp.ToolCall) (mcp.CallToolResult, error) {
			<-ctx.Done()
			return mcp.CallToolResult{}, ctx.Err()
		},
	})
	mustReady(t, srv, cli)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_, err := cli.CallTool(ctx, mcp.CallToolParams{Name: "hang"})
		require.Error(t, err)
		cancelErr, ok := err.(*mcp.CanceledError)
		require.True(t, ok, "expected *mcp.CanceledError, got %T", err)
		require.Equal(t, "user", cancelErr.Reason)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected the call to return after cancellation")
	}
}
