package mcp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/praxiomlabs/mcpkit-sub003"
)

func TestServerCreateMessageRoundTrip(t *testing.T) {
	srv, cli := newPair(t)

	cli.OnSampling(func(ctx context.Context, params mcp.CreateMessageParams) (mcp.CreateMessageResult, error) {
		return mcp.CreateMessageResult{
			Model:   "test-model",
			Role:    "assistant",
			Content: mcp.TextContent{Text: "42"},
		}, nil
	})

	mustReady(t, srv, cli)

	result, err := srv.CreateMessage(context.Background(), mcp.CreateMessageParams{
		Messages: []mcp.SamplingMessage{{Role: "user", Content: mcp.TextContent{Text: "what is six times seven"}}},
	})
	require.NoError(t, err)
	require.Equal(t, "test-model", result.Model)
	text, ok := result.Content.(mcp.TextContent)
	require.True(t, ok)
	require.Equal(t, "42", text.Text)
}

func TestServerElicitRoundTrip(t *testing.T) {
	srv, cli := newPair(t)

	cli.OnElicit(func(ctx context.Context, params mcp.ElicitParams) (mcp.ElicitResult, error) {
		return mcp.ElicitResult{Action: mcp.ElicitActionAccept, Content: []byte(`{"confirmed":true}`)}, nil
	})

	mustReady(t, srv, cli)

	result, err := srv.Elicit(context.Background(), mcp.ElicitParams{
		Message:         "proceed?",
		RequestedSchema: []byte(`{"type":"object"}`),
	})
	require.NoError(t, err)
	require.Equal(t, mcp.ElicitActionAccept, result.Action)
	require.JSONEq(t, `{"confirmed":true}`, string(result.Content))
}

func TestServerElicitWithoutHandlerReturnsMethodNotFound(t *testing.T) {
	srv, cli := newPair(t)
	mustReady(t, srv, cli)

	_, err := srv.Elicit(context.Background(), mcp.ElicitParams{Message: "?", RequestedSchema: []byte(`{}`)})
	require.Error(t, err)
	rpcErr, ok := err.(*mcp.RPCError)
	require.True(t, ok)
	require.Equal(t, mcp.ErrCodeMethodNotFound, rpcErr.Code())
}

func TestServerListRootsRoundTrip(t *testing.T) {
	srv, cli := newPair(t)

	cli.OnRootsList(func(ctx context.Context) (mcp.ListRootsResult, error) {
		return mcp.ListRootsResult{Roots: []mcp.Root{{URI: "file:///workspace", Name: "workspace"}}}, nil
	})

	mustReady(t, srv, cli)

	result, err := srv.ListRoots(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Roots, 1)
	require.Equal(t, "file:///workspace", result.Roots[0].URI)
}
