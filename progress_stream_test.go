package mcp_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/praxiomlabs/mcpkit-sub003"
)

func TestCallStreamDeliversProgressThenResult(t *testing.T) {
	srv, cli := newPair(t)

	srv.Tools().Register(mcp.ToolEntry{
		Name: "countdown",
		Handler: func(ctx context.Context, call mcp.ToolCall) (mcp.CallToolResult, error) {
			call.Progress.Report(0.3, "one")
			call.Progress.Report(0.6, "two")
			call.Progress.Report(1.0, "three")
			return mcp.NewTextResult("done"), nil
		},
	})
	mustReady(t, srv, cli)

	stream := cli.Session().CallStream(context.Background(), "tools/call", mcp.CallToolParams{Name: "countdown"})

	var messages []string
	for update, err := range stream.Updates() {
		require.NoError(t, err)
		messages = append(messages, update.Message)
		if len(messages) == 3 {
			break
		}
	}
	require.Equal(t, []string{"one", "two", "three"}, messages)

	raw, err := stream.Result()
	require.NoError(t, err)
	var result mcp.CallToolResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.False(t, result.IsError)
}

func TestCallStreamSecondIterationIsConsumed(t *testing.T) {
	srv, cli := newPair(t)
	srv.Tools().Register(mcp.ToolEntry{
		Name: "noop",
		Handler: func(ctx context.Context, call mcp.ToolCall) (mcp.CallToolResult, error) {
			return mcp.NewTextResult("ok"), nil
		},
	})
	mustReady(t, srv, cli)

	stream := cli.Session().CallStream(context.Background(), "tools/call", mcp.CallToolParams{Name: "noop"})
	for range stream.Updates() {
	}
	_, err := stream.Result()
	require.NoError(t, err)

	var gotErr error
	for _, err := range stream.Updates() {
		gotErr = err
		break
	}
	require.ErrorIs(t, gotErr, mcp.ErrProgressStreamConsumed)
}

func TestCallStreamWithoutProgressStillResolves(t *testing.T) {
	srv, cli := newPair(t)
	srv.Tools().Register(mcp.ToolEntry{
		Name: "silent",
		Handler: func(ctx context.Context, call mcp.ToolCall) (mcp.CallToolResult, error) {
			return mcp.NewTextResult("quiet"), nil
		},
	})
	mustReady(t, srv, cli)

	stream := cli.Session().CallStream(context.Background(), "tools/call", mcp.CallToolParams{Name: "silent"})
	for range stream.Updates() {
		t.Fatal("expected no progress updates")
	}

	raw, err := stream.Result()
	require.NoError(t, err)
	require.NotEmpty(t, raw)
}
