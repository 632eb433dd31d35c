package mcp_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/praxiomlabs/mcpkit-sub003"
)

func TestGetPromptRoundTrip(t *testing.T) {
	srv, cli := newPair(t)

	srv.Prompts().Register(mcp.PromptEntry{
		Name:        "greeting",
		Description: "says hello",
		Arguments:   []mcp.PromptArgument{{Name: "name", Required: true}},
		Handler: func(ctx context.Context, args map[string]string) ([]mcp.PromptMessage, error) {
			return []mcp.PromptMessage{{
				Role:    "user",
				Content: mcp.TextContent{Text: "hello, " + args["name"]},
			}}, nil
		},
	})

	mustReady(t, srv, cli)

	result, err := cli.GetPrompt(context.Background(), mcp.GetPromptParams{
		Name:      "greeting",
		Arguments: map[string]string{"name": "ada"},
	})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	text, ok := result.Messages[0].Content.(mcp.TextContent)
	require.True(t, ok)
	require.Equal(t, "hello, ada", text.Text)
}

func TestGetUnknownPromptReturnsMethodNotFound(t *testing.T) {
	srv, cli := newPair(t)
	mustReady(t, srv, cli)

	_, err := cli.GetPrompt(context.Background(), mcp.GetPromptParams{Name: "missing"})
	require.Error(t, err)
	rpcErr, ok := err.(*mcp.RPCError)
	require.True(t, ok)
	require.Equal(t, mcp.ErrCodeMethodNotFound, rpcErr.Code())
}

func TestListPromptsReturnsRegisteredEntries(t *testing.T) {
	srv, cli := newPair(t)
	h := func(ctx context.Context, args map[string]string) ([]mcp.PromptMessage, error) { return nil, nil }
	srv.Prompts().Register(mcp.PromptEntry{Name: "a", Handler: h})
	srv.Prompts().Register(mcp.PromptEntry{Name: "b", Handler: h})
	mustReady(t, srv, cli)

	result, err := cli.ListPrompts(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Prompts, 2)
}

func TestPromptsListChangedNotifiesClientAfterReady(t *testing.T) {
	srv, cli := newPair(t)
	mustReady(t, srv, cli)

	received := make(chan struct{}, 1)
	cli.OnPromptsListChanged(func() { received <- struct{}{} })

	srv.Prompts().Register(mcp.PromptEntry{Name: "late", Handler: func(ctx context.Context, args map[string]string) ([]mcp.PromptMessage, error) {
		return nil, nil
	}})

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("expected notifications/prompts/list_changed after Register post-Ready")
	}
}
