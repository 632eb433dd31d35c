package mcp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/praxiomlabs/mcpkit-sub003"
)

func TestReadResourceMatchesTemplateAndCapturesFields(t *testing.T) {
	srv, cli := newPair(t)

	srv.Resources().Register(mcp.ResourceEntry{
		URIPattern: "file:///{project}/{/path*}",
		Name:       "project-file",
		Handler: func(ctx context.Context, uri string, captures map[string]string) (mcp.ReadResourceResult, error) {
			return mcp.ReadResourceResult{Contents: []mcp.EmbeddedResourceContent{{
				URI:  uri,
				Text: mcp.Ptr(captures["project"] + ":" + captures["path"]),
			}}}, nil
		},
	})

	mustReady(t, srv, cli)

	result, err := cli.ReadResource(context.Background(), "file:///demo/src/main.go")
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	require.Equal(t, "demo:src/main.go", *result.Contents[0].Text)
}

func TestReadResourceNoMatchReturnsNotFound(t *testing.T) {
	srv, cli := newPair(t)
	srv.Resources().Register(mcp.ResourceEntry{
		URIPattern: "file:///{name}",
		Handler: func(ctx context.Context, uri string, captures map[string]string) (mcp.ReadResourceResult, error) {
			return mcp.ReadResourceResult{}, nil
		},
	})
	mustReady(t, srv, cli)

	_, err := cli.ReadResource(context.Background(), "http://elsewhere/x")
	require.Error(t, err)
	rpcErr, ok := err.(*mcp.RPCError)
	require.True(t, ok, "expected *mcp.RPCError, got %T", err)
	require.Equal(t, mcp.ErrCodeResourceNotFound, rpcErr.Code())
}

func TestResourceTemplateSpecificityLongerPrefixWins(t *testing.T) {
	srv, cli := newPair(t)

	generic := func(ctx context.Context, uri string, captures map[string]string) (mcp.ReadResourceResult, error) {
		return mcp.ReadResourceResult{Contents: []mcp.EmbeddedResourceContent{{URI: uri, Text: mcp.Ptr("generic")}}}, nil
	}
	docs := func(ctx context.Context, uri string, captures map[string]string) (mcp.ReadResourceResult, error) {
		return mcp.ReadResourceResult{Contents: []mcp.EmbeddedResourceContent{{URI: uri, Text: mcp.Ptr("docs")}}}, nil
	}
	srv.Resources().Register(mcp.ResourceEntry{URIPattern: "file:///{/path*}", Name: "generic", Handler: generic})
	srv.Resources().Register(mcp.ResourceEntry{URIPattern: "file:///docs/{/path*}", Name: "docs", Handler: docs})

	mustReady(t, srv, cli)

	result, err := cli.ReadResource(context.Background(), "file:///docs/readme.md")
	require.NoError(t, err)
	require.Equal(t, "docs", *result.Contents[0].Text, "longer literal prefix should win over the generic catch-all")
}

func TestResourcesSubscribeAndUnsubscribeAcknowledgeWithoutTracking(t *testing.T) {
	srv, cli := newPair(t)
	srv.Resources().Register(mcp.ResourceEntry{
		URIPattern: "file:///{name}",
		Handler: func(ctx context.Context, uri string, captures map[string]string) (mcp.ReadResourceResult, error) {
			return mcp.ReadResourceResult{}, nil
		},
	})
	mustReady(t, srv, cli)

	_, err := cli.Session().Call(context.Background(), "resources/subscribe", map[string]string{"uri": "file:///a"})
	require.NoError(t, err)
	_, err = cli.Session().Call(context.Background(), "resources/unsubscribe", map[string]string{"uri": "file:///a"})
	require.NoError(t, err)
}

func TestListResourcesReturnsRegisteredTemplates(t *testing.T) {
	srv, cli := newPair(t)
	h := func(ctx context.Context, uri string, captures map[string]string) (mcp.ReadResourceResult, error) {
		return mcp.ReadResourceResult{}, nil
	}
	srv.Resources().Register(mcp.ResourceEntry{URIPattern: "file:///{a}", Name: "a", Handler: h})
	srv.Resources().Register(mcp.ResourceEntry{URIPattern: "file:///{b}/x", Name: "b", Handler: h})
	mustReady(t, srv, cli)

	result, err := cli.ListResources(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Resources, 2)
}
