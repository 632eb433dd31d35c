package mcp_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/praxiomlabs/mcpkit-sub003"
)

func newPair(t *testing.T) (*mcp.Server, *mcp.Client) {
	t.Helper()
	serverSide, clientSide := mcp.NewMemoryTransportPair()
	srv := mcp.NewServer(serverSide, mcp.ServerInfo{Name: "test-server", Version: "1.0.0"})
	cli := mcp.NewClient(clientSide, mcp.ClientInfo{Name: "test-client", Version: "1.0.0"})
	t.Cleanup(func() {
		_ = cli.Close()
		_ = srv.Close()
	})
	return srv, cli
}

func TestHandshakeReachesReadyOnBothSides(t *testing.T) {
	srv, cli := newPair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := cli.Initialize(ctx, mcp.ClientCapabilities{})
	require.NoError(t, err)
	require.Equal(t, "test-server", result.ServerInfo.Name)

	require.Eventually(t, func() bool {
		return srv.Session().State() == mcp.StateReady
	}, time.Second, 5*time.Millisecond, "server should reach Ready after notifications/initialized")

	require.Equal(t, mcp.StateReady, cli.Session().State())
	require.NotEmpty(t, cli.Session().NegotiatedVersion())
}

func TestSecondInitializeFromClientFailsHandshake(t *testing.T) {
	_, cli := newPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := cli.Initialize(ctx, mcp.ClientCapabilities{})
	require.NoError(t, err)

	// Initialize again on the same Client: the server has already left
	// AwaitingInitialize, so the second attempt is rejected.
	_, err = cli.Initialize(ctx, mcp.ClientCapabilities{})
	require.Error(t, err)
}
