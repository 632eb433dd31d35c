// Package mcp implements the protocol runtime shared by Model Context
// Protocol clients and servers: the JSON-RPC 2.0 wire codec, version
// negotiation, the bidirectional dispatch engine, and the capability
// registries (tools, resources, prompts, tasks) that sit on top of it.
//
// It does not ship a concrete transport beyond an in-memory reference pair —
// stdio, HTTP/SSE, and WebSocket transports are external collaborators that
// implement the Transport interface defined here.
//
// Server usage, registering a tool and serving it over an in-memory
// transport pair:
//
//	serverSide, clientSide := mcp.NewMemoryTransportPair()
//
//	srv := mcp.NewServer(serverSide, mcp.ServerInfo{Name: "demo", Version: "1.0.0"})
//	srv.Tools().Register(mcp.ToolEntry{
//		Name:        "add",
//		Description: "Add two numbers",
//		InputSchema: json.RawMessage(`{"type":"object"}`),
//		Handler: func(ctx context.Context, call mcp.ToolCall) (mcp.CallToolResult, error) {
//			var args struct{ A, B float64 }
//			if err := json.Unmarshal(call.Arguments, &args); err != nil {
//				return mcp.CallToolResult{}, err
//			}
//			return mcp.NewTextResult(fmt.Sprintf("%v", args.A+args.B)), nil
//		},
//	})
//	go srv.Serve(ctx)
//
// Client usage:
//
//	client := mcp.NewClient(clientSide, mcp.ClientInfo{Name: "demo-client", Version: "1.0.0"})
//	go client.Serve(ctx)
//
//	if _, err := client.Initialize(ctx, mcp.ClientCapabilities{}); err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := client.CallTool(ctx, mcp.CallToolParams{
//		Name:      "add",
//		Arguments: json.RawMessage(`{"a":1,"b":2}`),
//	})
//
// Bidirectional server→client requests (sampling, elicitation, roots) reuse
// the same Call API from the server's Session, and are routed on the client
// side by handlers registered with Client.OnSampling, Client.OnElicit, and
// Client.OnRootsList.
package mcp
