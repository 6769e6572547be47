// Package tools implements the MCP tool handlers.
//
// Each tool is a struct with dependencies injected via its constructor,
// a Definition() returning the mcp.Tool schema, and a Handle() method.
// Tools never talk to Linear directly: reads go through the registry
// store and the workspace provider, and every reply is TOON-encoded by
// the shared response builder.
package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// sessionKey identifies the caller's session for registry scoping.
// Falls back to the server-instance key when the transport carries no
// client session (plain stdio).
func sessionKey(ctx context.Context, fallback string) string {
	if cs := mcpserver.ClientSessionFromContext(ctx); cs != nil {
		if id := cs.SessionID(); id != "" {
			return id
		}
	}
	return fallback
}

// intArg extracts an integer argument, returning defaultVal if the key
// is missing or not a number (JSON numbers arrive as float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}
