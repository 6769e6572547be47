package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/linctx/linctx/internal/registry"
)

// RefreshTool handles linear_refresh: explicit registry lifecycle.
// A refresh voids every previously issued short key for the session —
// the rebuilt registry may assign the same key strings to different
// entities, so the agent must re-read linear_workspace before reusing
// any key.
type RefreshTool struct {
	store    *registry.Store
	fallback string
}

// NewRefreshTool creates a RefreshTool with its dependencies.
func NewRefreshTool(store *registry.Store, fallbackSession string) *RefreshTool {
	return &RefreshTool{store: store, fallback: fallbackSession}
}

// Definition returns the MCP tool definition for registration.
func (t *RefreshTool) Definition() mcp.Tool {
	return mcp.NewTool("linear_refresh",
		mcp.WithDescription(
			"Rebuild the session's short-key registry from a fresh workspace "+
				"snapshot. All previously issued short keys become invalid; call "+
				"linear_workspace afterwards to learn the new key set.",
		),
	)
}

// Handle processes the linear_refresh tool call.
func (t *RefreshTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reg, err := t.store.ForceRefresh(ctx, sessionKey(ctx, t.fallback))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("refreshing workspace: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Registry rebuilt (generation %d, built %s).\n"+
			"Short keys issued before this refresh are no longer valid. "+
			"Call linear_workspace to get the current key set.",
		reg.Generation(), reg.BuiltAt().Format("2006-01-02T15:04:05Z"),
	)), nil
}
