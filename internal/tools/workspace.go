package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/linctx/linctx/internal/registry"
	"github.com/linctx/linctx/internal/toon"
)

// WorkspaceTool handles linear_workspace: the Tier-1 snapshot view.
// It returns every registered short key with its display data, which is
// how the agent learns the key vocabulary for the session.
type WorkspaceTool struct {
	store    *registry.Store
	fallback string
}

// NewWorkspaceTool creates a WorkspaceTool with its dependencies.
func NewWorkspaceTool(store *registry.Store, fallbackSession string) *WorkspaceTool {
	return &WorkspaceTool{store: store, fallback: fallbackSession}
}

// Definition returns the MCP tool definition for registration.
func (t *WorkspaceTool) Definition() mcp.Tool {
	return mcp.NewTool("linear_workspace",
		mcp.WithDescription(
			"Read the workspace snapshot: teams, users, workflow states, projects, "+
				"and labels, each with its short key (u0, s1, pr0, sqm:s0, ...). "+
				"Short keys from this response are what every other tool accepts. "+
				"Call this first in a session, and again after linear_refresh.",
		),
		mcp.WithBoolean("force_refresh",
			mcp.Description("Discard the cached key registry and rebuild from a fresh snapshot. "+
				"Previously issued short keys become invalid."),
		),
	)
}

// Handle processes the linear_workspace tool call.
func (t *WorkspaceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := sessionKey(ctx, t.fallback)

	var (
		reg *registry.Registry
		err error
	)
	if req.GetBool("force_refresh", false) {
		reg, err = t.store.ForceRefresh(ctx, key)
	} else {
		reg, err = t.store.Get(ctx, key)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading workspace: %v", err)), nil
	}

	b := newBuilder(reg)
	teams, err := b.teamSection()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lookups, err := b.fullLookupSections()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	meta, err := b.metaRow(nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp := &toon.Response{
		Meta:    meta,
		Lookups: append([]*toon.Section{teams}, lookups...),
	}
	return mcp.NewToolResultText(toon.NewEncoder().EncodeResponse(resp)), nil
}
