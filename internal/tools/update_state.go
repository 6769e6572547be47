package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/linctx/linctx/internal/registry"
	"github.com/linctx/linctx/internal/workspace"
)

// UpdateStateTool handles linear_update_state: the guarded write path.
// The state key is checked against the target team twice — prefix before
// resolution, ownership after — so an agent holding SQT's s1 can never
// move an SQM issue with it. Issues are updated individually; one
// failure does not abort the batch.
type UpdateStateTool struct {
	store    *registry.Store
	provider workspace.Provider
	fallback string
}

// NewUpdateStateTool creates an UpdateStateTool with its dependencies.
func NewUpdateStateTool(store *registry.Store, provider workspace.Provider, fallbackSession string) *UpdateStateTool {
	return &UpdateStateTool{store: store, provider: provider, fallback: fallbackSession}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateStateTool) Definition() mcp.Tool {
	return mcp.NewTool("linear_update_state",
		mcp.WithDescription(
			"Move one or more issues to a workflow state. The state short key "+
				"must be valid for the issues' team: unprefixed keys belong to the "+
				"default team, other teams need the team-scoped form (sqm:s0).",
		),
		mcp.WithString("team",
			mcp.Description("Team key of the issues being updated (e.g. SQM)."),
			mcp.Required(),
		),
		mcp.WithString("issues",
			mcp.Description("Comma-separated issue identifiers (e.g. SQM-4,SQM-9)."),
			mcp.Required(),
		),
		mcp.WithString("state",
			mcp.Description("Target workflow state short key (e.g. sqm:s2)."),
			mcp.Required(),
		),
	)
}

// Handle processes the linear_update_state tool call.
func (t *UpdateStateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reg, err := t.store.Get(ctx, sessionKey(ctx, t.fallback))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading workspace: %v", err)), nil
	}

	teamKey := req.GetString("team", "")
	stateKey := req.GetString("state", "")
	identifiers := splitIdentifiers(req.GetString("issues", ""))
	if len(identifiers) == 0 {
		return mcp.NewToolResultError("no issue identifiers given"), nil
	}

	team, ok := reg.TeamByKey(teamKey)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown team %q", teamKey)), nil
	}

	// Cross-team checks: prefix first, ownership after resolution.
	if v := reg.ValidateKeyPrefix(stateKey, team.ID); !v.Valid {
		return mcp.NewToolResultError(fmt.Sprintf("%s. %s", v.Error, v.Suggestion)), nil
	}
	stateID, ok := reg.Resolve(registry.KindState, stateKey)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf(
			"unknown state key %q — re-read linear_workspace for valid keys", stateKey)), nil
	}
	if v := reg.ValidateOwnership(registry.KindState, stateID, team.ID); !v.Valid {
		return mcp.NewToolResultError(fmt.Sprintf("%s. %s", v.Error, v.Suggestion)), nil
	}

	// Per-item application: report each outcome, never abort the batch.
	var sb strings.Builder
	failures := 0
	for _, ident := range identifiers {
		if err := t.provider.UpdateIssueState(ctx, ident, stateID); err != nil {
			failures++
			fmt.Fprintf(&sb, "%s: failed: %v\n", ident, err)
			continue
		}
		fmt.Fprintf(&sb, "%s: ok\n", ident)
	}
	fmt.Fprintf(&sb, "\n%d updated, %d failed", len(identifiers)-failures, failures)

	if failures == len(identifiers) {
		return mcp.NewToolResultError(sb.String()), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// splitIdentifiers parses the comma-separated issues argument.
func splitIdentifiers(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
