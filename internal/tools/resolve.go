package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/linctx/linctx/internal/registry"
)

// ResolveKeyTool handles linear_resolve_key: introspection for a single
// short key. Useful when the agent wants to confirm what a key points
// at before using it in a write.
type ResolveKeyTool struct {
	store    *registry.Store
	fallback string
}

// NewResolveKeyTool creates a ResolveKeyTool with its dependencies.
func NewResolveKeyTool(store *registry.Store, fallbackSession string) *ResolveKeyTool {
	return &ResolveKeyTool{store: store, fallback: fallbackSession}
}

// Definition returns the MCP tool definition for registration.
func (t *ResolveKeyTool) Definition() mcp.Tool {
	return mcp.NewTool("linear_resolve_key",
		mcp.WithDescription(
			"Resolve a short key (u0, s3, pr1, sqm:s0, a label name) to the "+
				"entity it identifies. Optionally check it against a target team.",
		),
		mcp.WithString("key",
			mcp.Description("The short key to resolve."),
			mcp.Required(),
		),
		mcp.WithString("team",
			mcp.Description("Target team key: also run the cross-team checks against this team."),
		),
	)
}

// Handle processes the linear_resolve_key tool call.
func (t *ResolveKeyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reg, err := t.store.Get(ctx, sessionKey(ctx, t.fallback))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading workspace: %v", err)), nil
	}

	key := req.GetString("key", "")
	kind, id, ok := reg.ResolveAny(key)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf(
			"key %q does not resolve — re-read linear_workspace for the current key set", key)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "key: %s\nkind: %s\nid: %s\n", key, kind, id)
	switch kind {
	case registry.KindUser:
		if u, found := reg.User(id); found {
			fmt.Fprintf(&sb, "name: %s\n", u.Name)
		}
	case registry.KindState:
		if s, found := reg.State(id); found {
			fmt.Fprintf(&sb, "name: %s\ntype: %s\n", s.Name, s.Type)
			if teamKey, found := reg.TeamKey(s.TeamID); found {
				fmt.Fprintf(&sb, "team: %s\n", teamKey)
			}
		}
	case registry.KindProject:
		if p, found := reg.Project(id); found {
			fmt.Fprintf(&sb, "name: %s\n", p.Name)
		}
	case registry.KindLabel:
		if l, found := reg.Label(id); found {
			fmt.Fprintf(&sb, "name: %s\n", l.Name)
			if l.TeamID == "" {
				sb.WriteString("scope: workspace\n")
			} else if teamKey, found := reg.TeamKey(l.TeamID); found {
				fmt.Fprintf(&sb, "team: %s\n", teamKey)
			}
		}
	}

	if teamKey := req.GetString("team", ""); teamKey != "" {
		team, found := reg.TeamByKey(teamKey)
		if !found {
			return mcp.NewToolResultError(fmt.Sprintf("unknown team %q", teamKey)), nil
		}
		prefix := reg.ValidateKeyPrefix(key, team.ID)
		ownership := reg.ValidateOwnership(kind, id, team.ID)
		switch {
		case !prefix.Valid:
			fmt.Fprintf(&sb, "team_check: invalid — %s. %s\n", prefix.Error, prefix.Suggestion)
		case !ownership.Valid:
			fmt.Fprintf(&sb, "team_check: invalid — %s. %s\n", ownership.Error, ownership.Suggestion)
		default:
			fmt.Fprintf(&sb, "team_check: valid for team %s\n", team.Key)
		}
	}

	return mcp.NewToolResultText(sb.String()), nil
}
