package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/linctx/linctx/internal/registry"
	"github.com/linctx/linctx/internal/toon"
	"github.com/linctx/linctx/internal/workspace"
)

// IssuesTool handles linear_issues: a filtered issue list with
// referenced-only (Tier 2) lookups. Only the users, states, projects,
// and labels actually referenced by the result set are included, plus
// ext placeholders for references missing from the snapshot.
type IssuesTool struct {
	store    *registry.Store
	provider workspace.Provider
	fallback string
}

// NewIssuesTool creates an IssuesTool with its dependencies.
func NewIssuesTool(store *registry.Store, provider workspace.Provider, fallbackSession string) *IssuesTool {
	return &IssuesTool{store: store, provider: provider, fallback: fallbackSession}
}

// Definition returns the MCP tool definition for registration.
func (t *IssuesTool) Definition() mcp.Tool {
	return mcp.NewTool("linear_issues",
		mcp.WithDescription(
			"List issues, newest first. Filters accept short keys from "+
				"linear_workspace. The reply includes lookup sections for every "+
				"key the result set references.",
		),
		mcp.WithString("team",
			mcp.Description("Team key (e.g. SQT) to filter by."),
		),
		mcp.WithString("assignee",
			mcp.Description("Assignee short key (e.g. u1)."),
		),
		mcp.WithString("state",
			mcp.Description("Workflow state short key (e.g. s0 or sqm:s0)."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum issues to return. Defaults to 50."),
		),
	)
}

// Handle processes the linear_issues tool call.
func (t *IssuesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reg, err := t.store.Get(ctx, sessionKey(ctx, t.fallback))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading workspace: %v", err)), nil
	}

	filter := workspace.IssueFilter{Limit: intArg(req, "limit", 50)}
	meta := map[string]any{}

	if teamKey := req.GetString("team", ""); teamKey != "" {
		team, ok := reg.TeamByKey(teamKey)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown team %q", teamKey)), nil
		}
		filter.TeamID = team.ID
		meta["team"] = team.Key
	}
	if assignee := req.GetString("assignee", ""); assignee != "" {
		id, ok := reg.Resolve(registry.KindUser, assignee)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown assignee key %q — re-read linear_workspace", assignee)), nil
		}
		filter.AssigneeID = id
	}
	if state := req.GetString("state", ""); state != "" {
		id, ok := reg.Resolve(registry.KindState, state)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown state key %q — re-read linear_workspace", state)), nil
		}
		filter.StateID = id
	}

	issues, err := t.provider.ListIssues(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing issues: %v", err)), nil
	}

	b := newBuilder(reg)
	data := &toon.Section{Schema: toon.IssueSchema}
	for _, issue := range issues {
		row, err := b.issueRow(issue)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		data.Items = append(data.Items, row)
	}

	lookups, err := b.lookupSections(toon.ReferencedKeys(data))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	meta["count"] = len(issues)
	metaRow, err := b.metaRow(meta)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	enc := toon.NewEncoder()
	enc.KeepEmptySections = true // an empty issue list is a real answer
	resp := &toon.Response{Meta: metaRow, Lookups: lookups, Data: []*toon.Section{data}}
	return mcp.NewToolResultText(enc.EncodeResponse(resp)), nil
}
