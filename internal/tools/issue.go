package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/linctx/linctx/internal/registry"
	"github.com/linctx/linctx/internal/toon"
	"github.com/linctx/linctx/internal/workspace"
)

// IssueTool handles linear_issue: the full-detail view of one issue with
// its comment thread. Rich-text fields are normalized but not truncated.
type IssueTool struct {
	store    *registry.Store
	provider workspace.Provider
	fallback string
}

// NewIssueTool creates an IssueTool with its dependencies.
func NewIssueTool(store *registry.Store, provider workspace.Provider, fallbackSession string) *IssueTool {
	return &IssueTool{store: store, provider: provider, fallback: fallbackSession}
}

// Definition returns the MCP tool definition for registration.
func (t *IssueTool) Definition() mcp.Tool {
	return mcp.NewTool("linear_issue",
		mcp.WithDescription(
			"Read one issue in full: description, metadata, and the comment "+
				"thread. Comment authors missing from the snapshot appear as "+
				"ext placeholders valid only within this reply.",
		),
		mcp.WithString("issue",
			mcp.Description("Issue identifier (e.g. SQT-12)."),
			mcp.Required(),
		),
	)
}

// Handle processes the linear_issue tool call.
func (t *IssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reg, err := t.store.Get(ctx, sessionKey(ctx, t.fallback))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading workspace: %v", err)), nil
	}

	identifier := req.GetString("issue", "")
	issue, comments, err := t.provider.GetIssue(ctx, identifier)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reading issue: %v", err)), nil
	}

	b := newBuilder(reg)
	detailRow, err := b.detailRow(*issue)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail := &toon.Section{Schema: toon.IssueDetailSchema, Items: []*toon.Row{detailRow}}

	thread := &toon.Section{Schema: toon.CommentSchema}
	for _, c := range comments {
		row, err := b.commentRow(c)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		thread.Items = append(thread.Items, row)
	}

	refs := toon.ReferencedKeys(detail)
	for kind, keys := range toon.ReferencedKeys(thread) {
		refs[kind] = append(refs[kind], keys...)
	}
	lookups, err := b.lookupSections(refs)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	metaRow, err := b.metaRow(map[string]any{"issue": issue.Identifier, "comments": len(comments)})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	enc := toon.NewEncoder()
	enc.Limits = toon.FullDetailLimits()
	resp := &toon.Response{Meta: metaRow, Lookups: lookups, Data: []*toon.Section{detail, thread}}
	return mcp.NewToolResultText(enc.EncodeResponse(resp)), nil
}
