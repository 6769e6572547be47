package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// Document is the on-disk shape a FileProvider reads: one workspace
// snapshot plus its issues.
type Document struct {
	Snapshot Snapshot  `json:"snapshot"`
	Issues   []Issue   `json:"issues"`
	Comments []Comment `json:"comments,omitempty"`
}

// FileProvider serves a workspace from a JSON export on disk. It is the
// provider used for local development and tests; state updates are
// applied in memory and not written back.
type FileProvider struct {
	mu  sync.Mutex
	doc Document
}

// NewFileProvider loads a workspace document from path.
func NewFileProvider(path string) (*FileProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workspace document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing workspace document %s: %w", path, err)
	}
	return &FileProvider{doc: doc}, nil
}

// NewMemoryProvider wraps an in-memory document; used by tests.
func NewMemoryProvider(doc Document) *FileProvider {
	return &FileProvider{doc: doc}
}

// FetchSnapshot returns the workspace entity inventory.
func (p *FileProvider) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := p.doc.Snapshot
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now().UTC()
	}
	return &snap, nil
}

// ListIssues returns issues matching the filter, newest first.
func (p *FileProvider) ListIssues(ctx context.Context, filter IssueFilter) ([]Issue, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []Issue
	for _, issue := range p.doc.Issues {
		if filter.TeamID != "" && issue.TeamID != filter.TeamID {
			continue
		}
		if filter.AssigneeID != "" && issue.AssigneeID != filter.AssigneeID {
			continue
		}
		if filter.StateID != "" && issue.StateID != filter.StateID {
			continue
		}
		out = append(out, issue)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// GetIssue returns one issue (by identifier or id) with its comments,
// oldest first.
func (p *FileProvider) GetIssue(ctx context.Context, issueID string) (*Issue, []Comment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.doc.Issues {
		if p.doc.Issues[i].Identifier != issueID && p.doc.Issues[i].ID != issueID {
			continue
		}
		issue := p.doc.Issues[i]
		var comments []Comment
		for _, c := range p.doc.Comments {
			if c.IssueID == issue.ID {
				comments = append(comments, c)
			}
		}
		sort.SliceStable(comments, func(a, b int) bool {
			return comments[a].CreatedAt.Before(comments[b].CreatedAt)
		})
		return &issue, comments, nil
	}
	return nil, nil, fmt.Errorf("issue %q not found", issueID)
}

// UpdateIssueState moves an issue (by identifier or id) to a state.
func (p *FileProvider) UpdateIssueState(ctx context.Context, issueID, stateID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.doc.Issues {
		if p.doc.Issues[i].Identifier == issueID || p.doc.Issues[i].ID == issueID {
			p.doc.Issues[i].StateID = stateID
			p.doc.Issues[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("issue %q not found", issueID)
}
