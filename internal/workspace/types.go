// Package workspace defines the snapshot types the codec core consumes
// and the provider abstraction behind which all Linear I/O lives.
//
// The codec performs no I/O itself: an external collaborator fetches the
// snapshot, the registry assigns short keys from it, and tools shape
// responses out of it. Provider is an interface so the server can be
// wired against the real API client, the sqlite snapshot cache, or a
// test fixture interchangeably.
package workspace

import (
	"context"
	"time"
)

// Team is a Linear team. The key (e.g. "SQT") is a natural key and is
// used as-is for issue identifiers and short-key prefixes.
type Team struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// User is a workspace member.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"createdAt"`
}

// State is a workflow state. States are team-owned.
type State struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"` // triage, backlog, unstarted, started, completed, canceled
	TeamID    string    `json:"teamId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Project is a workspace-level project.
type Project struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Priority   int        `json:"priority"`
	Progress   float64    `json:"progress"`
	LeadID     string     `json:"leadId,omitempty"`
	TargetDate *time.Time `json:"targetDate,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Label is an issue label. TeamID is empty for workspace-level labels,
// which are valid for any team.
type Label struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TeamID    string    `json:"teamId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Snapshot is the per-workspace entity inventory the registry is built
// from. Slice order is preserved as the tiebreak for equal timestamps.
type Snapshot struct {
	WorkspaceName string    `json:"workspaceName"`
	Teams         []Team    `json:"teams"`
	Users         []User    `json:"users"`
	States        []State   `json:"states"`
	Projects      []Project `json:"projects"`
	Labels        []Label   `json:"labels"`
	FetchedAt     time.Time `json:"fetchedAt"`
}

// Issue is the list-view shape of an issue. Reference fields hold raw
// ids; the response builder swaps them for short keys.
type Issue struct {
	ID          string    `json:"id"`
	Identifier  string    `json:"identifier"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StateID     string    `json:"stateId"`
	AssigneeID  string    `json:"assigneeId,omitempty"`
	CreatorID   string    `json:"creatorId,omitempty"`
	Priority    int       `json:"priority"`
	Estimate    float64   `json:"estimate,omitempty"`
	ProjectID   string    `json:"projectId,omitempty"`
	LabelIDs    []string  `json:"labelIds,omitempty"`
	TeamID      string    `json:"teamId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Comment is one comment on an issue. Body is rich text.
type Comment struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issueId"`
	AuthorID  string    `json:"authorId,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// IssueFilter narrows ListIssues. Zero values mean "no filter".
type IssueFilter struct {
	TeamID     string
	AssigneeID string
	StateID    string
	Limit      int
}

// Provider is the external collaborator: everything that talks to
// Linear. Implementations own query construction, auth, and retries —
// none of which this repository implements.
type Provider interface {
	// FetchSnapshot returns the current workspace entity inventory.
	FetchSnapshot(ctx context.Context) (*Snapshot, error)

	// ListIssues returns issues matching the filter, newest first.
	ListIssues(ctx context.Context, filter IssueFilter) ([]Issue, error)

	// GetIssue returns one issue (by identifier or id) with its
	// comments, oldest first.
	GetIssue(ctx context.Context, issueID string) (*Issue, []Comment, error)

	// UpdateIssueState moves an issue to a (previously validated)
	// workflow state.
	UpdateIssueState(ctx context.Context, issueID, stateID string) error
}
