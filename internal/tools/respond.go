package tools

import (
	"sort"

	"github.com/linctx/linctx/internal/registry"
	"github.com/linctx/linctx/internal/toon"
	"github.com/linctx/linctx/internal/workspace"
)

// refKinds orders the lookup sections on the wire: users, states,
// projects, labels.
var refKinds = []struct {
	ref  toon.RefKind
	kind registry.Kind
}{
	{toon.RefUser, registry.KindUser},
	{toon.RefState, registry.KindState},
	{toon.RefProject, registry.KindProject},
	{toon.RefLabel, registry.KindLabel},
}

// builder shapes TOON responses for one tool call. It wraps the session
// registry and allocates ext placeholders for referenced entities the
// snapshot doesn't know — placeholders are scoped to this one response.
type builder struct {
	reg *registry.Registry
	ext map[registry.Kind]*registry.ExtKeys
}

func newBuilder(reg *registry.Registry) *builder {
	ext := make(map[registry.Kind]*registry.ExtKeys, len(refKinds))
	for _, rk := range refKinds {
		ext[rk.kind] = registry.NewExtKeys()
	}
	return &builder{reg: reg, ext: ext}
}

// keyFor returns the short key for an id: the registered key when the
// registry knows the entity, an ext placeholder otherwise. Empty ids
// (no assignee, no project) yield an empty cell.
func (b *builder) keyFor(kind registry.Kind, id, displayName string) string {
	if id == "" {
		return ""
	}
	if key, ok := b.reg.ShortKeyFor(kind, id); ok {
		return key
	}
	return b.ext[kind].KeyFor(id, displayName)
}

// metaRow builds the _meta block: workspace identity, extra per-tool
// fields (sorted for deterministic output), and the registry generation
// so the agent can detect that its keys went stale.
func (b *builder) metaRow(extra map[string]any) (*toon.Row, error) {
	fields := []string{"workspace", "defaultTeam"}
	extraKeys := make([]string, 0, len(extra))
	for k := range extra {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	fields = append(fields, extraKeys...)
	fields = append(fields, "registry_gen", "registry_built_at")

	defaultTeam := ""
	if key, ok := b.reg.TeamKey(b.reg.DefaultTeamID()); ok {
		defaultTeam = key
	}
	values := []any{b.reg.WorkspaceName(), defaultTeam}
	for _, k := range extraKeys {
		values = append(values, extra[k])
	}
	values = append(values, b.reg.Generation(), b.reg.BuiltAt())

	return toon.MetaSchema(fields...).Row(values...)
}

// issueRow converts an issue to its list-view row, swapping raw ids for
// short keys.
func (b *builder) issueRow(issue workspace.Issue) (*toon.Row, error) {
	stateName := ""
	if s, ok := b.reg.State(issue.StateID); ok {
		stateName = s.Name
	}
	assigneeName := ""
	if u, ok := b.reg.User(issue.AssigneeID); ok {
		assigneeName = u.Name
	}
	projectName := ""
	if p, ok := b.reg.Project(issue.ProjectID); ok {
		projectName = p.Name
	}

	labels := make([]string, 0, len(issue.LabelIDs))
	for _, id := range issue.LabelIDs {
		labelName := ""
		if l, ok := b.reg.Label(id); ok {
			labelName = l.Name
		}
		labels = append(labels, b.keyFor(registry.KindLabel, id, labelName))
	}

	var estimate any
	if issue.Estimate != 0 {
		estimate = issue.Estimate
	}

	return toon.IssueSchema.Row(
		issue.Identifier,
		issue.Title,
		b.keyFor(registry.KindState, issue.StateID, stateName),
		b.keyFor(registry.KindUser, issue.AssigneeID, assigneeName),
		issue.Priority,
		estimate,
		b.keyFor(registry.KindProject, issue.ProjectID, projectName),
		labels,
		issue.UpdatedAt,
	)
}

// detailRow converts an issue to its full-detail row, description
// included.
func (b *builder) detailRow(issue workspace.Issue) (*toon.Row, error) {
	stateName := ""
	if s, ok := b.reg.State(issue.StateID); ok {
		stateName = s.Name
	}
	assigneeName := ""
	if u, ok := b.reg.User(issue.AssigneeID); ok {
		assigneeName = u.Name
	}
	creatorName := ""
	if u, ok := b.reg.User(issue.CreatorID); ok {
		creatorName = u.Name
	}
	projectName := ""
	if p, ok := b.reg.Project(issue.ProjectID); ok {
		projectName = p.Name
	}

	labels := make([]string, 0, len(issue.LabelIDs))
	for _, id := range issue.LabelIDs {
		labelName := ""
		if l, ok := b.reg.Label(id); ok {
			labelName = l.Name
		}
		labels = append(labels, b.keyFor(registry.KindLabel, id, labelName))
	}

	var estimate any
	if issue.Estimate != 0 {
		estimate = issue.Estimate
	}

	return toon.IssueDetailSchema.Row(
		issue.Identifier,
		issue.Title,
		issue.Description,
		b.keyFor(registry.KindState, issue.StateID, stateName),
		b.keyFor(registry.KindUser, issue.AssigneeID, assigneeName),
		b.keyFor(registry.KindUser, issue.CreatorID, creatorName),
		issue.Priority,
		estimate,
		b.keyFor(registry.KindProject, issue.ProjectID, projectName),
		labels,
		issue.CreatedAt,
		issue.UpdatedAt,
	)
}

// commentRow converts a comment to its row; the author may be an ext
// placeholder (deactivated users stay attributed on old threads).
func (b *builder) commentRow(c workspace.Comment) (*toon.Row, error) {
	authorName := ""
	if u, ok := b.reg.User(c.AuthorID); ok {
		authorName = u.Name
	}
	return toon.CommentSchema.Row(
		b.keyFor(registry.KindUser, c.AuthorID, authorName),
		c.CreatedAt,
		c.Body,
	)
}

// lookupSections builds the referenced-only (Tier 2) lookups: one section
// per kind holding exactly the keys the data sections mention. Keys that
// don't resolve are ext placeholders; their rows come from the allocator
// in the second pass of buildSections.
func (b *builder) lookupSections(refs map[toon.RefKind][]string) ([]*toon.Section, error) {
	include := map[registry.Kind][]string{}
	for _, rk := range refKinds {
		seen := map[string]bool{}
		for _, key := range refs[rk.ref] {
			id, ok := b.reg.Resolve(rk.kind, key)
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			include[rk.kind] = append(include[rk.kind], id)
		}
	}
	return b.buildSections(include)
}

// fullLookupSections builds the Tier 1 lookups: every registered key of
// every kind, in assignment order.
func (b *builder) fullLookupSections() ([]*toon.Section, error) {
	include := map[registry.Kind][]string{}
	for _, rk := range refKinds {
		for _, e := range b.reg.Entries(rk.kind) {
			include[rk.kind] = append(include[rk.kind], e.ID)
		}
	}
	return b.buildSections(include)
}

// buildSections renders lookup sections in two passes. Registered rows
// come first for every kind: rendering a project row may allocate an ext
// user for its lead, so ext rows can only be collected once all
// registered rows exist. The split also guarantees ext keys sort after
// every registered key of their section.
func (b *builder) buildSections(include map[registry.Kind][]string) ([]*toon.Section, error) {
	sections := map[registry.Kind]*toon.Section{}
	var out []*toon.Section

	for _, rk := range refKinds {
		ids := include[rk.kind]
		if len(ids) == 0 {
			continue
		}
		sec := &toon.Section{Schema: lookupSchema(rk.kind)}
		for _, id := range ids {
			row, err := b.registeredLookupRow(rk.kind, id)
			if err != nil {
				return nil, err
			}
			sec.Items = append(sec.Items, row)
		}
		sections[rk.kind] = sec
		out = append(out, sec)
	}

	for _, rk := range refKinds {
		entries := b.ext[rk.kind].Entries()
		if len(entries) == 0 {
			continue
		}
		sec := sections[rk.kind]
		if sec == nil {
			sec = &toon.Section{Schema: lookupSchema(rk.kind)}
			out = append(out, sec)
		}
		for _, e := range entries {
			row, err := extLookupRow(lookupSchema(rk.kind), e)
			if err != nil {
				return nil, err
			}
			sec.Items = append(sec.Items, row)
		}
	}
	return out, nil
}

// lookupSchema maps a kind to its lookup section schema.
func lookupSchema(kind registry.Kind) *toon.Schema {
	switch kind {
	case registry.KindUser:
		return toon.UserLookupSchema
	case registry.KindState:
		return toon.StateLookupSchema
	case registry.KindProject:
		return toon.ProjectLookupSchema
	default:
		return toon.LabelLookupSchema
	}
}

// registeredLookupRow renders one registered entity's lookup row.
func (b *builder) registeredLookupRow(kind registry.Kind, id string) (*toon.Row, error) {
	key, _ := b.reg.ShortKeyFor(kind, id)
	switch kind {
	case registry.KindUser:
		u, _ := b.reg.User(id)
		role := "member"
		if u.Admin {
			role = "admin"
		}
		return toon.UserLookupSchema.Row(key, u.Name, u.Email, role)
	case registry.KindState:
		s, _ := b.reg.State(id)
		return toon.StateLookupSchema.Row(key, s.Name, s.Type)
	case registry.KindProject:
		p, _ := b.reg.Project(id)
		leadName := ""
		if u, ok := b.reg.User(p.LeadID); ok {
			leadName = u.Name
		}
		lead := b.keyFor(registry.KindUser, p.LeadID, leadName)
		return toon.ProjectLookupSchema.Row(key, p.Name, p.Priority, p.Progress, lead, p.TargetDate)
	default:
		l, _ := b.reg.Label(id)
		return toon.LabelLookupSchema.Row(key, l.Name)
	}
}

// extLookupRow renders a placeholder row: key and best-effort name, the
// rest explicitly null.
func extLookupRow(schema *toon.Schema, e registry.ExtEntry) (*toon.Row, error) {
	row := schema.NewRow()
	if err := row.Set("key", e.Key); err != nil {
		return nil, err
	}
	if err := row.Set("name", e.Name); err != nil {
		return nil, err
	}
	for _, f := range schema.Fields[2:] {
		if err := row.Set(f, nil); err != nil {
			return nil, err
		}
	}
	return row, nil
}

// teamSection lists all teams by natural key; teams have no short keys.
func (b *builder) teamSection() (*toon.Section, error) {
	sec := &toon.Section{Schema: toon.TeamLookupSchema}
	for _, t := range b.reg.Teams() {
		row, err := toon.TeamLookupSchema.Row(t.Key, t.Name)
		if err != nil {
			return nil, err
		}
		sec.Items = append(sec.Items, row)
	}
	return sec, nil
}
