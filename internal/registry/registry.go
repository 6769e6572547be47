package registry

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/linctx/linctx/internal/workspace"
)

// Registry holds one session's short-key assignments: per entity kind a
// forward map (key→id), a reverse map (id→key), and cached entity
// metadata for lookup sections and ownership checks.
//
// Within one registry an id maps to exactly one key and vice versa; keys
// are never reassigned without a full rebuild. Rebuilds bump Generation,
// so keys are generation-scoped: a key issued against an older build may
// resolve differently (or not at all) after a refresh.
type Registry struct {
	generation    int
	builtAt       time.Time
	workspaceName string
	defaultTeamID string

	forward map[Kind]map[string]string // canonical key → id
	reverse map[Kind]map[string]string // id → canonical key
	ordered map[Kind][]string          // ids in assignment order

	teams    map[string]workspace.Team
	users    map[string]workspace.User
	states   map[string]workspace.State
	projects map[string]workspace.Project
	labels   map[string]workspace.Label
}

// Build assigns short keys from a snapshot.
//
// Assignment policy: users and projects are numbered globally by
// creation time ascending (ties keep snapshot order); states are
// numbered per owning team; labels use their literal name. States and
// labels owned by a team other than the default team get a
// `<teamkey-lowercase>:` prefix; workspace labels (no owning team) are
// always unprefixed.
//
// defaultTeamKey selects the default team by its key (case-insensitive);
// empty means no default team, so every team-scoped key is prefixed.
func Build(snap *workspace.Snapshot, defaultTeamKey string, generation int) (*Registry, error) {
	if snap == nil {
		return nil, fmt.Errorf("nil snapshot")
	}

	r := &Registry{
		generation:    generation,
		builtAt:       time.Now().UTC(),
		workspaceName: snap.WorkspaceName,
		forward:       map[Kind]map[string]string{},
		reverse:       map[Kind]map[string]string{},
		ordered:       map[Kind][]string{},
		teams:         map[string]workspace.Team{},
		users:         map[string]workspace.User{},
		states:        map[string]workspace.State{},
		projects:      map[string]workspace.Project{},
		labels:        map[string]workspace.Label{},
	}
	for _, k := range []Kind{KindUser, KindState, KindProject, KindLabel} {
		r.forward[k] = map[string]string{}
		r.reverse[k] = map[string]string{}
	}

	for _, t := range snap.Teams {
		r.teams[t.ID] = t
		if defaultTeamKey != "" && strings.EqualFold(t.Key, defaultTeamKey) {
			r.defaultTeamID = t.ID
		}
	}
	if defaultTeamKey != "" && r.defaultTeamID == "" {
		return nil, fmt.Errorf("default team %q not present in snapshot", defaultTeamKey)
	}

	// Users: global indices.
	for i, u := range sortByCreation(snap.Users, func(u workspace.User) time.Time { return u.CreatedAt }) {
		r.users[u.ID] = u
		r.assign(KindUser, Key{Kind: KindUser, Index: i}, u.ID)
	}

	// Projects: global indices.
	for i, p := range sortByCreation(snap.Projects, func(p workspace.Project) time.Time { return p.CreatedAt }) {
		r.projects[p.ID] = p
		r.assign(KindProject, Key{Kind: KindProject, Index: i}, p.ID)
	}

	// States: indices restart per owning team, so sqm:s0 is SQM's first
	// state even when the default team already has an s0.
	perTeam := map[string]int{}
	for _, s := range sortByCreation(snap.States, func(s workspace.State) time.Time { return s.CreatedAt }) {
		if _, ok := r.teams[s.TeamID]; !ok {
			return nil, fmt.Errorf("state %q: owning team %q not present in snapshot", s.ID, s.TeamID)
		}
		r.states[s.ID] = s
		idx := perTeam[s.TeamID]
		perTeam[s.TeamID]++
		r.assign(KindState, Key{Kind: KindState, TeamKey: r.teamPrefix(s.TeamID), Index: idx}, s.ID)
	}

	// Labels: literal names, no numeric assignment. TeamID is empty for
	// workspace labels, but a non-empty one must name a known team —
	// otherwise the label would degrade to an unprefixed key and could
	// collide with a default-team assignment.
	for _, l := range sortByCreation(snap.Labels, func(l workspace.Label) time.Time { return l.CreatedAt }) {
		if _, ok := r.teams[l.TeamID]; l.TeamID != "" && !ok {
			return nil, fmt.Errorf("label %q: owning team %q not present in snapshot", l.ID, l.TeamID)
		}
		r.labels[l.ID] = l
		r.assign(KindLabel, Key{Kind: KindLabel, TeamKey: r.teamPrefix(l.TeamID), LabelName: l.Name}, l.ID)
	}

	return r, nil
}

// assign records one key↔id pair and the assignment order.
func (r *Registry) assign(kind Kind, key Key, id string) {
	canonical := key.String()
	r.forward[kind][canonical] = id
	r.reverse[kind][id] = canonical
	r.ordered[kind] = append(r.ordered[kind], id)
}

// teamPrefix returns the lowercase key prefix for a team, or "" when the
// entity is workspace-level or owned by the default team.
func (r *Registry) teamPrefix(teamID string) string {
	if teamID == "" || teamID == r.defaultTeamID {
		return ""
	}
	t, ok := r.teams[teamID]
	if !ok {
		return ""
	}
	return strings.ToLower(t.Key)
}

// ShortKeyFor returns the assigned short key for an id.
func (r *Registry) ShortKeyFor(kind Kind, id string) (string, bool) {
	key, ok := r.reverse[kind][id]
	return key, ok
}

// Resolve maps a short key back to its id. The team prefix is
// normalized first: a prefix naming the default team is equivalent to
// the unprefixed form, so s0 and sqt:s0 resolve identically when SQT is
// the default team.
//
// Resolution is kind-directed: for labels the key body is always taken
// as a literal name, so a label named "s0" stays reachable. Label keys
// are matched verbatim before any prefix normalization — a label whose
// literal name starts with "<defaultteamkey>:" would otherwise be issued
// a key that never resolves.
func (r *Registry) Resolve(kind Kind, key string) (string, bool) {
	if kind == KindLabel {
		if id, ok := r.forward[kind][key]; ok {
			return id, true
		}
	}
	parsed, err := r.parseAs(kind, key)
	if err != nil {
		return "", false
	}
	id, ok := r.forward[kind][parsed.String()]
	return id, ok
}

// ResolveAny infers the kind from the key's shape and resolves it.
// Used by introspection tools where the caller has only the raw string.
func (r *Registry) ResolveAny(key string) (Kind, string, bool) {
	parsed, err := ParseKey(key)
	if err != nil {
		return "", "", false
	}
	id, ok := r.Resolve(parsed.Kind, key)
	return parsed.Kind, id, ok
}

// parseAs parses a key for a known kind and normalizes a default-team
// prefix away.
func (r *Registry) parseAs(kind Kind, key string) (Key, error) {
	var parsed Key
	if kind == KindLabel {
		teamKey, body, _ := splitTeamPrefix(key)
		if body == "" {
			return Key{}, fmt.Errorf("malformed label key %q", key)
		}
		parsed = Key{Kind: KindLabel, TeamKey: teamKey, LabelName: body}
	} else {
		var err error
		parsed, err = ParseKey(key)
		if err != nil {
			return Key{}, err
		}
		if parsed.Kind != kind {
			return Key{}, fmt.Errorf("key %q is a %s key, not a %s key", key, parsed.Kind, kind)
		}
	}
	if parsed.TeamKey != "" && parsed.TeamKey == r.defaultTeamPrefix() {
		parsed.TeamKey = ""
	}
	return parsed, nil
}

// defaultTeamPrefix returns the lowercase key of the default team, or "".
func (r *Registry) defaultTeamPrefix() string {
	t, ok := r.teams[r.defaultTeamID]
	if !ok {
		return ""
	}
	return strings.ToLower(t.Key)
}

// OwnerTeam returns the owning team of a team-scoped entity. Users and
// projects are global and report no owner; so do workspace labels.
func (r *Registry) OwnerTeam(kind Kind, id string) string {
	switch kind {
	case KindState:
		return r.states[id].TeamID
	case KindLabel:
		return r.labels[id].TeamID
	default:
		return ""
	}
}

// Entry is one registered key→id pair in assignment order.
type Entry struct {
	Key string
	ID  string
}

// Entries lists the registered assignments for a kind in assignment
// order — the order lookup sections render in.
func (r *Registry) Entries(kind Kind) []Entry {
	ids := r.ordered[kind]
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, Entry{Key: r.reverse[kind][id], ID: id})
	}
	return out
}

// Entity accessors for lookup rendering.

func (r *Registry) User(id string) (workspace.User, bool)       { u, ok := r.users[id]; return u, ok }
func (r *Registry) State(id string) (workspace.State, bool)     { s, ok := r.states[id]; return s, ok }
func (r *Registry) Project(id string) (workspace.Project, bool) { p, ok := r.projects[id]; return p, ok }
func (r *Registry) Label(id string) (workspace.Label, bool)     { l, ok := r.labels[id]; return l, ok }

// Teams lists all teams sorted by key.
func (r *Registry) Teams() []workspace.Team {
	out := make([]workspace.Team, 0, len(r.teams))
	for _, t := range r.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// TeamKey returns the natural key for a team id.
func (r *Registry) TeamKey(teamID string) (string, bool) {
	t, ok := r.teams[teamID]
	return t.Key, ok
}

// TeamByKey finds a team by its natural key, case-insensitively.
func (r *Registry) TeamByKey(key string) (workspace.Team, bool) {
	for _, t := range r.teams {
		if strings.EqualFold(t.Key, key) {
			return t, true
		}
	}
	return workspace.Team{}, false
}

func (r *Registry) Generation() int       { return r.generation }
func (r *Registry) BuiltAt() time.Time    { return r.builtAt }
func (r *Registry) WorkspaceName() string { return r.workspaceName }
func (r *Registry) DefaultTeamID() string { return r.defaultTeamID }

// sortByCreation returns a copy sorted by creation time ascending,
// keeping snapshot order for equal timestamps.
func sortByCreation[T any](items []T, createdAt func(T) time.Time) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return createdAt(out[i]).Before(createdAt(out[j]))
	})
	return out
}

// ExtKeys allocates response-local placeholder keys (ext0, ext1, ...)
// for referenced entities missing from the snapshot — a comment author
// who left the workspace, for example. Placeholders are unique within
// one response, stable per id, and sort after every registered key of
// their category.
type ExtKeys struct {
	byID  map[string]string
	order []ExtEntry
}

// ExtEntry is one allocated placeholder with its best-effort display name.
type ExtEntry struct {
	Key  string
	ID   string
	Name string
}

// NewExtKeys creates an empty allocator, scoped to one response.
func NewExtKeys() *ExtKeys {
	return &ExtKeys{byID: map[string]string{}}
}

// KeyFor returns the placeholder for an id, allocating on first use.
func (e *ExtKeys) KeyFor(id, displayName string) string {
	if key, ok := e.byID[id]; ok {
		return key
	}
	key := fmt.Sprintf("ext%d", len(e.order))
	e.byID[id] = key
	e.order = append(e.order, ExtEntry{Key: key, ID: id, Name: displayName})
	return key
}

// Entries lists allocations in assignment order.
func (e *ExtKeys) Entries() []ExtEntry { return e.order }
