// Package registry assigns and resolves per-session short keys: compact
// aliases (u0, s3, pr1, sqm:s0) substituted for stable Linear ids in
// tool responses. It owns the key grammar, the per-session build/resolve
// lifecycle, and the cross-team checks that guard mutation safety.
package registry

import (
	"fmt"
	"strings"
)

// Kind is the entity type a short key refers to.
type Kind string

const (
	KindUser    Kind = "user"
	KindState   Kind = "state"
	KindProject Kind = "project"
	KindLabel   Kind = "label"
)

// kindPrefix maps indexed kinds to their key prefix.
var kindPrefix = map[Kind]string{
	KindUser:    "u",
	KindState:   "s",
	KindProject: "pr",
}

// Key is the decomposed form of a short key.
//
// Indexed kinds (user, state, project) carry a zero-based Index; labels
// carry their literal name in LabelName. TeamKey holds the lowercase
// team prefix for team-scoped keys, "" for global/unprefixed ones.
type Key struct {
	Kind      Kind
	TeamKey   string
	Index     int
	LabelName string
}

// String renders the canonical wire form of the key.
func (k Key) String() string {
	var body string
	if k.Kind == KindLabel {
		body = k.LabelName
	} else {
		body = fmt.Sprintf("%s%d", kindPrefix[k.Kind], k.Index)
	}
	if k.TeamKey != "" {
		return k.TeamKey + ":" + body
	}
	return body
}

// ParseKey decomposes a candidate short key into its tagged form.
// Malformed input yields an error, never a guessed partial result.
//
// Shapes, in match order:
//
//	u<N>, s<N>, pr<N>    indexed keys (no leading zeros)
//	<team>:s<N>          team-scoped state
//	<team>:<name>        team-scoped label
//	<anything else>      workspace label (literal name)
//
// Users and projects are always global, so a team prefix on u<N> or
// pr<N> is malformed. ext<N> placeholders are response-local and never
// resolve; parsing one is an explicit error.
func ParseKey(s string) (Key, error) {
	if s == "" {
		return Key{}, fmt.Errorf("empty short key")
	}

	teamKey, body, prefixed := splitTeamPrefix(s)
	if prefixed && teamKey == "" {
		return Key{}, fmt.Errorf("malformed short key %q: empty team prefix", s)
	}
	if body == "" {
		return Key{}, fmt.Errorf("malformed short key %q: empty key body", s)
	}

	if n, ok := indexSuffix(body, "ext"); ok && n >= 0 {
		return Key{}, fmt.Errorf("key %q is a response-local placeholder and cannot be resolved", s)
	}

	for _, kind := range []Kind{KindProject, KindUser, KindState} {
		n, ok := indexSuffix(body, kindPrefix[kind])
		if !ok {
			continue
		}
		if n < 0 {
			return Key{}, fmt.Errorf("malformed short key %q: bad index", s)
		}
		if prefixed && kind != KindState {
			return Key{}, fmt.Errorf("malformed short key %q: %s keys are global and take no team prefix", s, kind)
		}
		return Key{Kind: kind, TeamKey: teamKey, Index: n}, nil
	}

	// Everything else is a label name, team-scoped or not.
	return Key{Kind: KindLabel, TeamKey: teamKey, LabelName: body}, nil
}

// splitTeamPrefix separates an optional `<teamkey>:` prefix. The prefix
// is lowercased for case-insensitive matching.
func splitTeamPrefix(s string) (teamKey, body string, prefixed bool) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return "", s, false
	}
	return strings.ToLower(s[:i]), s[i+1:], true
}

// indexSuffix matches `<prefix><digits>` with no leading zeros.
// Returns ok=false if the prefix doesn't match at all, and n=-1 with
// ok=true if the prefix matches but the index is malformed.
func indexSuffix(body, prefix string) (n int, ok bool) {
	rest, found := strings.CutPrefix(body, prefix)
	if !found || rest == "" || rest[0] < '0' || rest[0] > '9' {
		return 0, false
	}
	if len(rest) > 1 && rest[0] == '0' {
		return -1, true
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return -1, true
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
