package registry

import (
	"fmt"
	"strings"
)

// Validation is the structured outcome of a cross-team check. Checks
// never panic or return Go errors for domain violations: a batch caller
// reports invalid items individually and keeps going.
type Validation struct {
	Valid      bool
	Error      string
	Suggestion string
}

func validationOK() Validation { return Validation{Valid: true} }

// ValidateKeyPrefix checks, before resolution, that a team-scoped short
// key is legal for the target team.
//
// An unprefixed key belongs to the default team and is valid only when
// the target is the default team. A prefixed key is valid only when its
// prefix names the target team (case-insensitive). Violations carry both
// team names and a correctly-prefixed suggestion.
func (r *Registry) ValidateKeyPrefix(key string, targetTeamID string) Validation {
	target, ok := r.teams[targetTeamID]
	if !ok {
		return Validation{
			Error:      fmt.Sprintf("unknown target team id %q", targetTeamID),
			Suggestion: "re-query the workspace snapshot for the list of teams",
		}
	}

	prefix, body, prefixed := splitTeamPrefix(key)

	if !prefixed || (prefix != "" && prefix == r.defaultTeamPrefix()) {
		if targetTeamID == r.defaultTeamID {
			return validationOK()
		}
		defaultName := "no default team"
		if t, ok := r.teams[r.defaultTeamID]; ok {
			defaultName = fmt.Sprintf("team %s (%s)", t.Key, t.Name)
		}
		return Validation{
			Error: fmt.Sprintf("key %q belongs to %s but the target is team %s (%s)",
				key, defaultName, target.Key, target.Name),
			Suggestion: fmt.Sprintf("use the team-scoped key %q", strings.ToLower(target.Key)+":"+body),
		}
	}

	if strings.EqualFold(prefix, target.Key) {
		return validationOK()
	}

	prefixTeamName := prefix
	if t, ok := r.TeamByKey(prefix); ok {
		prefixTeamName = fmt.Sprintf("%s (%s)", t.Key, t.Name)
	}
	suggestion := strings.ToLower(target.Key) + ":" + body
	if targetTeamID == r.defaultTeamID {
		suggestion = body
	}
	return Validation{
		Error: fmt.Sprintf("key %q is scoped to team %s but the target is team %s (%s)",
			key, prefixTeamName, target.Key, target.Name),
		Suggestion: fmt.Sprintf("use %q", suggestion),
	}
}

// ValidateOwnership checks, after resolution, that the resolved entity
// is actually owned by the target team.
//
// Entities without ownership metadata pass — the upstream API is the
// final authority. Workspace labels (no owning team) are valid for any
// team and skip the check entirely.
func (r *Registry) ValidateOwnership(kind Kind, id, targetTeamID string) Validation {
	owner := r.OwnerTeam(kind, id)
	if owner == "" || owner == targetTeamID {
		return validationOK()
	}

	ownerName, targetName := owner, targetTeamID
	if t, ok := r.teams[owner]; ok {
		ownerName = fmt.Sprintf("%s (%s)", t.Key, t.Name)
	}
	if t, ok := r.teams[targetTeamID]; ok {
		targetName = fmt.Sprintf("%s (%s)", t.Key, t.Name)
	}
	return Validation{
		Error: fmt.Sprintf("%s %q is owned by team %s, not target team %s",
			kind, id, ownerName, targetName),
		Suggestion: fmt.Sprintf("re-query the workspace snapshot for team %s to list its valid keys", targetName),
	}
}
