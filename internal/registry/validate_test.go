package registry

import (
	"strings"
	"testing"
)

// --- Prefix checks (pre-resolution) ---

func TestValidateKeyPrefix_DefaultTeamTarget(t *testing.T) {
	r := buildRegistry(t, "SQT")

	if v := r.ValidateKeyPrefix("s0", "team-sqt"); !v.Valid {
		t.Errorf("unprefixed key for default team rejected: %+v", v)
	}
	if v := r.ValidateKeyPrefix("sqt:s0", "team-sqt"); !v.Valid {
		t.Errorf("explicit default prefix rejected: %+v", v)
	}
	if v := r.ValidateKeyPrefix("sqm:s0", "team-sqm"); !v.Valid {
		t.Errorf("matching prefix rejected: %+v", v)
	}
	if v := r.ValidateKeyPrefix("SQM:s0", "team-sqm"); !v.Valid {
		t.Errorf("prefix match should be case-insensitive: %+v", v)
	}
}

func TestValidateKeyPrefix_UnprefixedForOtherTeam(t *testing.T) {
	r := buildRegistry(t, "SQT")

	v := r.ValidateKeyPrefix("s0", "team-sqm")
	if v.Valid {
		t.Fatal("unprefixed key accepted for non-default team")
	}
	if !strings.Contains(v.Error, "SQT") || !strings.Contains(v.Error, "SQM") {
		t.Errorf("error should name both teams: %q", v.Error)
	}
	if !strings.Contains(v.Suggestion, "sqm:s0") {
		t.Errorf("suggestion should carry the corrected key: %q", v.Suggestion)
	}
}

func TestValidateKeyPrefix_WrongPrefix(t *testing.T) {
	r := buildRegistry(t, "SQT")

	v := r.ValidateKeyPrefix("sqm:s0", "team-sqt")
	if v.Valid {
		t.Fatal("SQM-scoped key accepted for SQT target")
	}
	if !strings.Contains(v.Error, "SQM") || !strings.Contains(v.Error, "SQT") {
		t.Errorf("error should name both teams: %q", v.Error)
	}
	// Target is the default team, so the fix is the unprefixed form.
	if !strings.Contains(v.Suggestion, `"s0"`) {
		t.Errorf("suggestion should be the unprefixed key: %q", v.Suggestion)
	}
}

func TestValidateKeyPrefix_UnknownTarget(t *testing.T) {
	r := buildRegistry(t, "SQT")
	if v := r.ValidateKeyPrefix("s0", "team-nope"); v.Valid {
		t.Error("unknown target team accepted")
	}
}

func TestValidateKeyPrefix_NoDefaultTeam(t *testing.T) {
	r := buildRegistry(t, "")

	// Without a default team an unprefixed key belongs to nobody.
	v := r.ValidateKeyPrefix("s0", "team-sqt")
	if v.Valid {
		t.Fatal("unprefixed key accepted with no default team configured")
	}
	if !strings.Contains(v.Error, "no default team") {
		t.Errorf("error = %q", v.Error)
	}
	if v := r.ValidateKeyPrefix("sqt:s0", "team-sqt"); !v.Valid {
		t.Errorf("prefixed key rejected: %+v", v)
	}
}

// --- Ownership checks (post-resolution) ---

func TestValidateOwnership(t *testing.T) {
	r := buildRegistry(t, "SQT")

	if v := r.ValidateOwnership(KindState, "state-sqt-todo", "team-sqt"); !v.Valid {
		t.Errorf("owned state rejected: %+v", v)
	}

	v := r.ValidateOwnership(KindState, "state-sqm-todo", "team-sqt")
	if v.Valid {
		t.Fatal("SQM state accepted for SQT target")
	}
	if !strings.Contains(v.Error, "SQM") || !strings.Contains(v.Error, "SQT") {
		t.Errorf("error should name both teams: %q", v.Error)
	}
	if v.Suggestion == "" {
		t.Error("cross-team violation should carry a suggestion")
	}
}

func TestValidateOwnership_GlobalAndWorkspaceEntities(t *testing.T) {
	r := buildRegistry(t, "SQT")

	// Users and projects have no owner; workspace labels skip the check.
	if v := r.ValidateOwnership(KindUser, "user-a", "team-sqm"); !v.Valid {
		t.Errorf("global user rejected: %+v", v)
	}
	if v := r.ValidateOwnership(KindLabel, "label-urgent", "team-sqm"); !v.Valid {
		t.Errorf("workspace label rejected: %+v", v)
	}
	if v := r.ValidateOwnership(KindLabel, "label-debt", "team-sqt"); v.Valid {
		t.Error("SQM team label accepted for SQT")
	}
}

// --- End to end: the guarded write path ---

// A write targeting SQM with the bare key s0 must be stopped twice over:
// the prefix check rejects the bare form, and even a resolved default-team
// state would fail ownership against SQM.
func TestCrossTeamWriteGuard(t *testing.T) {
	r := buildRegistry(t, "SQT")

	if v := r.ValidateKeyPrefix("s0", "team-sqm"); v.Valid {
		t.Fatal("prefix guard missed the cross-team write")
	}

	id, ok := r.Resolve(KindState, "s0")
	if !ok {
		t.Fatal("s0 should resolve against the default team")
	}
	if v := r.ValidateOwnership(KindState, id, "team-sqm"); v.Valid {
		t.Fatal("ownership guard missed the cross-team write")
	}

	// The corrected key passes both checks.
	if v := r.ValidateKeyPrefix("sqm:s0", "team-sqm"); !v.Valid {
		t.Fatalf("corrected key failed prefix check: %+v", v)
	}
	id, ok = r.Resolve(KindState, "sqm:s0")
	if !ok {
		t.Fatal("sqm:s0 should resolve")
	}
	if v := r.ValidateOwnership(KindState, id, "team-sqm"); !v.Valid {
		t.Fatalf("corrected key failed ownership check: %+v", v)
	}
}
