package toon

import (
	"math"
	"strings"
	"testing"
	"time"
)

// --- Scalar encoding ---

func TestRawScalar(t *testing.T) {
	ts := time.Date(2024, 3, 10, 14, 30, 0, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "hello", "hello"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"float", 2.5, "2.5"},
		{"float integral", float64(3), "3"},
		{"NaN", math.NaN(), ""},
		{"positive infinity", math.Inf(1), ""},
		{"negative infinity", math.Inf(-1), ""},
		{"timestamp normalized to UTC", ts, "2024-03-10T13:30:00Z"},
		{"zero time", time.Time{}, ""},
		{"nil time pointer", (*time.Time)(nil), ""},
		{"nil string pointer", (*string)(nil), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rawScalar(tt.value); got != tt.want {
				t.Errorf("rawScalar(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

// --- Escaping ---

func TestEscape(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain passthrough", "hello world", "hello world"},
		{"empty stays empty", "", ""},
		{"comma", "a,b", `"a,b"`},
		{"quote", `say "hi"`, `"say \"hi\""`},
		{"backslash", `C:\temp`, `"C:\\temp"`},
		{"newline", "one\ntwo", `"one\ntwo"`},
		{"carriage return", "one\rtwo", `"one\ntwo"`},
		{"crlf collapses to one escape", "one\r\ntwo", `"one\ntwo"`},
		{"backslash escaped before quote", `\"`, `"\\\""`},
		{"everything", "He said \"hi\", then left\nquickly", `"He said \"hi\", then left\nquickly"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escape(tt.in); got != tt.want {
				t.Errorf("escape(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// --- Arrays ---

func TestEncodeField_Arrays(t *testing.T) {
	limits := DefaultLimits()

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"empty array", []string{}, ""},
		{"single element unquoted", []string{"bug"}, "bug"},
		{"joined result quoted", []string{"bug", "urgent"}, `"bug,urgent"`},
		{"nil elements skipped", []any{"bug", nil, "urgent"}, `"bug,urgent"`},
		{"mixed scalars", []any{"p", 1, true}, `"p,1,true"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := encodeField("labels", tt.value, limits); got != tt.want {
				t.Errorf("encodeField(labels, %v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

// --- Truncation ---

func TestTruncate_Boundary(t *testing.T) {
	limits := Limits{Default: 10}

	atCeiling := strings.Repeat("x", 10)
	if got := encodeField("title", atCeiling, limits); got != atCeiling {
		t.Errorf("string at ceiling was modified: %q", got)
	}

	oneOver := strings.Repeat("x", 11)
	got := encodeField("title", oneOver, limits)
	if !strings.HasSuffix(got, truncationIndicator) {
		t.Errorf("truncated value %q should end with %q", got, truncationIndicator)
	}
	if len(got) > 10 {
		t.Errorf("truncated value %q is %d chars, ceiling is 10", got, len(got))
	}
}

func TestTruncate_PerFieldAndNoLimit(t *testing.T) {
	limits := Limits{
		Default:  5,
		PerField: map[string]int{"title": 20, "description": NoLimit},
	}
	long := strings.Repeat("a", 15)

	if got := encodeField("title", long, limits); got != long {
		t.Errorf("title under its per-field ceiling was truncated: %q", got)
	}
	if got := encodeField("other", long, limits); len(got) != 5 {
		t.Errorf("default ceiling not applied: %q (%d chars)", got, len(got))
	}
	huge := strings.Repeat("b", 5000)
	if got := encodeField("description", huge, limits); got != huge {
		t.Error("NoLimit field was truncated")
	}
}

func TestTruncate_BeforeEscaping(t *testing.T) {
	// The ceiling applies to the raw string; quoting added by escaping
	// does not eat into it.
	limits := Limits{Default: 6}
	got := encodeField("f", "a,bcdefgh", limits)
	// raw truncated to "a,b..." then quoted
	if got != `"a,b..."` {
		t.Errorf("encodeField = %q, want %q", got, `"a,b..."`)
	}
}

func TestTruncate_CountsRunes(t *testing.T) {
	limits := Limits{Default: 6}
	in := "héllo wörld"
	got := encodeField("f", in, limits)
	if runes := []rune(got); len(runes) > 6 {
		t.Errorf("truncation counted bytes, not runes: %q (%d runes)", got, len(runes))
	}
}
