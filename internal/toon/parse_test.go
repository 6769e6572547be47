package toon

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// --- Row splitting ---

func TestSplitRow(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"plain cells", "a,b,c", []string{"a", "b", "c"}},
		{"empty cells preserved", "a,,c", []string{"a", "", "c"}},
		{"trailing empty cell", "a,b,", []string{"a", "b", ""}},
		{"quoted comma", `a,"b,c",d`, []string{"a", "b,c", "d"}},
		{"escaped quote", `"say \"hi\""`, []string{`say "hi"`}},
		{"escaped backslash", `"C:\\temp"`, []string{`C:\temp`}},
		{"escaped newline", `"one\ntwo"`, []string{"one\ntwo"}},
		{"quote mid-cell is literal", `ab"cd`, []string{`ab"cd`}},
		{"unknown escape kept literal", `"a\xb"`, []string{"axb"}},
		{"empty body is one empty cell", "", []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, splitRow(tt.in)); diff != "" {
				t.Errorf("splitRow(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

// --- Parse ---

func TestParse_JSONFallbackDetected(t *testing.T) {
	_, err := Parse(`{"_fallback":"json","_reason":"boom"}`)
	if !errors.Is(err, ErrJSONFallback) {
		t.Errorf("err = %v, want ErrJSONFallback", err)
	}
	_, err = Parse("  \n{\"x\":1}")
	if !errors.Is(err, ErrJSONFallback) {
		t.Errorf("leading whitespace should not hide the fallback, got %v", err)
	}
}

func TestParse_Empty(t *testing.T) {
	p, err := Parse("   \n ")
	if err != nil {
		t.Fatal(err)
	}
	if p.Meta != nil || len(p.Sections) != 0 {
		t.Errorf("blank input should parse to nothing, got %+v", p)
	}
}

func TestParse_MetaAndSections(t *testing.T) {
	text := "_meta{workspace,count}:\n" +
		"  Acme,2\n" +
		"\n" +
		"issues[2]{id,title}:\n" +
		"  SQT-1,\"Retry, then fail\"\n" +
		"  SQT-2,Login crash"

	p, err := Parse(text)
	if err != nil {
		t.Fatal(err)
	}

	wantMeta := map[string]string{"workspace": "Acme", "count": "2"}
	if diff := cmp.Diff(wantMeta, p.Meta); diff != "" {
		t.Errorf("meta mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"workspace", "count"}, p.MetaFields); diff != "" {
		t.Errorf("meta fields mismatch (-want +got):\n%s", diff)
	}

	sec := p.Section("issues")
	if sec == nil {
		t.Fatal("issues section missing")
	}
	if sec.Count != 2 || len(sec.Rows) != 2 {
		t.Fatalf("count = %d, rows = %d", sec.Count, len(sec.Rows))
	}
	if got := sec.Rows[0]["title"]; got != "Retry, then fail" {
		t.Errorf("quoted title = %q", got)
	}
	if p.Section("users") != nil {
		t.Error("Section should return nil for unknown names")
	}
}

func TestParse_LenientRowWidth(t *testing.T) {
	text := "things[2]{id,name,owner}:\n" +
		"  T-1,alpha\n" +
		"  T-2,beta,u0,extra,cells"

	p, err := Parse(text)
	if err != nil {
		t.Fatal(err)
	}
	rows := p.Sections[0].Rows
	if got := rows[0]["owner"]; got != "" {
		t.Errorf("missing cell should pad to empty, got %q", got)
	}
	if _, ok := rows[1]["extra"]; ok {
		t.Error("surplus cells must be discarded, not invented as fields")
	}
	if got := rows[1]["owner"]; got != "u0" {
		t.Errorf("owner = %q", got)
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"header without fields", "issues[1]:\n  a"},
		{"header without count", "issues{id}:\n  a"},
		{"header with bad count", "issues[x]{id}:\n  a"},
		{"header with empty field list", "issues[0]{}:"},
		{"row without indent", "issues[1]{id}:\nSQT-1"},
		{"meta without value row", "_meta{workspace}:"},
		{"meta with surplus value rows", "_meta{workspace}:\n  Acme\n  Globex"},
		{"meta missing closer", "_meta{workspace:\n  Acme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.in); err == nil {
				t.Errorf("Parse(%q) accepted malformed input", tt.in)
			}
		})
	}
}

// --- Round trip ---

func TestRoundTrip(t *testing.T) {
	schema := &Schema{Name: "issues", Fields: []string{"id", "title", "note"}}
	values := [][]any{
		{"SQT-1", "plain title", "no funny business"},
		{"SQT-2", `quotes "inside" here`, `back\slash`},
		{"SQT-3", "commas, of, course", "line\nbreak"},
		{"SQT-4", "", "tabs\tand unicode héllo"},
		{"SQT-5", "crlf\r\nnormalized", "mixed \"q\", c,\nnl"},
	}

	sec := &Section{Schema: schema}
	for _, v := range values {
		sec.Items = append(sec.Items, mustRow(t, schema, v...))
	}

	enc := NewEncoder()
	enc.Limits = Limits{Default: NoLimit}
	text := enc.EncodeResponse(&Response{Data: []*Section{sec}})

	p, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse failed on encoder output:\n%s\nerr: %v", text, err)
	}
	got := p.Section("issues")
	if got == nil {
		t.Fatal("issues section missing after round trip")
	}

	for i, v := range values {
		want := map[string]string{
			"id":    v[0].(string),
			"title": v[1].(string),
			"note":  v[2].(string),
		}
		// CR and CRLF both normalize to a plain newline on the wire.
		if i == 4 {
			want["title"] = "crlf\nnormalized"
		}
		if diff := cmp.Diff(want, got.Rows[i]); diff != "" {
			t.Errorf("row %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestRoundTrip_MetaOnly(t *testing.T) {
	meta := MetaSchema("workspace", "defaultTeam").NewRow()
	if err := meta.Set("workspace", "Acme, Inc"); err != nil {
		t.Fatal(err)
	}
	if err := meta.Set("defaultTeam", "SQT"); err != nil {
		t.Fatal(err)
	}

	text := NewEncoder().EncodeResponse(&Response{Meta: meta})
	p, err := Parse(text)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"workspace": "Acme, Inc", "defaultTeam": "SQT"}
	if diff := cmp.Diff(want, p.Meta); diff != "" {
		t.Errorf("meta round trip mismatch (-want +got):\n%s", diff)
	}
}
