package toon

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Section pairs a schema with an ordered list of rows. Item order is
// caller-determined and preserved on the wire.
type Section struct {
	Schema *Schema
	Items  []*Row
}

// Response is a full tool reply: an optional meta row, lookup sections,
// then data sections. Encoded order is always meta, lookups, data.
type Response struct {
	Meta    *Row
	Lookups []*Section
	Data    []*Section
}

// Encoder renders sections and responses as TOON text.
type Encoder struct {
	// Limits holds per-field truncation ceilings.
	Limits Limits

	// RichText names the fields that get markdown normalization
	// (image stripping, issue-URL collapsing) before truncation.
	RichText map[string]bool

	// KeepEmptySections forces zero-item sections onto the wire as an
	// explicit empty-state signal. Off by default: empty sections are
	// omitted entirely.
	KeepEmptySections bool
}

// NewEncoder returns an encoder with default limits and the standard
// rich-text field set.
func NewEncoder() *Encoder {
	return &Encoder{
		Limits:   DefaultLimits(),
		RichText: map[string]bool{"description": true, "body": true},
	}
}

// EncodeSection renders one section as a header line plus indented rows.
// Returns "" for an empty section unless KeepEmptySections is set.
func (e *Encoder) EncodeSection(sec *Section) string {
	if len(sec.Items) == 0 && !e.KeepEmptySections {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s[%d]{%s}:", sec.Schema.Name, len(sec.Items), strings.Join(sec.Schema.Fields, ","))
	for _, row := range sec.Items {
		sb.WriteString("\n  ")
		sb.WriteString(e.encodeRow(row))
	}
	return sb.String()
}

// EncodeResponse renders a full response. It is total: any internal
// failure is converted to the JSON fallback payload, never propagated.
// A degraded reply costs more tokens but stays machine-readable.
func (e *Encoder) EncodeResponse(resp *Response) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fallbackJSON(fmt.Sprint(r), safeView(resp))
		}
	}()
	return e.renderResponse(resp)
}

// Problem identifies one missing field found by the strict encode path.
type Problem struct {
	Section string
	Row     int
	Field   string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s row %d: field %q not set", p.Section, p.Row, p.Field)
}

// StrictResult is the outcome of EncodeResponseStrict: either rendered
// text, or the list of schema violations and no text.
type StrictResult struct {
	OK       bool
	Text     string
	Problems []Problem
}

// EncodeResponseStrict pre-validates that every row supplies every
// schema-declared field before rendering. Batch callers use it to report
// per-item outcomes instead of shipping partial output.
func (e *Encoder) EncodeResponseStrict(resp *Response) StrictResult {
	var problems []Problem
	check := func(name string, items []*Row) {
		for i, row := range items {
			for _, f := range row.missingFields() {
				problems = append(problems, Problem{Section: name, Row: i, Field: f})
			}
		}
	}
	if resp.Meta != nil {
		check("_meta", []*Row{resp.Meta})
	}
	for _, sec := range resp.Lookups {
		check(sec.Schema.Name, sec.Items)
	}
	for _, sec := range resp.Data {
		check(sec.Schema.Name, sec.Items)
	}
	if len(problems) > 0 {
		return StrictResult{Problems: problems}
	}
	return StrictResult{OK: true, Text: e.EncodeResponse(resp)}
}

// renderResponse assembles meta, lookups, and data blocks separated by
// exactly one blank line.
func (e *Encoder) renderResponse(resp *Response) string {
	var blocks []string
	if resp.Meta != nil {
		blocks = append(blocks, e.encodeMeta(resp.Meta))
	}
	for _, sec := range resp.Lookups {
		if block := e.EncodeSection(sec); block != "" {
			blocks = append(blocks, block)
		}
	}
	for _, sec := range resp.Data {
		if block := e.EncodeSection(sec); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n\n")
}

// encodeMeta renders the meta block: same grammar as a section but with
// no count and exactly one row.
func (e *Encoder) encodeMeta(meta *Row) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "_meta{%s}:", strings.Join(meta.schema.Fields, ","))
	sb.WriteString("\n  ")
	sb.WriteString(e.encodeRow(meta))
	return sb.String()
}

// encodeRow renders one row as comma-joined cells in schema field order.
func (e *Encoder) encodeRow(row *Row) string {
	cells := make([]string, len(row.schema.Fields))
	for i, field := range row.schema.Fields {
		value := row.values[i]
		if e.RichText[field] {
			if s, ok := value.(string); ok {
				value = NormalizeRichText(s)
			}
		}
		cells[i] = encodeField(field, value, e.Limits)
	}
	return strings.Join(cells, ",")
}

// fallbackJSON builds the non-TOON safety-net payload. Callers detect it
// by the leading brace.
func fallbackJSON(reason string, data any) string {
	payload := map[string]any{
		"_fallback": "json",
		"_reason":   reason,
		"data":      data,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		// Data itself is unmarshalable; drop it and keep the reason.
		b, _ = json.Marshal(map[string]any{"_fallback": "json", "_reason": reason})
	}
	return string(b)
}

// safeView converts a response to plain maps for the fallback payload.
// It must not panic even over the malformed input that broke rendering.
func safeView(resp *Response) (view map[string]any) {
	defer func() {
		if recover() != nil {
			view = nil
		}
	}()
	if resp == nil {
		return nil
	}
	view = map[string]any{}
	if resp.Meta != nil {
		view["meta"] = resp.Meta.viewMap()
	}
	sections := func(secs []*Section) []map[string]any {
		var out []map[string]any
		for _, sec := range secs {
			rows := make([]map[string]any, 0, len(sec.Items))
			for _, row := range sec.Items {
				rows = append(rows, row.viewMap())
			}
			out = append(out, map[string]any{"name": sec.Schema.Name, "rows": rows})
		}
		return out
	}
	if len(resp.Lookups) > 0 {
		view["lookups"] = sections(resp.Lookups)
	}
	if len(resp.Data) > 0 {
		view["data"] = sections(resp.Data)
	}
	return view
}
