// Package toon implements the TOON wire format: a compact, line-oriented
// text encoding for MCP tool responses, optimized for token economy.
//
// A response is a sequence of blocks separated by blank lines. Each block
// is a header line followed by two-space-indented rows:
//
//	_meta{workspace,defaultTeam}:
//	  Acme,SQT
//
//	issues[2]{identifier,title,state,assignee}:
//	  SQT-1,Fix login crash,s0,u1
//	  SQT-2,"Retry, then fail loudly",s2,u0
//
// Schemas are static descriptors defined once per entity shape. Rows are
// fixed-shape records bound to their schema; field completeness is checked
// at construction time, not probed at render time.
package toon

import "fmt"

// RefKind tags a schema field as a reference to a registry entity type.
// Reference fields carry short keys (or natural keys) rather than raw ids.
type RefKind string

const (
	RefUser    RefKind = "user"
	RefState   RefKind = "state"
	RefProject RefKind = "project"
	RefLabel   RefKind = "label"
)

// Schema describes one entity shape: a named, ordered list of fields.
// Refs marks which fields reference registry entities — this drives the
// referenced-only (Tier 2) lookup traversal in ReferencedKeys.
//
// Schemas are immutable after definition; every row encoded against a
// schema must supply every declared field (the value may be empty/null).
type Schema struct {
	Name   string
	Fields []string
	Refs   map[string]RefKind
}

// fieldIndex returns the position of a field, or -1 if not declared.
func (s *Schema) fieldIndex(name string) int {
	for i, f := range s.Fields {
		if f == name {
			return i
		}
	}
	return -1
}

// Row is a fixed-shape record bound to a schema. Values are stored in
// schema field order; the set bitmask distinguishes "explicitly supplied
// null" from "never supplied" for the strict encode path.
type Row struct {
	schema *Schema
	values []any
	set    []bool
}

// NewRow creates an empty row for the schema. All fields start unset;
// unset fields render as empty cells.
func (s *Schema) NewRow() *Row {
	return &Row{
		schema: s,
		values: make([]any, len(s.Fields)),
		set:    make([]bool, len(s.Fields)),
	}
}

// Row creates a fully populated row. The number of values must match the
// schema's declared fields exactly — this catches shape drift at the call
// site instead of at render time.
func (s *Schema) Row(values ...any) (*Row, error) {
	if len(values) != len(s.Fields) {
		return nil, fmt.Errorf("schema %s: got %d values, want %d", s.Name, len(values), len(s.Fields))
	}
	r := s.NewRow()
	copy(r.values, values)
	for i := range r.set {
		r.set[i] = true
	}
	return r, nil
}

// Set assigns a value to a declared field. Unknown fields are an error —
// rows never silently grow beyond their schema.
func (r *Row) Set(field string, value any) error {
	i := r.schema.fieldIndex(field)
	if i < 0 {
		return fmt.Errorf("schema %s: unknown field %q", r.schema.Name, field)
	}
	r.values[i] = value
	r.set[i] = true
	return nil
}

// Value returns the value of a declared field and whether it was set.
func (r *Row) Value(field string) (any, bool) {
	i := r.schema.fieldIndex(field)
	if i < 0 {
		return nil, false
	}
	return r.values[i], r.set[i]
}

// Schema returns the schema the row is bound to.
func (r *Row) Schema() *Schema { return r.schema }

// missingFields lists declared fields that were never supplied.
func (r *Row) missingFields() []string {
	var missing []string
	for i, ok := range r.set {
		if !ok {
			missing = append(missing, r.schema.Fields[i])
		}
	}
	return missing
}

// viewMap returns the row as a plain map for the JSON fallback payload.
func (r *Row) viewMap() map[string]any {
	m := make(map[string]any, len(r.schema.Fields))
	for i, f := range r.schema.Fields {
		m[f] = r.values[i]
	}
	return m
}

// --- Linear entity schemas ---
//
// Reference fields hold short keys (u0, s3, pr1, team-prefixed variants)
// or natural keys (issue identifiers, label names). The lookup schemas
// below give the agent the key→display mapping for each response.

var (
	// IssueSchema is the list view of an issue.
	IssueSchema = &Schema{
		Name:   "issues",
		Fields: []string{"identifier", "title", "state", "assignee", "priority", "estimate", "project", "labels", "updatedAt"},
		Refs: map[string]RefKind{
			"state":    RefState,
			"assignee": RefUser,
			"project":  RefProject,
			"labels":   RefLabel,
		},
	}

	// IssueDetailSchema is the full view, including normalized rich text.
	IssueDetailSchema = &Schema{
		Name:   "issue",
		Fields: []string{"identifier", "title", "description", "state", "assignee", "creator", "priority", "estimate", "project", "labels", "createdAt", "updatedAt"},
		Refs: map[string]RefKind{
			"state":    RefState,
			"assignee": RefUser,
			"creator":  RefUser,
			"project":  RefProject,
			"labels":   RefLabel,
		},
	}

	// CommentSchema is one comment on an issue; body is rich text.
	CommentSchema = &Schema{
		Name:   "comments",
		Fields: []string{"author", "createdAt", "body"},
		Refs:   map[string]RefKind{"author": RefUser},
	}

	// Lookup schemas map short keys back to display data.
	UserLookupSchema = &Schema{
		Name:   "users",
		Fields: []string{"key", "name", "email", "role"},
	}
	StateLookupSchema = &Schema{
		Name:   "states",
		Fields: []string{"key", "name", "type"},
	}
	ProjectLookupSchema = &Schema{
		Name:   "projects",
		Fields: []string{"key", "name", "priority", "progress", "lead", "targetDate"},
		Refs:   map[string]RefKind{"lead": RefUser},
	}
	LabelLookupSchema = &Schema{
		Name:   "labels",
		Fields: []string{"key", "name"},
	}
	TeamLookupSchema = &Schema{
		Name:   "teams",
		Fields: []string{"key", "name"},
	}
)

// MetaSchema builds the schema for a response's _meta block. Meta fields
// vary per tool, so this is a constructor rather than a fixed descriptor.
func MetaSchema(fields ...string) *Schema {
	return &Schema{Name: "_meta", Fields: fields}
}
