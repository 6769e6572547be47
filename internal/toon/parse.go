package toon

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrJSONFallback signals that the text is a JSON fallback payload, not
// TOON. Callers should hand it to a JSON decoder instead.
var ErrJSONFallback = errors.New("toon: text is a JSON fallback payload, not TOON")

// ParsedSection is one decoded block: its header fields and rows mapped
// back to field names.
type ParsedSection struct {
	Name   string
	Count  int
	Fields []string
	Rows   []map[string]string
}

// Parsed is the full decoded response.
type Parsed struct {
	Meta       map[string]string
	MetaFields []string
	Sections   []ParsedSection
}

// Section returns the parsed section with the given name, or nil.
func (p *Parsed) Section(name string) *ParsedSection {
	for i := range p.Sections {
		if p.Sections[i].Name == name {
			return &p.Sections[i]
		}
	}
	return nil
}

// Parse decodes TOON text back into rows. It is the exact inverse of the
// encoder for values within truncation ceilings.
//
// Decoding is lenient about row width to tolerate forward-compatible
// encoder changes: cells beyond the declared fields are discarded, and
// missing cells are filled with the empty string.
func Parse(text string) (*Parsed, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &Parsed{}, nil
	}
	if strings.HasPrefix(trimmed, "{") {
		return nil, ErrJSONFallback
	}

	parsed := &Parsed{}
	for _, block := range strings.Split(trimmed, "\n\n") {
		block = strings.Trim(block, "\n")
		if block == "" {
			continue
		}
		if err := parseBlock(parsed, block); err != nil {
			return nil, err
		}
	}
	return parsed, nil
}

// parseBlock decodes one header-plus-rows block into parsed.
func parseBlock(parsed *Parsed, block string) error {
	lines := strings.Split(block, "\n")
	header := lines[0]

	if strings.HasPrefix(header, "_meta{") {
		fields, err := parseMetaHeader(header)
		if err != nil {
			return err
		}
		if len(lines) != 2 {
			return fmt.Errorf("toon: meta block has %d value rows, want exactly 1", len(lines)-1)
		}
		row, err := parseRowLine(lines[1], fields)
		if err != nil {
			return err
		}
		parsed.Meta = row
		parsed.MetaFields = fields
		return nil
	}

	name, count, fields, err := parseSectionHeader(header)
	if err != nil {
		return err
	}
	sec := ParsedSection{Name: name, Count: count, Fields: fields}
	for _, line := range lines[1:] {
		row, err := parseRowLine(line, fields)
		if err != nil {
			return err
		}
		sec.Rows = append(sec.Rows, row)
	}
	parsed.Sections = append(parsed.Sections, sec)
	return nil
}

// parseMetaHeader decodes `_meta{f1,f2,...}:`.
func parseMetaHeader(line string) ([]string, error) {
	rest, ok := strings.CutPrefix(line, "_meta{")
	if !ok {
		return nil, fmt.Errorf("toon: malformed meta header %q", line)
	}
	body, ok := strings.CutSuffix(rest, "}:")
	if !ok {
		return nil, fmt.Errorf("toon: malformed meta header %q", line)
	}
	return splitFields(body)
}

// parseSectionHeader decodes `name[count]{f1,f2,...}:`.
func parseSectionHeader(line string) (name string, count int, fields []string, err error) {
	open := strings.IndexByte(line, '[')
	if open <= 0 {
		return "", 0, nil, fmt.Errorf("toon: malformed section header %q", line)
	}
	closeIdx := strings.IndexByte(line, ']')
	if closeIdx < open || !strings.HasPrefix(line[closeIdx+1:], "{") || !strings.HasSuffix(line, "}:") {
		return "", 0, nil, fmt.Errorf("toon: malformed section header %q", line)
	}
	name = line[:open]
	count, err = strconv.Atoi(line[open+1 : closeIdx])
	if err != nil {
		return "", 0, nil, fmt.Errorf("toon: bad count in header %q: %w", line, err)
	}
	fields, err = splitFields(line[closeIdx+2 : len(line)-2])
	if err != nil {
		return "", 0, nil, err
	}
	return name, count, fields, nil
}

func splitFields(body string) ([]string, error) {
	if body == "" {
		return nil, fmt.Errorf("toon: header declares no fields")
	}
	return strings.Split(body, ","), nil
}

// parseRowLine decodes a two-space-indented row and maps cells to field
// names, padding or discarding to match the declared width.
func parseRowLine(line string, fields []string) (map[string]string, error) {
	body, ok := strings.CutPrefix(line, "  ")
	if !ok {
		return nil, fmt.Errorf("toon: row line missing indent: %q", line)
	}
	cells := splitRow(body)
	row := make(map[string]string, len(fields))
	for i, f := range fields {
		if i < len(cells) {
			row[f] = cells[i]
		} else {
			row[f] = ""
		}
	}
	return row, nil
}

// Row-splitter states. The machine mirrors the encoder exactly: a quote
// opens only at the start of an empty cell, and escapes exist only inside
// quoted cells.
type splitState int

const (
	stateNormal splitState = iota
	stateQuoted
	stateEscape
)

// splitRow splits a row body into cells.
//
//   - NORMAL: `,` terminates the cell; `"` at the start of an empty cell
//     enters QUOTED; anything else is literal.
//   - QUOTED: `\` enters ESCAPE; `"` closes the quote (back to NORMAL);
//     everything else passes through verbatim, raw commas included.
//   - ESCAPE: `n` → newline, `\` → backslash, `"` → quote, anything else
//     literal; then back to QUOTED.
//
// End of line always flushes the last cell.
func splitRow(body string) []string {
	var cells []string
	var cur strings.Builder
	state := stateNormal

	for _, r := range body {
		switch state {
		case stateNormal:
			switch {
			case r == ',':
				cells = append(cells, cur.String())
				cur.Reset()
			case r == '"' && cur.Len() == 0:
				state = stateQuoted
			default:
				cur.WriteRune(r)
			}
		case stateQuoted:
			switch r {
			case '\\':
				state = stateEscape
			case '"':
				state = stateNormal
			default:
				cur.WriteRune(r)
			}
		case stateEscape:
			switch r {
			case 'n':
				cur.WriteRune('\n')
			case '\\':
				cur.WriteRune('\\')
			case '"':
				cur.WriteRune('"')
			default:
				cur.WriteRune(r)
			}
			state = stateQuoted
		}
	}
	cells = append(cells, cur.String())
	return cells
}
