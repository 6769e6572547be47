package toon

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// truncationIndicator marks a truncated cell. Its own length counts
// against the field's ceiling, so truncated output never exceeds it.
const truncationIndicator = "..."

// NoLimit disables the ceiling for a field (full-detail views).
const NoLimit = -1

// Limits configures per-field character ceilings. A field listed in
// PerField uses that ceiling; everything else uses Default. Ceilings are
// measured in runes on the raw string, before escaping.
type Limits struct {
	Default  int
	PerField map[string]int
}

// DefaultLimits returns the ceilings used by list views: short titles,
// a generous but bounded allowance for rich-text fields.
func DefaultLimits() Limits {
	return Limits{
		Default: 200,
		PerField: map[string]int{
			"title":       150,
			"description": 1000,
			"body":        1000,
		},
	}
}

// FullDetailLimits disables truncation everywhere.
func FullDetailLimits() Limits {
	return Limits{Default: NoLimit}
}

// limitFor resolves the effective ceiling for a field name.
func (l Limits) limitFor(field string) int {
	if n, ok := l.PerField[field]; ok {
		return n
	}
	if l.Default == 0 {
		return NoLimit
	}
	return l.Default
}

// encodeField renders one cell: stringify, truncate on the raw text,
// then escape. This ordering keeps the ceiling meaningful — escaping can
// only grow the text.
func encodeField(field string, value any, limits Limits) string {
	raw, isArray := rawValue(value)
	if !isArray {
		raw = truncate(raw, limits.limitFor(field))
	}
	return escape(raw)
}

// rawValue converts a scalar or array to its unescaped text form.
// Arrays report isArray=true so truncation skips them (individual
// elements are already bounded domain values like label names).
func rawValue(value any) (raw string, isArray bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case []string:
		return joinArray(stringsToAny(v)), true
	case []any:
		return joinArray(v), true
	default:
		return rawScalar(value), false
	}
}

// rawScalar converts a single scalar to unescaped text.
//
//   - nil → empty
//   - bool → true/false
//   - numbers → decimal; NaN and infinities → empty (never "NaN")
//   - time.Time → ISO-8601 UTC; the zero time → empty
//   - string → as-is
func rawScalar(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return formatFloat(float64(v))
	case float64:
		return formatFloat(v)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.UTC().Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return ""
		}
		return rawScalar(*v)
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// joinArray encodes each non-null element as a scalar and joins with
// commas. The joined result is escaped as a unit by the caller: when any
// element contains a comma the whole cell ends up quoted, which is how
// array commas stay distinguishable from field separators.
func joinArray(elems []any) string {
	parts := make([]string, 0, len(elems))
	for _, e := range elems {
		if e == nil {
			continue
		}
		parts = append(parts, rawScalar(e))
	}
	return strings.Join(parts, ",")
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// escape quote-wraps any value containing a comma, quote, backslash, or
// newline. Replacement order matters: backslash first, then quote, then
// newlines collapse to the two-character sequence \n.
func escape(s string) string {
	if !strings.ContainsAny(s, ",\"\\\n\r") {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\r\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\n`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return `"` + s + `"`
}

// truncate caps s at limit runes, replacing the tail with the truncation
// indicator when over. A string exactly at the limit is untouched.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	cut := limit - len(truncationIndicator)
	if cut <= 0 {
		// Ceiling too small to fit the indicator; hard cut.
		return string(runes[:limit])
	}
	return string(runes[:cut]) + truncationIndicator
}
