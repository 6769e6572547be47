package toon

// ReferencedKeys collects the distinct entity keys referenced by a
// section's rows, grouped by kind, in first-seen row order. The traversal
// is driven entirely by the schema's Refs metadata, so every call site
// shares one definition of "referenced-only" (Tier 2) filtering.
//
// Array-valued reference fields (labels) contribute each element; empty
// cells contribute nothing.
func ReferencedKeys(sec *Section) map[RefKind][]string {
	out := map[RefKind][]string{}
	seen := map[RefKind]map[string]bool{}

	add := func(kind RefKind, key string) {
		if key == "" {
			return
		}
		if seen[kind] == nil {
			seen[kind] = map[string]bool{}
		}
		if seen[kind][key] {
			return
		}
		seen[kind][key] = true
		out[kind] = append(out[kind], key)
	}

	for _, row := range sec.Items {
		for i, field := range sec.Schema.Fields {
			kind, ok := sec.Schema.Refs[field]
			if !ok {
				continue
			}
			switch v := row.values[i].(type) {
			case string:
				add(kind, v)
			case []string:
				for _, elem := range v {
					add(kind, elem)
				}
			case []any:
				for _, elem := range v {
					if s, ok := elem.(string); ok {
						add(kind, s)
					}
				}
			}
		}
	}
	return out
}
