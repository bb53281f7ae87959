package records

// containsAll reports whether doc structurally contains all the key-value
// pairs of query, following jsonb @> semantics: objects contain a query
// object when every query key is present with a contained value; arrays
// contain a query array when every query element is contained in some
// document element; scalars contain equal scalars.
func containsAll(doc any, query map[string]any) bool {
	if len(query) == 0 {
		return true
	}
	return contains(doc, mapToAny(query))
}

func mapToAny(m map[string]any) any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func contains(doc, query any) bool {
	switch q := query.(type) {
	case map[string]any:
		d, ok := doc.(map[string]any)
		if !ok {
			return false
		}
		for k, qv := range q {
			dv, ok := d[k]
			if !ok || !contains(dv, qv) {
				return false
			}
		}
		return true
	case []any:
		d, ok := doc.([]any)
		if !ok {
			return false
		}
		for _, qv := range q {
			found := false
			for _, dv := range d {
				if contains(dv, qv) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	default:
		return doc == query
	}
}
