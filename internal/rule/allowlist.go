package rule

// Allowlist is a per-category set of canonical rule keys that must not
// reach the output. Matching is exact on the whole "kind,value" string.
type Allowlist struct {
	entries map[string]struct{}
}

// BuildAllowlist normalizes raw exclude lines with the same parser used for
// rule lines and keeps their keys, so exclude files may use any input
// convention. Lines that do not parse contribute nothing.
func BuildAllowlist(lines []string) Allowlist {
	entries := make(map[string]struct{}, len(lines))
	for _, r := range NormalizeAll(lines) {
		entries[r.Key()] = struct{}{}
	}
	return Allowlist{entries: entries}
}

// Len returns the number of distinct entries.
func (a Allowlist) Len() int {
	return len(a.entries)
}

// Contains reports whether r is excluded.
func (a Allowlist) Contains(r Rule) bool {
	_, ok := a.entries[r.Key()]
	return ok
}

// Filter returns the rules whose keys are not in the allowlist. The input
// slice is left untouched.
func Filter(rules []Rule, al Allowlist) []Rule {
	if al.Len() == 0 {
		out := make([]Rule, len(rules))
		copy(out, rules)
		return out
	}

	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if al.Contains(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}
