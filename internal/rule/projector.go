package rule

// SuffixMarker prefixes domain-suffix entries in the output convention.
const SuffixMarker = "+."

// Project maps a canonical rule to its final output entry. Only Domain and
// DomainSuffix rules produce one; the suffix value is stripped again before
// the marker is added, so a value that still carries a prefix is tolerated.
func Project(r Rule) (string, bool) {
	switch r.Kind {
	case Domain:
		if r.Value == "" {
			return "", false
		}
		return r.Value, true
	case DomainSuffix:
		v := TrimSuffixPrefix(r.Value)
		if v == "" {
			return "", false
		}
		return SuffixMarker + v, true
	default:
		return "", false
	}
}

// ProjectAll projects every rule and returns the sorted, deduplicated
// entries. Distinct rules can project to the same entry.
func ProjectAll(rules []Rule) []string {
	entries := make([]string, 0, len(rules))
	for _, r := range rules {
		if e, ok := Project(r); ok {
			entries = append(entries, e)
		}
	}
	return DedupEntries(entries)
}
