package rule

import "slices"

// Dedup collapses rules with equal keys, keeping the first occurrence.
// Rules that share a value but differ in kind are distinct.
func Dedup(rules []Rule) []Rule {
	seen := make(map[string]struct{}, len(rules))
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		k := r.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// DedupEntries returns the sorted, unique set of final entries.
func DedupEntries(entries []string) []string {
	out := slices.Clone(entries)
	slices.Sort(out)
	return slices.Compact(out)
}
