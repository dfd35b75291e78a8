package rule

import "strings"

// Matcher answers whether a host is covered by a set of final entries.
// A plain entry matches only itself; a "+." entry matches the suffix and
// every subdomain of it.
type Matcher struct {
	exact  map[string]struct{}
	suffix map[string]struct{}
}

func NewMatcher(entries []string) *Matcher {
	m := &Matcher{
		exact:  make(map[string]struct{}),
		suffix: make(map[string]struct{}),
	}
	for _, e := range entries {
		if v, ok := strings.CutPrefix(e, SuffixMarker); ok {
			m.suffix[v] = struct{}{}
			continue
		}
		m.exact[e] = struct{}{}
	}
	return m
}

// Len returns the number of entries the matcher was built from.
func (m *Matcher) Len() int {
	return len(m.exact) + len(m.suffix)
}

// Match returns the entry covering host, walking up its labels.
// host is expected in NormalizeHost form.
func (m *Matcher) Match(host string) (string, bool) {
	if m == nil || host == "" {
		return "", false
	}
	if _, ok := m.exact[host]; ok {
		return host, true
	}

	for {
		if _, ok := m.suffix[host]; ok {
			return SuffixMarker + host, true
		}
		j := strings.IndexByte(host, '.')
		if j == -1 {
			break
		}
		host = host[j+1:]
	}
	return "", false
}
