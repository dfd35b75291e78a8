package rule

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

var (
	// "  - '+.example.com'"
	arrayItemRe = regexp.MustCompile(`^\s*-\s+(.+)$`)
	// "DOMAIN-SUFFIX,example.com[,options]"
	textRuleRe = regexp.MustCompile(`(?i)^(DOMAIN-SUFFIX|DOMAIN-KEYWORD|DOMAIN|IP-CIDR6|IP-CIDR|IP-ASN)\s*,\s*([^,]+)`)

	ipv4CIDRRe = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+/\d+$`)
	ipv6CIDRRe = regexp.MustCompile(`^[0-9a-f:]*:[0-9a-f:.]*/\d+$`)
)

var suffixPrefixes = []string{"+.", "*.", "."}

// Clean is the text primitive shared by rule and allowlist normalization:
// quote characters are removed, surrounding whitespace trimmed and the
// result lower-cased.
func Clean(s string) string {
	return strings.ToLower(strings.TrimSpace(stripQuotes(s)))
}

func stripQuotes(s string) string {
	if !strings.ContainsAny(s, `'"`) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == '\'' || r == '"' {
			return -1
		}
		return r
	}, s)
}

// Normalize recognizes one raw line in any supported source format and
// returns its canonical rule. The second result is false for comments,
// blank lines, structural markers, keyword rules and anything that cannot
// be classified. Normalize never fails.
func Normalize(line string) (Rule, bool) {
	line = stripQuotes(line)
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || trimmed[0] == '#' {
		return Rule{}, false
	}
	if strings.EqualFold(trimmed, "payload:") {
		return Rule{}, false
	}

	if m := arrayItemRe.FindStringSubmatch(line); m != nil {
		item := strings.TrimSpace(cutComment(m[1]))
		// classical payloads: "- DOMAIN-SUFFIX,example.com"
		if tm := textRuleRe.FindStringSubmatch(item); tm != nil {
			return textRule(tm)
		}
		return classifyLiteral(fold(item))
	}

	if m := textRuleRe.FindStringSubmatch(trimmed); m != nil {
		return textRule(m)
	}

	return classifyBare(fold(trimmed))
}

func textRule(m []string) (Rule, bool) {
	kind, ok := ParseKind(m[1])
	if !ok || kind == DomainKeyword {
		return Rule{}, false
	}
	return canonical(kind, fold(m[2]))
}

// cutComment drops a trailing YAML comment from an array item.
func cutComment(s string) string {
	if i := strings.Index(s, " #"); i >= 0 {
		return s[:i]
	}
	return s
}

// NormalizeAll normalizes every line and drops the skipped ones.
func NormalizeAll(lines []string) []Rule {
	out := make([]Rule, 0, len(lines))
	for _, line := range lines {
		if r, ok := Normalize(line); ok {
			out = append(out, r)
		}
	}
	return out
}

func classifyLiteral(lit string) (Rule, bool) {
	switch {
	case lit == "":
		return Rule{}, false
	case ipv4CIDRRe.MatchString(lit):
		return Rule{Kind: IPCIDR, Value: lit}, true
	case ipv6CIDRRe.MatchString(lit):
		return Rule{Kind: IPCIDR6, Value: lit}, true
	}

	if strings.ContainsAny(lit, ":@, \t") {
		// URLs, e-mails, unsupported rule types and free text
		return Rule{}, false
	}
	if v, ok := cutSuffixPrefix(lit); ok {
		return canonical(DomainSuffix, v)
	}
	return canonical(Domain, lit)
}

func classifyBare(v string) (Rule, bool) {
	switch {
	case v == "":
		return Rule{}, false
	case ipv4CIDRRe.MatchString(v):
		return Rule{Kind: IPCIDR, Value: v}, true
	case ipv6CIDRRe.MatchString(v):
		return Rule{Kind: IPCIDR6, Value: v}, true
	case strings.ContainsAny(v, ":@"):
		return Rule{}, false
	case strings.ContainsAny(v, ", \t"):
		// unsupported rule types (GEOIP,CN) and free text
		return Rule{}, false
	}
	return canonical(Domain, v)
}

// canonical applies the per-kind value cleanup. Domain values lose a
// trailing dot and non-ASCII names are converted to punycode.
func canonical(kind Kind, value string) (Rule, bool) {
	switch kind {
	case DomainSuffix:
		value = TrimSuffixPrefix(value)
		fallthrough
	case Domain:
		value = strings.TrimSuffix(value, ".")
		if !isASCII(value) {
			ascii, err := idna.Lookup.ToASCII(value)
			if err != nil {
				return Rule{}, false
			}
			value = strings.ToLower(ascii)
		}
	}
	if value == "" {
		return Rule{}, false
	}
	return Rule{Kind: kind, Value: value}, true
}

// TrimSuffixPrefix removes one leading "+.", "*." or "." from a suffix value.
func TrimSuffixPrefix(v string) string {
	v, _ = cutSuffixPrefix(v)
	return v
}

func cutSuffixPrefix(v string) (string, bool) {
	for _, p := range suffixPrefixes {
		if strings.HasPrefix(v, p) {
			return v[len(p):], true
		}
	}
	return v, false
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
