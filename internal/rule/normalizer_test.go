package rule

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Rule
		skip bool
	}{
		// noise
		{name: "blank", line: "   ", skip: true},
		{name: "comment", line: "# DOMAIN,a.com", skip: true},
		{name: "indented comment", line: "   # note", skip: true},
		{name: "quoted comment", line: "'# note'", skip: true},
		{name: "payload marker", line: "payload:", skip: true},
		{name: "payload marker indented", line: "  payload:  ", skip: true},

		// yaml array form
		{name: "array domain", line: "  - 'Example.COM'", want: Rule{Domain, "example.com"}},
		{name: "array plus suffix", line: "- '+.example.com'", want: Rule{DomainSuffix, "example.com"}},
		{name: "array star suffix", line: "- '*.example.com'", want: Rule{DomainSuffix, "example.com"}},
		{name: "array dot suffix", line: "- '.example.com'", want: Rule{DomainSuffix, "example.com"}},
		{name: "array double quoted", line: `  - "+.example.com"`, want: Rule{DomainSuffix, "example.com"}},
		{name: "array ipv4", line: "- '10.0.0.0/8'", want: Rule{IPCIDR, "10.0.0.0/8"}},
		{name: "array ipv6", line: "- '2001:DB8::/32'", want: Rule{IPCIDR6, "2001:db8::/32"}},
		{name: "array email dropped", line: "- 'user@example.com'", skip: true},
		{name: "array uri dropped", line: "- 'https://example.com'", skip: true},
		{name: "array empty suffix", line: "- '+.'", skip: true},
		{name: "array classical suffix", line: "  - DOMAIN-SUFFIX,Example.com", want: Rule{DomainSuffix, "example.com"}},
		{name: "array classical cidr", line: "  - 'IP-CIDR,10.0.0.0/8,no-resolve'", want: Rule{IPCIDR, "10.0.0.0/8"}},
		{name: "array classical keyword", line: "  - DOMAIN-KEYWORD,ads", skip: true},
		{name: "array unsupported type", line: "  - GEOIP,CN", skip: true},
		{name: "array trailing comment", line: "  - 'a.com' # tracker", want: Rule{Domain, "a.com"}},
		{name: "array free text", line: "  - not a domain", skip: true},

		// text form
		{name: "text domain", line: "DOMAIN,a.com", want: Rule{Domain, "a.com"}},
		{name: "text suffix", line: "DOMAIN-SUFFIX,Example.COM", want: Rule{DomainSuffix, "example.com"}},
		{name: "text suffix with prefix", line: "DOMAIN-SUFFIX,+.example.com", want: Rule{DomainSuffix, "example.com"}},
		{name: "text spaces", line: "DOMAIN-SUFFIX , example.com ", want: Rule{DomainSuffix, "example.com"}},
		{name: "text keyword", line: "DOMAIN-KEYWORD,ads", skip: true},
		{name: "text cidr no-resolve", line: "IP-CIDR,1.2.3.0/24,no-resolve", want: Rule{IPCIDR, "1.2.3.0/24"}},
		{name: "text cidr6", line: "IP-CIDR6,2001:db8::/32", want: Rule{IPCIDR6, "2001:db8::/32"}},
		{name: "text asn", line: "IP-ASN,13335", want: Rule{ASN, "13335"}},
		{name: "text lower type", line: "domain,a.com", want: Rule{Domain, "a.com"}},

		// bare fallback
		{name: "bare domain", line: "Tracker.Example.org", want: Rule{Domain, "tracker.example.org"}},
		{name: "bare trailing dot", line: "example.org.", want: Rule{Domain, "example.org"}},
		{name: "bare ipv4", line: "192.168.0.0/16", want: Rule{IPCIDR, "192.168.0.0/16"}},
		{name: "bare ipv6", line: "fe80::/10", want: Rule{IPCIDR6, "fe80::/10"}},
		{name: "bare host with port", line: "example.org:443", skip: true},
		{name: "bare email", line: "root@example.org", skip: true},
		{name: "bare idn", line: "пример.рф", want: Rule{Domain, "xn--e1afmkfd.xn--p1ai"}},
		{name: "unknown type", line: "GEOIP,CN", skip: true},
		{name: "unknown suffix type", line: "DOMAIN-REGEX,^ads", skip: true},
		{name: "free text", line: "not a rule", skip: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.line)
			if tt.skip {
				assert.False(t, ok, "Normalize(%q) = %v, want skip", tt.line, got)
				return
			}
			if assert.True(t, ok, "Normalize(%q) skipped", tt.line) {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNormalize_KindSensitivity(t *testing.T) {
	text, ok := Normalize("DOMAIN-SUFFIX,Example.COM")
	assert.True(t, ok)
	array, ok := Normalize("- '+.example.com'")
	assert.True(t, ok)

	want := Rule{Kind: DomainSuffix, Value: "example.com"}
	assert.Equal(t, want, text)
	assert.Equal(t, want, array)
}

func TestNormalize_CaseInsensitive(t *testing.T) {
	lines := []string{
		"domain,a.com",
		"domain-suffix,b.com",
		"ip-cidr,1.2.3.0/24",
		"ip-cidr6,2001:db8::/32",
		"ip-asn,13335",
		"- '+.c.com'",
		"- '*.d.com'",
		"- 'e.com'",
		"- '2001:db8::/48'",
		"f.com",
		"пример.рф",
	}
	for _, line := range lines {
		lower, okLower := Normalize(line)
		upper, okUpper := Normalize(strings.ToUpper(line))
		assert.True(t, okLower, line)
		assert.Equal(t, okLower, okUpper, line)
		assert.Equal(t, lower, upper, line)
	}
}

func TestNormalizeAll(t *testing.T) {
	got := NormalizeAll([]string{
		"payload:",
		"  - '+.b.com'",
		"# comment",
		"DOMAIN,a.com",
		"DOMAIN-KEYWORD,spam",
	})
	assert.Equal(t, []Rule{{DomainSuffix, "b.com"}, {Domain, "a.com"}}, got)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "domain,a.com", Clean("  'DOMAIN,A.com'  "))
	assert.Equal(t, "", Clean(` "" `))
}

func TestParseKind(t *testing.T) {
	for k := Domain; k <= ASN; k++ {
		got, ok := ParseKind(strings.ToUpper(k.String()))
		assert.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}
	_, ok := ParseKind("geoip")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Kind(42).String())
}
