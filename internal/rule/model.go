package rule

import "strings"

// Kind is the type of a canonical rule.
type Kind int

const (
	Domain Kind = iota
	DomainSuffix
	DomainKeyword
	IPCIDR
	IPCIDR6
	ASN
)

var kindNames = [...]string{
	Domain:        "domain",
	DomainSuffix:  "domain-suffix",
	DomainKeyword: "domain-keyword",
	IPCIDR:        "ip-cidr",
	IPCIDR6:       "ip-cidr6",
	ASN:           "ip-asn",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// IsDomain reports whether rules of this kind can appear in the final output.
func (k Kind) IsDomain() bool {
	return k == Domain || k == DomainSuffix
}

// ParseKind maps a rule type token (DOMAIN-SUFFIX, ip-cidr, ...) to its Kind.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Rule is the canonical {Kind, Value} form every source line is reduced to.
// Value is lower-cased and trimmed; a DomainSuffix value carries no
// leading "+.", "*." or ".".
type Rule struct {
	Kind  Kind
	Value string
}

// Key returns the serialized canonical form "kind,value". Allowlist matching
// and deduplication compare keys.
func (r Rule) Key() string {
	return r.Kind.String() + "," + r.Value
}

func (r Rule) String() string {
	return r.Key()
}
