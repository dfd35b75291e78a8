package rule

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/idna"
)

var ErrEmptyHost = errors.New("empty host")

// NormalizeHost reduces a bare host or an http(s) URL to the lower-case
// ASCII host used for matching: scheme, userinfo, port, path and a trailing
// dot are dropped, IPv6 brackets removed and IDN names converted to punycode.
func NormalizeHost(raw string) (string, error) {
	rest := strings.TrimSpace(raw)
	if rest == "" {
		return "", ErrEmptyHost
	}

	if i := strings.Index(rest, "://"); i != -1 {
		scheme := rest[:i]
		if !strings.EqualFold(scheme, "http") && !strings.EqualFold(scheme, "https") {
			return "", fmt.Errorf("unsupported scheme: %s", scheme)
		}
		rest = rest[i+3:]
	}
	if end := strings.IndexAny(rest, "/?#"); end != -1 {
		rest = rest[:end]
	}

	if at := strings.LastIndexByte(rest, '@'); at != -1 {
		rest = rest[at+1:]
	}

	host := rest
	if strings.Contains(rest, ":") {
		if h, _, err := net.SplitHostPort(rest); err == nil {
			host = h
		}
	}

	host = strings.TrimSuffix(strings.TrimSpace(host), ".")
	if len(host) > 2 && host[0] == '[' && host[len(host)-1] == ']' {
		host = host[1 : len(host)-1]
	}
	if host == "" {
		return "", ErrEmptyHost
	}

	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}
	if isASCII(host) {
		return strings.ToLower(host), nil
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("idna: %w", err)
	}
	return strings.ToLower(ascii), nil
}
