// Package codec provides the byte-safe encoding used for every URL and
// domain fragment that enters a store key, plus the URL validity and
// domain-extraction predicates the rest of the system relies on.
package codec

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Encode is total: any string can be encoded as a key fragment.
func Encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// Decode fails only if s is not valid standard base64.
func Decode(s string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("decode %q: %w", s, err)
	}
	return string(b), nil
}

// URLValid reports whether s parses as an absolute http(s) URL.
func URLValid(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if !u.IsAbs() {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Domain extracts the registrable host (eTLD+1) from an absolute URL. It
// fails if the URL doesn't parse, has no host, or publicsuffix cannot
// derive an eTLD+1 from the host (e.g. a bare public suffix or an IPv6
// literal). IPv4 literals are not rejected: their last two labels are
// returned.
func Domain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", fmt.Errorf("domain of %q: %w", rawURL, err)
	}
	return etld1, nil
}
