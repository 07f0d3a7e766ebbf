// Package urlnorm parses candidate URLs into the immutable form consumed by
// the heuristic analyzer and the reputation sources.
package urlnorm

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

var (
	// ErrMalformed marks input that cannot be interpreted as an absolute URL
	ErrMalformed = errors.New("malformed URL")

	// ErrEmpty marks a missing URL
	ErrEmpty = errors.New("URL is required")
)

// URL is a parsed, lower-cased view of a candidate URL
type URL struct {
	Raw         string // original input
	Full        string // lower-cased original input
	Scheme      string
	Hostname    string // canonical ASCII (punycode) form, no port
	UnicodeHost string // Hostname with punycode labels decoded
	Path        string // escaped path, without the query
	RawQuery    string
}

// Parse parses raw into a URL. Anything without a scheme or a host is
// reported as ErrMalformed rather than producing a partial value.
func Parse(raw string) (*URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: missing scheme", ErrMalformed)
	}

	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrMalformed)
	}
	host := canonicalHost(u.Hostname())

	unicodeHost, err := idna.ToUnicode(host)
	if err != nil {
		unicodeHost = host
	}

	return &URL{
		Raw:         raw,
		Full:        strings.ToLower(raw),
		Scheme:      strings.ToLower(u.Scheme),
		Hostname:    host,
		UnicodeHost: unicodeHost,
		Path:        u.EscapedPath(),
		RawQuery:    u.RawQuery,
	}, nil
}

// canonicalHost maps a Unicode or punycode host to one lower-cased ASCII
// spelling. Hosts IDNA rejects (IPv6 literals, underscores) are only
// lower-cased.
func canonicalHost(host string) string {
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil || ascii == "" {
		return strings.ToLower(host)
	}
	return ascii
}

// ValidateAbsolute checks that raw is a usable absolute URL
func ValidateAbsolute(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrEmpty
	}
	_, err := Parse(raw)
	return err
}

// Labels returns the dot separated labels of the hostname
func (u *URL) Labels() []string {
	return strings.Split(u.Hostname, ".")
}

// TLD returns the last hostname label
func (u *URL) TLD() string {
	labels := u.Labels()
	return labels[len(labels)-1]
}

// RegisteredDomain returns the eTLD+1 for the hostname, or the hostname
// itself when no public suffix applies (IP literals, single labels).
func (u *URL) RegisteredDomain() string {
	if _, err := netip.ParseAddr(u.Hostname); err == nil {
		return u.Hostname
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(u.Hostname)
	if err != nil {
		return u.Hostname
	}
	return domain
}
