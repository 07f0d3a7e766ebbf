// Package heuristic scores the structure of a URL without any network access.
//
// It is the single rule set behind both the quick check and the full
// aggregated scan.
package heuristic

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/olegrjumin/urlrisk/internal/signal"
	"github.com/olegrjumin/urlrisk/internal/urlnorm"
)

// Point increments for each rule
const (
	MalformedPoints       = 30
	InsecureSchemePoints  = 10
	IPHostPoints          = 40
	SuspiciousTLDPoints   = 25
	LongHostPoints        = 10
	DeepSubdomainPoints   = 15
	HomographPoints       = 30
	BrandPoints           = 35
	PhishingKeywordPoints = 20
	ShortenerPoints       = 15
	PathInjectionPoints   = 20
	ScamTermPoints        = 50
	RandomDomainPoints    = 15
)

const (
	maxHostLength   = 40
	maxLabels       = 5
	minRandomLength = 16
)

var ipv4Host = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)

var suspiciousTLDs = map[string]bool{
	"tk": true, "ml": true, "ga": true, "cf": true, "gq": true,
	"zip": true, "mov": true, "loan": true, "click": true,
	"download": true, "work": true,
}

// brands are checked in order; only the first hit is reported
var brands = []string{
	"paypal", "amazon", "microsoft", "google",
	"apple", "facebook", "netflix", "instagram",
}

var phishingKeywords = []string{
	"secure-", "verify-", "update-", "confirm-",
	"account-", "login-", "signin-",
}

var shorteners = []string{
	"bit.ly", "tinyurl.com", "t.co", "goo.gl", "ow.ly", "short.link",
}

// %2540 is a double-encoded "@", %00 an encoded NUL
var pathInjections = []string{"@", "%2540", "%00", "//"}

var scamTerms = []string{"phishing", "scam", "fake"}

// Analyze scores a URL. u is nil when raw could not be parsed; a malformed
// URL is itself a risk signal, so it scores rather than errors.
func Analyze(raw string, u *urlnorm.URL) signal.Result {
	if u == nil {
		return signal.New(MalformedPoints, "Malformed URL")
	}

	var s scorer
	host := u.Hostname

	if u.Scheme != "https" {
		s.add(InsecureSchemePoints, "Non-HTTPS protocol")
	}

	if ipv4Host.MatchString(host) {
		s.add(IPHostPoints, "IP address instead of domain")
	}

	if tld := u.TLD(); suspiciousTLDs[tld] {
		s.add(SuspiciousTLDPoints, fmt.Sprintf("Suspicious TLD: .%s", tld))
	}

	if utf8.RuneCountInString(u.UnicodeHost) > maxHostLength {
		s.add(LongHostPoints, "Unusually long domain")
	}

	if len(u.Labels()) > maxLabels {
		s.add(DeepSubdomainPoints, "Excessive subdomains")
	}

	if mixesScripts(u.UnicodeHost) {
		s.add(HomographPoints, "Contains non-Latin characters (possible homograph)")
	}

	if brand, ok := impersonatedBrand(host); ok {
		s.add(BrandPoints, fmt.Sprintf("Possible %s impersonation", brand))
	}

	if containsAny(host, phishingKeywords) {
		s.add(PhishingKeywordPoints, "Contains phishing-related keywords")
	}

	if isShortener(host) {
		s.add(ShortenerPoints, "URL shortener detected")
	}

	if containsAny(u.Path, pathInjections) || containsAny(u.RawQuery, pathInjections) {
		s.add(PathInjectionPoints, "Suspicious path characters")
	}

	if containsAny(u.Full, scamTerms) {
		s.add(ScamTermPoints, "Contains suspicious terms")
	}

	if looksRandom(secondLevelLabel(u.Labels())) {
		s.add(RandomDomainPoints, "Domain appears to be random string")
	}

	return signal.New(s.score, s.reasons...)
}

// AnalyzeRaw parses raw and scores it
func AnalyzeRaw(raw string) signal.Result {
	u, err := urlnorm.Parse(raw)
	if err != nil {
		return Analyze(raw, nil)
	}
	return Analyze(raw, u)
}

type scorer struct {
	score   int
	reasons []string
}

func (s *scorer) add(points int, reason string) {
	s.score += points
	s.reasons = append(s.reasons, reason)
}

// impersonatedBrand reports the first brand named in host that host does
// not actually belong to.
func impersonatedBrand(host string) (string, bool) {
	for _, brand := range brands {
		if !strings.Contains(host, brand) {
			continue
		}
		if strings.HasSuffix(host, brand+".com") || strings.HasSuffix(host, brand+".org") {
			continue
		}
		return brand, true
	}
	return "", false
}

// mixesScripts reports whether host has Latin letters alongside letters of
// any other script.
func mixesScripts(host string) bool {
	var latin, other bool
	for _, r := range host {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.Is(unicode.Latin, r) {
			latin = true
		} else {
			other = true
		}
		if latin && other {
			return true
		}
	}
	return false
}

// isShortener matches the shortener domain itself or any of its subdomains,
// so "microsoft.com" does not count as "t.co".
func isShortener(host string) bool {
	for _, d := range shorteners {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func secondLevelLabel(labels []string) string {
	if len(labels) < 2 {
		return ""
	}
	return labels[len(labels)-2]
}

// looksRandom flags long vowel-less labels. Punycode labels are encoded
// text, not random strings.
func looksRandom(label string) bool {
	if strings.HasPrefix(label, "xn--") {
		return false
	}
	return len(label) >= minRandomLength && !strings.ContainsAny(label, "aeiou")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
