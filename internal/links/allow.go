package links

import (
	"strings"

	"github.com/JakeFAU/reviewer-calls/internal/urlnorm"
)

// Trusted lists hosting platforms outside the conference domain that are
// still followed.
type Trusted struct {
	// Hosts are always allowed (with subdomains).
	Hosts []string
	// ScopedHosts are allowed only when the URL mentions the conference.
	ScopedHosts []string
}

// DefaultTrusted returns the platforms conferences commonly host calls on.
func DefaultTrusted() Trusted {
	return Trusted{
		Hosts:       []string{"conf.researchr.org"},
		ScopedHosts: []string{"github.io", "sites.google.com"},
	}
}

// AllowList decides which link targets a conference crawl may follow.
type AllowList struct {
	conference string
	domains    []string
	trusted    Trusted
}

// NewAllowList allows the given domains (with subdomains) plus trusted
// platforms. conference is the short name used for scoped platforms.
func NewAllowList(conference string, trusted Trusted, domains ...string) AllowList {
	a := AllowList{conference: strings.ToLower(conference), trusted: trusted}
	for _, d := range domains {
		a = a.With(d)
	}
	return a
}

// With returns a copy that also allows domain. Blank and duplicate domains
// are ignored.
func (a AllowList) With(domain string) AllowList {
	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
	if domain == "" {
		return a
	}
	for _, d := range a.domains {
		if d == domain {
			return a
		}
	}
	a.domains = append(append([]string(nil), a.domains...), domain)
	return a
}

// SameSite reports whether rawURL is on one of the conference's own domains.
func (a AllowList) SameSite(rawURL string) bool {
	host := urlnorm.Host(rawURL)
	for _, d := range a.domains {
		if urlnorm.SameSite(host, d) {
			return true
		}
	}
	return false
}

// Allowed reports whether rawURL may be followed.
func (a AllowList) Allowed(rawURL string) bool {
	if a.SameSite(rawURL) {
		return true
	}
	host := urlnorm.Host(rawURL)
	for _, h := range a.trusted.Hosts {
		if urlnorm.SameSite(host, h) {
			return true
		}
	}
	if a.conference == "" {
		return false
	}
	for _, h := range a.trusted.ScopedHosts {
		if urlnorm.SameSite(host, h) && strings.Contains(strings.ToLower(rawURL), a.conference) {
			return true
		}
	}
	return false
}
