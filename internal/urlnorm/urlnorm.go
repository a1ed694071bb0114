// Package urlnorm canonicalizes URLs so equality checks across search results,
// extracted links and the stored dataset agree.
package urlnorm

import (
	"net"
	"net/url"
	"sort"
	"strings"
)

var trackingParams = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"mc_cid":  {},
	"mc_eid":  {},
	"ref":     {},
	"ref_src": {},
	"_hsenc":  {},
	"_hsmi":   {},
	"igshid":  {},
	"msclkid": {},
	"yclid":   {},
}

// Normalize returns the canonical form of raw. Only the scheme and host are
// lowercased; paths and queries keep their case. Inputs that do not parse are
// trimmed so they still compare consistently. Normalize is idempotent.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(raw, "/")
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = normalizeHost(u.Scheme, u.Host)
	if values, err := url.ParseQuery(u.RawQuery); err == nil {
		u.RawQuery = cleanQuery(values)
	}
	u.ForceQuery = false
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

// Host returns the normalized host of raw (lowercase, no www., no port), or ""
// when raw does not parse.
func Host(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return stripWWW(strings.ToLower(u.Hostname()))
}

// SameSite reports whether host equals domain or is a subdomain of it.
func SameSite(host, domain string) bool {
	host = stripWWW(strings.ToLower(host))
	domain = stripWWW(strings.ToLower(domain))
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func stripWWW(host string) string {
	for strings.HasPrefix(host, "www.") {
		host = host[len("www."):]
	}
	return host
}

func normalizeHost(scheme, host string) string {
	host = strings.ToLower(host)
	hostname, port, err := net.SplitHostPort(host)
	if err != nil {
		hostname, port = host, ""
	}
	hostname = stripWWW(hostname)
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port == "" {
		return hostname
	}
	return net.JoinHostPort(hostname, port)
}

func cleanQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") {
			continue
		}
		if _, drop := trackingParams[lower]; drop {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, key := range keys {
		vals := append([]string(nil), values[key]...)
		sort.Strings(vals)
		for _, v := range vals {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
