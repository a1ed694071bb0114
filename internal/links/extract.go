// Package links pulls outbound anchors from fetched pages, keeps those on the
// conference's own sites, and ranks them by how likely they lead to a
// reviewer recruitment page.
package links

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
	"github.com/JakeFAU/reviewer-calls/internal/urlnorm"
)

// ParseError means a page body could not be parsed as HTML. Callers treat
// it as a page with no links.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Extract returns the allowed outbound links of page at the given depth.
// Targets are resolved against the post-redirect URL, stripped of fragments
// and deduplicated by normalized form; the first anchor text wins.
func Extract(page discovery.FetchedPage, allow AllowList, depth int) ([]discovery.Link, error) {
	base, err := url.Parse(page.BaseURL())
	if err != nil {
		return nil, &ParseError{URL: page.BaseURL(), Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, &ParseError{URL: page.BaseURL(), Err: err}
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if resolved, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = resolved
		}
	}

	self := urlnorm.Normalize(page.BaseURL())
	seen := map[string]struct{}{self: {}}
	var out []discovery.Link
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		target, ok := resolve(base, href)
		if !ok || !allow.Allowed(target) {
			return
		}
		key := urlnorm.Normalize(target)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, discovery.Link{
			SourceURL: page.BaseURL(),
			TargetURL: target,
			Anchor:    collapseSpace(sel.Text()),
			Depth:     depth,
		})
	})
	return out, nil
}

func resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, scheme := range []string{"mailto:", "javascript:", "tel:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}
	target, err := base.Parse(href)
	if err != nil {
		return "", false
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return "", false
	}
	target.Fragment = ""
	target.RawFragment = ""
	return target.String(), true
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
