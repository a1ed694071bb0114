package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

// DefaultDuckDuckGoEndpoint is the JavaScript-free results page.
const DefaultDuckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGoConfig configures the free provider.
type DuckDuckGoConfig struct {
	Endpoint   string
	UserAgent  string
	MaxResults int
	Client     *http.Client
}

// DuckDuckGo scrapes the DuckDuckGo HTML endpoint. It needs no credentials
// but throttles aggressively, so callers wrap it in Throttled.
type DuckDuckGo struct {
	endpoint   string
	userAgent  string
	maxResults int
	client     *http.Client
}

// NewDuckDuckGo builds the free provider.
func NewDuckDuckGo(cfg DuckDuckGoConfig) *DuckDuckGo {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultDuckDuckGoEndpoint
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 15 * time.Second}
	}
	return &DuckDuckGo{
		endpoint:   cfg.Endpoint,
		userAgent:  cfg.UserAgent,
		maxResults: cfg.MaxResults,
		client:     cfg.Client,
	}
}

// Name implements Provider.
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search implements Provider.
func (d *DuckDuckGo) Search(ctx context.Context, query string, dateRange DateRange) ([]discovery.SearchResult, error) {
	form := url.Values{"q": {query}}
	if dateRange != DateRangeNone {
		form.Set("df", string(dateRange))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &ProviderError{Provider: d.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: d.Name(), Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%s: status %d: %w", d.Name(), resp.StatusCode, ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return nil, &ProviderError{Provider: d.Name(), Status: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, &ProviderError{Provider: d.Name(), Status: resp.StatusCode, Err: fmt.Errorf("parse results: %w", err)}
	}
	if doc.Find(".anomaly-modal, #challenge-form").Length() > 0 {
		return nil, fmt.Errorf("%s: anomaly page: %w", d.Name(), ErrRateLimited)
	}
	return d.parse(doc), nil
}

func (d *DuckDuckGo) parse(doc *goquery.Document) []discovery.SearchResult {
	var results []discovery.SearchResult
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sel.HasClass("result--ad") {
			return true
		}
		anchor := sel.Find("a.result__a").First()
		href, ok := anchor.Attr("href")
		if !ok {
			return true
		}
		target := unwrapRedirect(href)
		if target == "" {
			return true
		}
		results = append(results, discovery.SearchResult{
			URL:     target,
			Title:   strings.TrimSpace(anchor.Text()),
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").First().Text()),
		})
		return len(results) < d.maxResults
	})
	return results
}

// unwrapRedirect turns //duckduckgo.com/l/?uddg=<target> into <target>.
func unwrapRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
