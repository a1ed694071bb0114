package search

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
	"github.com/JakeFAU/reviewer-calls/internal/urlnorm"
)

// Queries returns the homepage query and the reviewer query for a conference.
func Queries(conf discovery.Conference, year int) (homepage, reviewer string) {
	homepage = fmt.Sprintf("%q %q conference", conf.Short, strconv.Itoa(year))
	reviewer = fmt.Sprintf("%q %q reviewer", conf.Short, strconv.Itoa(year))
	return homepage, reviewer
}

// ScoredResult is a search hit ranked as a possible conference homepage.
type ScoredResult struct {
	discovery.SearchResult
	Score int
	Depth int
}

// ScoreHomepage rates how likely r is the conference's site for year.
// Zero means no evidence at all.
func ScoreHomepage(r discovery.SearchResult, conf discovery.Conference, year int) int {
	rawURL := strings.ToLower(r.URL)
	title := strings.ToLower(r.Title)
	snippet := strings.ToLower(r.Snippet)
	abbr := strings.ToLower(conf.Short)
	name := strings.ToLower(conf.Name)
	yearStr := strconv.Itoa(year)

	score := 0
	if abbr != "" && strings.Contains(rawURL, abbr) {
		score += 10
	}
	if urlnorm.SameSite(urlnorm.Host(r.URL), conf.Domain) {
		score += 5
	}
	if abbr != "" && (strings.Contains(title, abbr) || strings.Contains(snippet, abbr)) {
		score += 3
	}
	if name != "" && (strings.Contains(title, name) || strings.Contains(snippet, name)) {
		score += 2
	}
	if strings.Contains(title, yearStr) || strings.Contains(snippet, yearStr) {
		score += 2
	}
	return score
}

// RankHomepages scores results and returns those with positive scores, best
// first. Ties prefer the shallower path.
func RankHomepages(results []discovery.SearchResult, conf discovery.Conference, year int) []ScoredResult {
	ranked := make([]ScoredResult, 0, len(results))
	for _, r := range results {
		score := ScoreHomepage(r, conf, year)
		if score <= 0 {
			continue
		}
		ranked = append(ranked, ScoredResult{SearchResult: r, Score: score, Depth: pathDepth(r.URL)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Depth < ranked[j].Depth
	})
	return ranked
}

// ReviewerSeeds keeps reviewer-query hits hosted outside the homepage's host;
// pages on the homepage's own host are reached by crawling it.
func ReviewerSeeds(results []discovery.SearchResult, homepage string) []discovery.SearchResult {
	homeHost := urlnorm.Host(homepage)
	var out []discovery.SearchResult
	for _, r := range results {
		if urlnorm.Host(r.URL) == homeHost {
			continue
		}
		out = append(out, r)
	}
	return out
}

func pathDepth(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	depth := 0
	for _, part := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if part != "" {
			depth++
		}
	}
	return depth
}
