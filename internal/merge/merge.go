// Package merge reconciles freshly discovered candidates with the curated
// dataset and the rejected-URL history.
package merge

import (
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
	"github.com/JakeFAU/reviewer-calls/internal/urlnorm"
)

// Reasons a candidate is dropped.
const (
	ReasonRejected  = "rejected"
	ReasonDuplicate = "duplicate"
	ReasonNoURL     = "no_url"
)

// Dropped records a discarded candidate and why.
type Dropped struct {
	Candidate discovery.Candidate
	Reason    string
}

// Result is the outcome of Merge. Kept preserves discovery order.
type Result struct {
	Kept    []discovery.Candidate
	Dropped []Dropped
}

// Key is the dedup identity of a candidate: conference, year, role and
// normalized URL.
func Key(c discovery.Candidate) string {
	return strings.Join([]string{
		discovery.NormalizeShort(c.Conference),
		strconv.Itoa(c.Year),
		strings.ToLower(strings.TrimSpace(c.Role)),
		urlnorm.Normalize(c.URL),
	}, "\x00")
}

// RejectedSet returns the normalized URLs of rejections still active on now.
func RejectedSet(rejected []discovery.RejectedURL, now time.Time) map[string]struct{} {
	set := make(map[string]struct{}, len(rejected))
	for _, r := range rejected {
		if !r.Active(now) {
			continue
		}
		if u := urlnorm.Normalize(r.URL); u != "" {
			set[u] = struct{}{}
		}
	}
	return set
}

// Merge filters fresh against existing and rejected. A candidate is dropped
// when its normalized URL is actively rejected, or when its full key already
// exists in the dataset or earlier in fresh. The same conference, year and
// role under a different URL is kept. Merging a batch twice keeps one copy.
func Merge(fresh, existing []discovery.Candidate, rejected []discovery.RejectedURL, now time.Time) Result {
	blocked := RejectedSet(rejected, now)
	seen := make(map[string]struct{}, len(existing)+len(fresh))
	for _, c := range existing {
		seen[Key(c)] = struct{}{}
	}

	var res Result
	for _, c := range fresh {
		norm := urlnorm.Normalize(c.URL)
		if norm == "" {
			res.Dropped = append(res.Dropped, Dropped{Candidate: c, Reason: ReasonNoURL})
			continue
		}
		if _, ok := blocked[norm]; ok {
			res.Dropped = append(res.Dropped, Dropped{Candidate: c, Reason: ReasonRejected})
			continue
		}
		key := Key(c)
		if _, ok := seen[key]; ok {
			res.Dropped = append(res.Dropped, Dropped{Candidate: c, Reason: ReasonDuplicate})
			continue
		}
		seen[key] = struct{}{}
		c.Confirmed = false
		res.Kept = append(res.Kept, c)
	}
	return res
}
