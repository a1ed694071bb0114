// Package search queries web search backends for conference seed pages.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

// ErrRateLimited is returned when a provider signals throttling.
var ErrRateLimited = errors.New("search provider rate limited")

// ErrAllProvidersFailed is returned by Fallback when no provider succeeded.
var ErrAllProvidersFailed = errors.New("all search providers failed")

// ProviderError is any non-throttling failure of a single search call.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("search %s: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("search %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Provider runs one query against a search backend. Results keep the
// provider's relevance order.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, dateRange DateRange) ([]discovery.SearchResult, error)
}

// DateRange restricts results to recently indexed pages.
type DateRange string

// Supported date ranges.
const (
	DateRangeNone  DateRange = ""
	DateRangeDay   DateRange = "d"
	DateRangeWeek  DateRange = "w"
	DateRangeMonth DateRange = "m"
	DateRangeYear  DateRange = "y"
)

// ParseDateRange accepts d|w|m|y|none and the full words.
func ParseDateRange(raw string) (DateRange, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none", "all":
		return DateRangeNone, nil
	case "d", "day":
		return DateRangeDay, nil
	case "w", "week":
		return DateRangeWeek, nil
	case "m", "month":
		return DateRangeMonth, nil
	case "y", "year":
		return DateRangeYear, nil
	default:
		return DateRangeNone, fmt.Errorf("unknown date range %q", raw)
	}
}

func (r DateRange) String() string {
	if r == DateRangeNone {
		return "none"
	}
	return string(r)
}
