package catalog

import (
	"strings"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

// ValidAreas are the accepted area codes.
var ValidAreas = []string{"AI", "CG", "CT", "DB", "DS", "HI", "MX", "NW", "SC", "SE"}

// ValidRanks are the accepted --rank and --core-rank values.
var ValidRanks = []string{"A", "B", "C"}

// Filter narrows a conference list. Empty fields match everything.
type Filter struct {
	Short string
	CCF   string
	CORE  string
	Area  string
	Limit int
}

// Apply keeps the conferences matching every set predicate, preserving order,
// then truncates to Limit when positive.
func (f Filter) Apply(conferences []discovery.Conference) []discovery.Conference {
	short := discovery.NormalizeShort(f.Short)
	out := make([]discovery.Conference, 0, len(conferences))
	for _, conf := range conferences {
		switch {
		case short != "" && conf.Short != short:
			continue
		case f.CCF != "" && !strings.EqualFold(conf.Rank.CCF, f.CCF):
			continue
		case f.CORE != "" && !strings.EqualFold(conf.Rank.CORE, f.CORE):
			continue
		case f.Area != "" && !strings.EqualFold(conf.Area, f.Area):
			continue
		}
		out = append(out, conf)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// ValidArea reports whether area is a known area code.
func ValidArea(area string) bool {
	return contains(ValidAreas, strings.ToUpper(area))
}

// ValidRank reports whether rank is A, B or C.
func ValidRank(rank string) bool {
	return contains(ValidRanks, strings.ToUpper(rank))
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
