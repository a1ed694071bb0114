package catalog

import (
	"time"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

// DefaultRolling lists conferences that recruit reviewers year-round.
var DefaultRolling = []string{"ACL", "EMNLP", "NAACL", "EACL", "ICLR", "ICML", "NEURIPS"}

// Window bounds the recruitment period, in months before the next occurrence.
type Window struct {
	MinMonths int
	MaxMonths int
	// Rolling conferences are always in the window.
	Rolling []string
}

// DefaultWindow returns the 2..10 month window with the default rolling set.
func DefaultWindow() Window {
	return Window{MinMonths: 2, MaxMonths: 10, Rolling: DefaultRolling}
}

// InWindow returns the conferences recruiting on day today, in catalog order.
//
// With an explicit next_date the check is today+min <= next_date <= today+max
// on civil dates, both bounds inclusive. With only conference months the check
// is month granular: the number of months from today's month to a listed
// month must fall within [min, max]. Records without any date are included.
func (c *Catalog) InWindow(today time.Time, w Window) []discovery.Conference {
	rolling := make(map[string]struct{}, len(w.Rolling))
	for _, short := range w.Rolling {
		rolling[discovery.NormalizeShort(short)] = struct{}{}
	}
	day := discovery.DateOf(today)
	var out []discovery.Conference
	for _, conf := range c.conferences {
		if _, ok := rolling[conf.Short]; ok || w.contains(day, conf) {
			out = append(out, conf)
		}
	}
	return out
}

func (w Window) contains(day discovery.Date, conf discovery.Conference) bool {
	if conf.NextDate != nil {
		lo := AddMonths(day, w.MinMonths)
		hi := AddMonths(day, w.MaxMonths)
		next := conf.NextDate.Time
		return !next.Before(lo.Time) && !next.After(hi.Time)
	}
	if !conf.ConfMonths.Known() {
		return true
	}
	current := int(day.Month())
	for _, month := range conf.ConfMonths {
		if month == 0 {
			continue
		}
		ahead := (month - current + 12) % 12
		if ahead >= w.MinMonths && ahead <= w.MaxMonths {
			return true
		}
	}
	return false
}

// AddMonths adds n calendar months, clamping to the last day of the target
// month (Aug 31 + 1 month is Sep 30).
func AddMonths(d discovery.Date, n int) discovery.Date {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := d.Day()
	if day > last {
		day = last
	}
	return discovery.NewDate(first.Year(), first.Month(), day)
}
