package pipeline

import "time"

// GuessYear returns the edition a call published now most likely targets:
// the current year through June, the next one afterwards.
func GuessYear(now time.Time) int {
	if now.Month() <= time.June {
		return now.Year()
	}
	return now.Year() + 1
}
