package analyzer

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

const monthPattern = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

var (
	isoDateRe      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	monthDayYearRe = regexp.MustCompile(`\b` + monthPattern + `\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	dayMonthYearRe = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+` + monthPattern + `\.?,?\s+(\d{4})\b`)
	bareYearRe     = regexp.MustCompile(`\b(20\d{2})\b`)
	dateCueRe      = regexp.MustCompile(`deadline|\bopen(?:s|ed|ing)?\b|\bappl(?:y|ication|ications)\b`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

var metaDateSelectors = []string{
	`meta[property="article:published_time"]`,
	`meta[name="date"]`,
	`meta[name="DC.date"]`,
	`meta[property="og:published_time"]`,
}

type dateHit struct {
	date  discovery.Date
	start int
	end   int
}

// ExtractDate finds the most relevant date in text. Full dates (ISO,
// "Month DD, YYYY", "DD Month YYYY") win over a bare year, which maps to
// January 1. When several distinct full dates appear, the one closest to a
// deadline, open or apply cue is chosen, else the first in the document.
// It returns nil when no date is present.
func ExtractDate(text string) *discovery.Date {
	text = normalizeText(text)
	if d := extractFullDate(text); d != nil {
		return d
	}
	return extractBareYear(text)
}

func extractFullDate(text string) *discovery.Date {
	hits := findFullDates(text)
	if len(hits) == 0 {
		return nil
	}
	distinct := make(map[discovery.Date]struct{})
	for _, h := range hits {
		distinct[h.date] = struct{}{}
	}
	if len(distinct) == 1 {
		return &hits[0].date
	}

	cues := dateCueRe.FindAllStringIndex(text, -1)
	if len(cues) == 0 {
		return &hits[0].date
	}
	best, bestDist := 0, -1
	for i, h := range hits {
		for _, c := range cues {
			d := spanDistance(h.start, h.end, c[0], c[1])
			if bestDist < 0 || d < bestDist {
				best, bestDist = i, d
			}
		}
	}
	return &hits[best].date
}

func findFullDates(text string) []dateHit {
	var hits []dateHit
	for _, m := range isoDateRe.FindAllStringSubmatchIndex(text, -1) {
		y, _ := strconv.Atoi(text[m[2]:m[3]])
		mo, _ := strconv.Atoi(text[m[4]:m[5]])
		d, _ := strconv.Atoi(text[m[6]:m[7]])
		if date, ok := civilDate(y, time.Month(mo), d); ok {
			hits = append(hits, dateHit{date: date, start: m[0], end: m[1]})
		}
	}
	for _, m := range monthDayYearRe.FindAllStringSubmatchIndex(text, -1) {
		d, _ := strconv.Atoi(text[m[4]:m[5]])
		y, _ := strconv.Atoi(text[m[6]:m[7]])
		if date, ok := civilDate(y, monthFromName(text[m[2]:m[3]]), d); ok {
			hits = append(hits, dateHit{date: date, start: m[0], end: m[1]})
		}
	}
	for _, m := range dayMonthYearRe.FindAllStringSubmatchIndex(text, -1) {
		d, _ := strconv.Atoi(text[m[2]:m[3]])
		y, _ := strconv.Atoi(text[m[6]:m[7]])
		if date, ok := civilDate(y, monthFromName(text[m[4]:m[5]]), d); ok {
			hits = append(hits, dateHit{date: date, start: m[0], end: m[1]})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].start < hits[j].start })
	return hits
}

func extractBareYear(text string) *discovery.Date {
	m := bareYearRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	y, _ := strconv.Atoi(m[1])
	d := discovery.NewDate(y, time.January, 1)
	return &d
}

func metaDate(doc *goquery.Document) *discovery.Date {
	for _, sel := range metaDateSelectors {
		content, ok := doc.Find(sel).First().Attr("content")
		if !ok {
			continue
		}
		content = strings.TrimSpace(content)
		if len(content) > len(discovery.DateLayout) {
			content = content[:len(discovery.DateLayout)]
		}
		if d, err := discovery.ParseDate(content); err == nil {
			return &d
		}
	}
	return nil
}

func civilDate(year int, month time.Month, day int) (discovery.Date, bool) {
	if year < 1990 || year > 2100 || month < time.January || month > time.December || day < 1 {
		return discovery.Date{}, false
	}
	d := discovery.NewDate(year, month, day)
	if d.Month() != month || d.Day() != day {
		return discovery.Date{}, false
	}
	return d, true
}

func monthFromName(name string) time.Month {
	if len(name) < 3 {
		return 0
	}
	return monthsByPrefix[name[:3]]
}

func spanDistance(aStart, aEnd, bStart, bEnd int) int {
	switch {
	case aEnd <= bStart:
		return bStart - aEnd
	case bEnd <= aStart:
		return aStart - bEnd
	default:
		return 0
	}
}
