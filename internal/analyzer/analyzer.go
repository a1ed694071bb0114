// Package analyzer decides whether a fetched page recruits reviewers and
// extracts the date the call was published or closes.
package analyzer

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cloudflare/ahocorasick"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

// Content score weights.
const (
	HighWeight       = 4.0
	MediumWeight     = 2.0
	NegativeWeight   = -5.0
	RecoveryWeight   = 2.0
	MultiStrongBonus = 3.0

	contextWindow = 200
)

type phraseKind int

const (
	phraseStrong phraseKind = iota
	phraseWeak
	phraseRecovery
)

type compiledSignal struct {
	name string
	re   *regexp.Regexp
}

// Analyzer scores page text. It is safe for concurrent use.
type Analyzer struct {
	high    []compiledSignal
	medium  []compiledSignal
	labels  []compiledSignal
	context []string
	phrases []string
	kinds   []phraseKind
	matcher *ahocorasick.Matcher
}

// New compiles tables into an Analyzer.
func New(t Tables) (*Analyzer, error) {
	a := &Analyzer{context: t.ContextTerms}
	var err error
	if a.high, err = compileSignals(t.High); err != nil {
		return nil, err
	}
	if a.medium, err = compileSignals(t.Medium); err != nil {
		return nil, err
	}
	if a.labels, err = compileSignals(t.Labels); err != nil {
		return nil, err
	}
	add := func(list []string, kind phraseKind) {
		for _, p := range list {
			p = normalizeText(p)
			if p == "" {
				continue
			}
			a.phrases = append(a.phrases, p)
			a.kinds = append(a.kinds, kind)
		}
	}
	add(t.StrongNegative, phraseStrong)
	add(t.WeakNegative, phraseWeak)
	add(t.Recovery, phraseRecovery)
	if len(a.phrases) > 0 {
		a.matcher = ahocorasick.NewStringMatcher(a.phrases)
	}
	return a, nil
}

// Default returns an Analyzer over DefaultTables.
func Default() *Analyzer {
	a, err := New(DefaultTables())
	if err != nil {
		panic(err)
	}
	return a
}

func compileSignals(signals []Signal) ([]compiledSignal, error) {
	out := make([]compiledSignal, 0, len(signals))
	for _, s := range signals {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile signal %q: %w", s.Name, err)
		}
		out = append(out, compiledSignal{name: s.Name, re: re})
	}
	return out, nil
}

// Analyze reduces page to plain text and evaluates it. Pages that do not
// parse yield a zero Analysis.
func (a *Analyzer) Analyze(page discovery.FetchedPage) discovery.Analysis {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return discovery.Analysis{}
	}
	text := PlainText(doc)
	result := a.AnalyzeText(text)
	if result.Date == nil {
		if d := metaDate(doc); d != nil {
			result.Date = d
		} else {
			result.Date = extractBareYear(text)
		}
	}
	return result
}

// AnalyzeText evaluates already extracted text. Only full dates are taken
// from text here; Analyze adds meta and bare-year fallbacks.
func (a *Analyzer) AnalyzeText(text string) discovery.Analysis {
	text = normalizeText(text)
	var (
		score     float64
		signals   []string
		highHits  int
		roleHits  int
		vetoed    []string
		recovered bool
	)

	for _, s := range a.high {
		if s.re.MatchString(text) {
			signals = append(signals, s.name)
			score += HighWeight
			highHits++
		}
	}
	for _, s := range a.medium {
		if a.mediumMatch(s.re, text) {
			signals = append(signals, s.name)
			score += MediumWeight
			roleHits++
		}
	}
	for _, s := range a.labels {
		if a.mediumMatch(s.re, text) {
			signals = append(signals, s.name)
			score += MediumWeight
		}
	}

	var negatives []int
	if a.matcher != nil {
		seen := make(map[int]struct{})
		for _, idx := range a.matcher.MatchThreadSafe([]byte(text)) {
			if _, dup := seen[idx]; dup {
				continue
			}
			seen[idx] = struct{}{}
			switch a.kinds[idx] {
			case phraseRecovery:
				recovered = true
			default:
				negatives = append(negatives, idx)
			}
		}
	}
	for _, idx := range negatives {
		if recovered {
			score += RecoveryWeight
			continue
		}
		score += NegativeWeight
		if a.kinds[idx] == phraseStrong {
			vetoed = append(vetoed, a.phrases[idx])
		}
	}
	if highHits >= 3 {
		score += MultiStrongBonus
	}

	sort.Strings(signals)
	sort.Strings(vetoed)
	return discovery.Analysis{
		IsCandidate: highHits+roleHits > 0 && len(vetoed) == 0,
		Signals:     signals,
		Vetoed:      vetoed,
		Date:        extractFullDate(text),
		Score:       score,
	}
}

// mediumMatch requires a recruitment context term near an occurrence.
func (a *Analyzer) mediumMatch(re *regexp.Regexp, text string) bool {
	for _, loc := range re.FindAllStringIndex(text, 20) {
		lo := max(0, loc[0]-contextWindow)
		hi := min(len(text), loc[1]+contextWindow)
		window := text[lo:hi]
		for _, term := range a.context {
			if strings.Contains(window, term) {
				return true
			}
		}
	}
	return false
}

// PlainText returns the lowercase visible text of doc with collapsed whitespace.
func PlainText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, template, svg").Remove()
	return normalizeText(doc.Text())
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
