package links

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

// Rule is one scoring table entry. Negative weights subtract.
type Rule struct {
	Pattern string
	Weight  float64
}

// Weights are the structural scoring terms.
type Weights struct {
	SameDomain   float64
	External     float64
	NonHTML      float64
	DepthPenalty float64
}

// DefaultWeights returns the structural defaults.
func DefaultWeights() Weights {
	return Weights{SameDomain: 1, External: -1, NonHTML: -5, DepthPenalty: 1}
}

// DefaultPositive is the role keyword table.
func DefaultPositive() []Rule {
	return []Rule{
		{"reviewer", 3},
		{"pc", 3},
		{"program committee", 3},
		{"programme committee", 3},
		{"committee", 2},
		{"area chair", 2},
		{"ac", 2},
		{"spc", 2},
		{"aec", 2},
		{"artifact evaluation", 2},
		{"shadow", 2},
		{"nomination", 2},
		{"nominate", 2},
		{"volunteer", 2},
		{"recruitment", 1},
		{"call", 1},
		{"join", 1},
		{"invitation", 1},
		{"sign up", 1},
		{"apply", 1},
		{"member", 1},
	}
}

// DefaultNegative is the exclusion table.
func DefaultNegative() []Rule {
	return []Rule{
		{"code of conduct", -6},
		{"visa", -6},
		{"travel grant", -5},
		{"login", -6},
		{"sign in", -5},
		{"registration", -3},
		{"accommodation", -4},
		{"venue", -3},
		{"sponsor", -4},
		{"accepted paper", -4},
		{"camera ready", -4},
		{"proceedings", -3},
		{"keynote", -3},
		{"privacy", -3},
		{"attending", -3},
	}
}

var nonHTMLExtensions = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".ppt": {}, ".pptx": {}, ".xls": {}, ".xlsx": {},
	".zip": {}, ".tar": {}, ".gz": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {},
	".ics": {}, ".bib": {},
}

type compiledRule struct {
	name   string
	weight float64
	re     *regexp.Regexp
}

// Scorer rates links against keyword tables and structural terms. It is
// deterministic and safe for concurrent use.
type Scorer struct {
	rules   []compiledRule
	weights Weights
}

// NewScorer compiles the tables. Patterns are case-insensitive, word-boundary
// anchored, tolerate space, dash or underscore between words, and accept a
// trailing plural "s".
func NewScorer(positive, negative []Rule, weights Weights) (*Scorer, error) {
	s := &Scorer{weights: weights}
	for _, table := range [][]Rule{positive, negative} {
		for _, rule := range table {
			re, err := compilePattern(rule.Pattern)
			if err != nil {
				return nil, fmt.Errorf("compile link rule %q: %w", rule.Pattern, err)
			}
			s.rules = append(s.rules, compiledRule{name: strings.ToLower(strings.TrimSpace(rule.Pattern)), weight: rule.Weight, re: re})
		}
	}
	return s, nil
}

// DefaultScorer uses the default tables.
func DefaultScorer() *Scorer {
	s, err := NewScorer(DefaultPositive(), DefaultNegative(), DefaultWeights())
	if err != nil {
		panic(err)
	}
	return s
}

// RulesFromMap turns a config table into rules ordered by pattern.
func RulesFromMap(table map[string]float64) []Rule {
	rules := make([]Rule, 0, len(table))
	for pattern, weight := range table {
		rules = append(rules, Rule{Pattern: pattern, Weight: weight})
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Pattern < rules[j].Pattern })
	return rules
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	words := strings.FieldsFunc(strings.ToLower(pattern), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	})
	if len(words) == 0 {
		return nil, fmt.Errorf("empty pattern")
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	expr := `(?i)\b` + strings.Join(quoted, `[\s_-]*`)
	if !strings.HasSuffix(words[len(words)-1], "s") {
		expr += `s?`
	}
	return regexp.Compile(expr + `\b`)
}

// Score rates link. sameDomain is whether the target is on the conference's
// own site. Every occurrence of a pattern in the anchor text or the URL path
// adds its weight.
func (s *Scorer) Score(link discovery.Link, sameDomain bool) discovery.ScoredLink {
	linkPath := targetPath(link.TargetURL)
	text := link.Anchor + " " + pathWords(linkPath)

	var (
		score   float64
		matched []string
	)
	for _, rule := range s.rules {
		hits := len(rule.re.FindAllStringIndex(text, -1))
		if hits == 0 {
			continue
		}
		score += rule.weight * float64(hits)
		matched = append(matched, rule.name)
	}

	if sameDomain {
		score += s.weights.SameDomain
	} else {
		score += s.weights.External
	}
	if _, ok := nonHTMLExtensions[strings.ToLower(path.Ext(linkPath))]; ok {
		score += s.weights.NonHTML
		matched = append(matched, "non-html")
	}
	if link.Depth > 1 {
		score -= s.weights.DepthPenalty * float64(link.Depth-1)
	}

	sort.Strings(matched)
	return discovery.ScoredLink{Link: link, Score: score, Matched: matched}
}

// ScoreAll scores links against an allow list's notion of same site.
func (s *Scorer) ScoreAll(links []discovery.Link, allow AllowList) []discovery.ScoredLink {
	out := make([]discovery.ScoredLink, 0, len(links))
	for _, l := range links {
		out = append(out, s.Score(l, allow.SameSite(l.TargetURL)))
	}
	return out
}

// Select keeps links scoring strictly above minScore, best first, capped at
// maxLinks. Ties prefer shorter paths, then lexical URL order.
func Select(scored []discovery.ScoredLink, minScore float64, maxLinks int) []discovery.ScoredLink {
	kept := make([]discovery.ScoredLink, 0, len(scored))
	for _, l := range scored {
		if l.Score > minScore {
			kept = append(kept, l)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		pi, pj := len(targetPath(kept[i].TargetURL)), len(targetPath(kept[j].TargetURL))
		if pi != pj {
			return pi < pj
		}
		return kept[i].TargetURL < kept[j].TargetURL
	})
	if maxLinks > 0 && len(kept) > maxLinks {
		kept = kept[:maxLinks]
	}
	return kept
}

func targetPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}

// pathWords turns /calls/call-for_reviewers.html into "calls call for reviewers html".
func pathWords(p string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(p), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}), " ")
}
