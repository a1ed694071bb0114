package discovery

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Rank holds the CCF and CORE rankings of a conference.
type Rank struct {
	CCF  string `yaml:"ccf" json:"ccf" validate:"omitempty,oneof=A B C None"`
	CORE string `yaml:"core" json:"core" validate:"omitempty,oneof=A* A B C None"`
}

// MonthList is the conference month(s); YAML accepts a single number or a list.
// Zero means unknown.
type MonthList []int

// UnmarshalYAML accepts `conf_date: 8` and `conf_date: [3, 8]`.
func (m *MonthList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var month int
		if err := node.Decode(&month); err != nil {
			return fmt.Errorf("decode conf_date: %w", err)
		}
		*m = MonthList{month}
	case yaml.SequenceNode:
		var months []int
		if err := node.Decode(&months); err != nil {
			return fmt.Errorf("decode conf_date: %w", err)
		}
		*m = months
	default:
		return fmt.Errorf("decode conf_date: unexpected node at line %d", node.Line)
	}
	return nil
}

// Known reports whether at least one non-zero month is listed.
func (m MonthList) Known() bool {
	for _, month := range m {
		if month != 0 {
			return true
		}
	}
	return false
}

// Conference is one catalog record. Identity is Short.
type Conference struct {
	Short      string    `yaml:"short" json:"short" validate:"required"`
	Name       string    `yaml:"name" json:"name" validate:"required"`
	Domain     string    `yaml:"domain" json:"domain" validate:"required,hostname_rfc1123"`
	Area       string    `yaml:"area" json:"area" validate:"omitempty,oneof=AI CG CT DB DS HI MX NW SC SE"`
	Rank       Rank      `yaml:"rank" json:"rank"`
	ConfMonths MonthList `yaml:"conf_date,omitempty" json:"conf_date,omitempty" validate:"dive,min=0,max=12"`
	NextDate   *Date     `yaml:"next_date,omitempty" json:"next_date,omitempty"`
}

// SearchResult is one provider hit, in provider relevance order.
type SearchResult struct {
	URL     string
	Title   string
	Snippet string
}

// FetchedPage is a retrieved document. FinalURL is the post-redirect location.
type FetchedPage struct {
	URL         string
	FinalURL    string
	Status      int
	ContentType string
	Body        []byte
	FetchedAt   time.Time
}

// BaseURL returns the URL relative links should resolve against.
func (p FetchedPage) BaseURL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}

// Link is an outbound anchor. Depth 1 links come from a seed page, depth 2
// links from a depth 1 page.
type Link struct {
	SourceURL string
	TargetURL string
	Anchor    string
	Depth     int
}

// ScoredLink is a Link with its heuristic score and the matched rule names.
type ScoredLink struct {
	Link
	Score   float64
	Matched []string
}

// Analysis is the content verdict for one page.
type Analysis struct {
	IsCandidate bool
	Signals     []string
	Vetoed      []string
	Date        *Date
	Score       float64
}

// Candidate is the unit of pipeline output. Only human triage flips Confirmed.
type Candidate struct {
	Conference     string   `yaml:"conference" json:"conference"`
	Year           int      `yaml:"year" json:"year"`
	Role           string   `yaml:"role" json:"role"`
	URL            string   `yaml:"url" json:"url"`
	Label          string   `yaml:"label,omitempty" json:"label,omitempty"`
	Date           *Date    `yaml:"date" json:"date"`
	Confirmed      bool     `yaml:"confirmed" json:"confirmed"`
	Round          string   `yaml:"round,omitempty" json:"round,omitempty"`
	DiscoveryScore float64  `yaml:"-" json:"discovery_score"`
	SourceDepth    int      `yaml:"-" json:"source_depth"`
	Signals        []string `yaml:"-" json:"matched_signals,omitempty"`
	Scores         Scores   `yaml:"-" json:"scores"`
}

// Scores breaks a candidate's discovery score into its layers.
type Scores struct {
	Search   float64 `json:"search"`
	Link     float64 `json:"link"`
	Content  float64 `json:"content"`
	Final    float64 `json:"final"`
	Decision string  `json:"decision"`
}

// RejectedURL suppresses a URL from resurfacing until it expires.
type RejectedURL struct {
	URL        string `yaml:"url" json:"url"`
	Conference string `yaml:"conference,omitempty" json:"conference,omitempty"`
	Reason     string `yaml:"reason,omitempty" json:"reason,omitempty"`
	RejectedAt *Date  `yaml:"rejected_at,omitempty" json:"rejected_at,omitempty"`
	ExpiresAt  *Date  `yaml:"expires_at,omitempty" json:"expires_at,omitempty"`
}

// Active reports whether the entry still suppresses its URL on day now.
func (r RejectedURL) Active(now time.Time) bool {
	if r.ExpiresAt == nil {
		return true
	}
	return DateOf(now).Before(r.ExpiresAt.Time)
}

// NormalizeShort canonicalizes a conference short name for comparisons.
func NormalizeShort(short string) string {
	return strings.ToUpper(strings.TrimSpace(short))
}
