package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

func page(body string) discovery.FetchedPage {
	return discovery.FetchedPage{
		URL:         "https://conf.example.org/cfr",
		FinalURL:    "https://conf.example.org/cfr",
		Status:      200,
		ContentType: "text/html",
		Body:        []byte(body),
	}
}

func date(y int, m time.Month, d int) *discovery.Date {
	v := discovery.NewDate(y, m, d)
	return &v
}

func TestAnalyzeCandidate(t *testing.T) {
	t.Parallel()

	a := Default()
	got := a.Analyze(page(`<html><head><script>var reviewers = "code of conduct";</script></head>
<body><h1>Call for Reviewers</h1><p>We invite you to self-nominate as a reviewer.</p></body></html>`))

	require.True(t, got.IsCandidate)
	require.Empty(t, got.Vetoed)
	require.Contains(t, got.Signals, "call for reviewers")
	require.Contains(t, got.Signals, "self-nomination")
	require.Contains(t, got.Signals, "reviewer")
	require.IsIncreasing(t, got.Signals)
	require.Greater(t, got.Score, 0.0)
	require.Nil(t, got.Date)
}

func TestAnalyzeStrongNegativeVetoesSinglePositive(t *testing.T) {
	t.Parallel()

	got := Default().AnalyzeText("Code of Conduct. All reviewers must follow it. Apply the policy.")
	require.False(t, got.IsCandidate)
	require.Equal(t, []string{"reviewer"}, got.Signals)
	require.Equal(t, []string{"code of conduct"}, got.Vetoed)
	require.InDelta(t, MediumWeight+NegativeWeight, got.Score, 1e-9)
}

func TestAnalyzeRecoveryPhraseNeutralizesNegatives(t *testing.T) {
	t.Parallel()

	got := Default().AnalyzeText("Code of conduct applies. Call for reviewers: apply now.")
	require.True(t, got.IsCandidate)
	require.Empty(t, got.Vetoed)
	require.Contains(t, got.Signals, "call for reviewers")
	require.InDelta(t, HighWeight+MediumWeight+RecoveryWeight, got.Score, 1e-9)
}

func TestAnalyzeMediumNeedsContext(t *testing.T) {
	t.Parallel()

	a := Default()
	got := a.AnalyzeText("Our reviewers are wonderful people.")
	require.False(t, got.IsCandidate)
	require.Empty(t, got.Signals)

	got = a.AnalyzeText("Our reviewers are wonderful people. Please fill in the nomination form.")
	require.True(t, got.IsCandidate)
	require.Equal(t, []string{"reviewer"}, got.Signals)
}

func TestAnalyzeLabelsAloneAreNotCandidates(t *testing.T) {
	t.Parallel()

	a := Default()
	got := a.Analyze(page(`<p>Register for the workshop on program synthesis before the deadline.</p>`))
	require.False(t, got.IsCandidate)
	require.Equal(t, []string{"workshop"}, got.Signals)
	require.InDelta(t, MediumWeight, got.Score, 1e-9)

	got = a.AnalyzeText("Industry track: apply by the deadline.")
	require.False(t, got.IsCandidate)
	require.Equal(t, []string{"industry track"}, got.Signals)

	got = a.AnalyzeText("The workshop seeks reviewers. Apply via the form.")
	require.True(t, got.IsCandidate)
	require.Equal(t, []string{"reviewer", "workshop"}, got.Signals)
	require.Equal(t, LabelWorkshop, DetectLabel("https://x.org/cfr", got.Signals))
}

func TestAnalyzeMultiStrongBonus(t *testing.T) {
	t.Parallel()

	got := Default().AnalyzeText("Call for reviewers. Self-nomination form. Volunteer to review.")
	require.True(t, got.IsCandidate)
	require.InDelta(t, 3*HighWeight+MultiStrongBonus+MediumWeight, got.Score, 1e-9)
}

func TestAnalyzeDateFallbacks(t *testing.T) {
	t.Parallel()

	a := Default()

	meta := a.Analyze(page(`<html><head><meta property="article:published_time" content="2026-03-04T10:00:00Z"></head>
<body>Call for reviewers</body></html>`))
	require.Equal(t, date(2026, time.March, 4), meta.Date)

	year := a.Analyze(page(`<html><body>ICSE 2027: call for reviewers</body></html>`))
	require.Equal(t, date(2027, time.January, 1), year.Date)

	full := a.Analyze(page(`<html><head><meta name="date" content="2020-01-01"></head>
<body>Call for reviewers. Deadline: 15 March 2026.</body></html>`))
	require.Equal(t, date(2026, time.March, 15), full.Date)
}

func TestAnalyzeEmptyBody(t *testing.T) {
	t.Parallel()

	got := Default().Analyze(page(""))
	require.False(t, got.IsCandidate)
}

func TestNewRejectsBadPattern(t *testing.T) {
	t.Parallel()

	_, err := New(Tables{High: []Signal{{Name: "broken", Pattern: "(("}}})
	require.ErrorContains(t, err, "broken")
}

func TestExtractDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want *discovery.Date
	}{
		{"month day year", "Applications open January 5, 2026 for reviewers", date(2026, time.January, 5)},
		{"iso", "2026-02-14: nomination deadline", date(2026, time.February, 14)},
		{"day month year", "Nominations close on 3rd Sept 2026.", date(2026, time.September, 3)},
		{"abbreviated month", "Posted Feb. 7 2026", date(2026, time.February, 7)},
		{"none", "We are looking for reviewers", nil},
		{"bare year", "ICSE 2027 reviewers", date(2027, time.January, 1)},
		{"invalid day falls back to year", "2026-02-30 is not a day", date(2026, time.January, 1)},
		{"out of range year", "Founded 1850", nil},
		{
			"nearest cue wins",
			"The conference takes place on 10 June 2026. Reviewer nomination deadline: March 1, 2026.",
			date(2026, time.March, 1),
		},
		{"first in document without cue", "Events on 2026-05-01 and 2026-04-01.", date(2026, time.May, 1)},
		{"repeated date", "2026-05-01 ... see you on 2026-05-01", date(2026, time.May, 1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, ExtractDate(tc.text))
		})
	}
}

func TestGuessRole(t *testing.T) {
	t.Parallel()

	require.Equal(t, RoleSAC, GuessRole([]string{"area chair"}, "https://x.org/track/senior-area-chairs"))
	require.Equal(t, RoleAC, GuessRole([]string{"area chair"}, "https://x.org/call"))
	require.Equal(t, RoleEmergencyReviewer, GuessRole([]string{"emergency reviewer", "program committee"}, ""))
	require.Equal(t, RoleExternalReviewer, GuessRole([]string{"external reviewer"}, "https://x.org/call"))
	require.Equal(t, RoleAEC, GuessRole([]string{"artifact evaluation"}, "https://x.org/call"))
	require.Equal(t, RoleSPC, GuessRole(nil, "https://x.org/senior-program-committee"))
	require.Equal(t, RolePC, GuessRole([]string{"program committee"}, "https://x.org/call"))
	require.Equal(t, RoleReviewer, GuessRole([]string{"reviewer"}, "https://icse.org/cfr"))
}

func TestDetectLabel(t *testing.T) {
	t.Parallel()

	require.Equal(t, LabelWorkshop, DetectLabel("https://sites.google.com/view/ws2026", nil))
	require.Equal(t, LabelWorkshop, DetectLabel("https://x.org/cfr", []string{"workshop"}))
	require.Equal(t, LabelIndustry, DetectLabel("https://x.org/industry-track/cfr", nil))
	require.Equal(t, LabelShadow, DetectLabel("https://x.org/shadow-pc", nil))
	require.Equal(t, LabelMain, DetectLabel("https://x.org/cfr", []string{"reviewer"}))
}

func TestFinalScoreAndDecision(t *testing.T) {
	t.Parallel()

	final := FinalScore(2, 3, 4)
	require.InDelta(t, 3.5, final, 1e-9)
	require.Equal(t, DecisionGrayZone, Decide(final))
	require.Equal(t, DecisionAccept, Decide(5))
	require.Equal(t, DecisionReject, Decide(1.99))
}
