package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
	"github.com/JakeFAU/reviewer-calls/internal/storage/memory"
)

var runID = uuid.MustParse("0190f0d2-0000-7000-8000-00000000abcd")

func sampleCandidates() []discovery.Candidate {
	day := discovery.NewDate(2027, time.March, 1)
	return []discovery.Candidate{
		{
			Conference:  "ICSE",
			Year:        2027,
			Role:        "Reviewer",
			URL:         "https://conf.example.org/icse2027/reviewers",
			Label:       "main",
			Date:        &day,
			SourceDepth: 1,
			Signals:     []string{"call for reviewers", "reviewer"},
			Scores:      discovery.Scores{Search: 20, Link: 4, Content: 6, Final: 17, Decision: "accept"},
		},
		{
			Conference:  "FSE",
			Year:        2027,
			Role:        "PC",
			URL:         "https://fse.example.org/pc",
			SourceDepth: 2,
			Scores:      discovery.Scores{Search: 1, Link: 1, Content: 2, Final: 1.6},
		},
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, time.October, 16, 6, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	eval := Build(runID, at, 5, sampleCandidates())

	require.Equal(t, runID, eval.RunID)
	require.Equal(t, time.UTC, eval.Timestamp.Location())
	require.Equal(t, 5, eval.ConferencesSearched)
	require.Equal(t, 2, eval.TotalCandidates)
	require.Equal(t, map[string]int{"accept": 1, "gray_zone": 0, "reject": 1}, eval.Decisions)

	require.Len(t, eval.Candidates, 2)
	first := eval.Candidates[0]
	require.InDelta(t, 24.0, first.GraphScore, 1e-9)
	require.InDelta(t, 20.0, first.SearchScore, 1e-9)
	require.InDelta(t, 6.0, first.ContentScore, 1e-9)
	require.Equal(t, []string{"call for reviewers", "reviewer"}, first.MatchedSignals)

	second := eval.Candidates[1]
	require.Equal(t, "reject", second.Decision, "missing decision is derived from the final score")
	require.NotNil(t, second.MatchedSignals)
	require.Empty(t, second.MatchedSignals)
}

func TestBuildEmpty(t *testing.T) {
	t.Parallel()

	eval := Build(runID, time.Now(), 0, nil)
	require.Zero(t, eval.TotalCandidates)
	require.NotNil(t, eval.Candidates)
	require.Len(t, eval.Decisions, 3)
}

func TestExportLocal(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "reports", "eval.json")
	eval := Build(runID, time.Date(2026, time.October, 16, 6, 0, 0, 0, time.UTC), 2, sampleCandidates())

	uri, err := Export(context.Background(), dest, eval)
	require.NoError(t, err)
	require.Equal(t, "file://"+dest, uri)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Equal(t, runID.String(), raw["run_id"])
	require.Equal(t, "2026-10-16T06:00:00Z", raw["timestamp"])
	require.EqualValues(t, 2, raw["total_candidates"])

	cands, ok := raw["candidates"].([]any)
	require.True(t, ok)
	require.Len(t, cands, 2)
	first, ok := cands[0].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "2027-03-01", first["date"])
	require.EqualValues(t, 24, first["graph_score"])
	require.Nil(t, cands[1].(map[string]any)["date"])
}

func TestExportRequiresDestination(t *testing.T) {
	t.Parallel()

	_, err := Export(context.Background(), "  ", Eval{})
	require.Error(t, err)
}

func TestPutMemory(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	eval := Build(runID, time.Date(2026, time.October, 16, 6, 0, 0, 0, time.UTC), 1, sampleCandidates()[:1])

	uri, err := Put(context.Background(), store, "eval/run.json", eval)
	require.NoError(t, err)
	require.Equal(t, "memory://eval/run.json", uri)

	body, contentType, ok := store.Object("eval/run.json")
	require.True(t, ok)
	require.Equal(t, "application/json", contentType)

	var decoded Eval
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, runID, decoded.RunID)
	require.Equal(t, 1, decoded.Decisions["accept"])
	require.Equal(t, "https://conf.example.org/icse2027/reviewers", decoded.Candidates[0].URL)
}
