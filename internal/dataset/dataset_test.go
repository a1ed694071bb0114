package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

const existingCalls = `# old header
calls:
  - conference: ICSE
    year: 2026
    role: Reviewer
    url: https://icse.org/old
    date: 2025-06-01
    confirmed: true
    notes: keep me
  - conference: FSE
    year: 2026
    role: PC
    urls:
      - url: https://fse.org/a
      - url: https://fse.org/b
    date: null
    confirmed: false
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCallsMissingFile(t *testing.T) {
	t.Parallel()

	c, err := LoadCalls(filepath.Join(t.TempDir(), "calls.yaml"))
	require.NoError(t, err)
	require.Zero(t, c.Len())
	cands, err := c.Candidates()
	require.NoError(t, err)
	require.Empty(t, cands)
}

func TestLoadCallsExpandsURLList(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "calls.yaml", existingCalls)
	c, err := LoadCalls(path)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	cands, err := c.Candidates()
	require.NoError(t, err)
	require.Len(t, cands, 3)
	require.Equal(t, "https://icse.org/old", cands[0].URL)
	require.True(t, cands[0].Confirmed)
	require.Equal(t, "2025-06-01", cands[0].Date.String())
	require.Equal(t, "https://fse.org/a", cands[1].URL)
	require.Equal(t, "https://fse.org/b", cands[2].URL)
	require.Nil(t, cands[2].Date)
}

func TestWriteOrdersBacksUpAndPreservesFields(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "calls.yaml", existingCalls)
	c, err := LoadCalls(path)
	require.NoError(t, err)

	newer := discovery.NewDate(2026, time.January, 5)
	older := discovery.NewDate(2024, time.December, 1)
	require.NoError(t, c.Add([]discovery.Candidate{
		{Conference: "ICSE", Year: 2026, Role: "PC", URL: "https://icse.org/older", Date: &older, DiscoveryScore: 9},
		{Conference: "ICSE", Year: 2026, Role: "Reviewer", URL: "https://icse.org/new", Label: "Main", Date: &newer},
		{Conference: "ASE", Year: 2026, Role: "Reviewer", URL: "https://ase.org/undated"},
	}))
	require.NoError(t, c.Write())

	backup, err := os.ReadFile(path + BackupSuffix)
	require.NoError(t, err)
	require.Equal(t, existingCalls, string(backup))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	require.True(t, strings.HasPrefix(out, Header))
	require.NotContains(t, out, "# old header")
	require.Contains(t, out, "notes: keep me")
	require.NotContains(t, out, "discovery_score")

	reloaded, err := LoadCalls(path)
	require.NoError(t, err)
	cands, err := reloaded.Candidates()
	require.NoError(t, err)
	urls := make([]string, 0, len(cands))
	for _, cand := range cands {
		urls = append(urls, cand.URL)
	}
	require.Equal(t, []string{
		"https://icse.org/new",
		"https://icse.org/old",
		"https://icse.org/older",
		"https://ase.org/undated",
		"https://fse.org/a",
		"https://fse.org/b",
	}, urls)
	require.False(t, cands[0].Confirmed)
	require.Equal(t, "Main", cands[0].Label)
}

func TestWriteCreatesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "calls.yaml")
	c, err := LoadCalls(path)
	require.NoError(t, err)
	require.NoError(t, c.Add([]discovery.Candidate{{Conference: "ICSE", Year: 2026, Role: "Reviewer", URL: "https://icse.org/r"}}))
	require.NoError(t, c.Write())

	_, err = os.Stat(path + BackupSuffix)
	require.ErrorIs(t, err, os.ErrNotExist)

	reloaded, err := LoadCalls(path)
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.Len())
}

func TestLoadCallsRejectsBadShape(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "calls.yaml", "calls: nope\n")
	_, err := LoadCalls(path)
	require.ErrorContains(t, err, "must be a list")
}

func TestLoadRejected(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "rejected_urls.yaml", `rejected_urls:
  - https://bare.example.org/x
  - url: https://full.example.org/y
    conference: ICSE
    reason: code of conduct page
    rejected_at: 2026-01-02
    expires_at: 2027-01-02
`)
	got, err := LoadRejected(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "https://bare.example.org/x", got[0].URL)
	require.Equal(t, "ICSE", got[1].Conference)
	require.Equal(t, "2027-01-02", got[1].ExpiresAt.String())

	none, err := LoadRejected(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	require.Empty(t, none)
}
