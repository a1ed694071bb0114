package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

const sampleCatalog = `
conferences:
  - short: icse
    name: International Conference on Software Engineering
    domain: conf.researchr.org
    area: SE
    rank: {ccf: A, core: A*}
    conf_date: 4
  - short: KDD
    name: Knowledge Discovery and Data Mining
    domain: kdd.org
    area: DB
    rank: {ccf: A, core: A*}
    conf_date: [2, 8]
  - short: SIGMOD
    name: Management of Data
    domain: sigmod.org
    area: DB
    rank: {ccf: A, core: A*}
    next_date: 2026-06-20
`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conferences.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	cat, err := Load(writeCatalog(t, sampleCatalog))
	require.NoError(t, err)
	require.Equal(t, 3, cat.Len())

	icse, ok := cat.Lookup("ICSE")
	require.True(t, ok)
	require.Equal(t, "ICSE", icse.Short)
	require.Equal(t, discovery.MonthList{4}, icse.ConfMonths)

	kdd, ok := cat.Lookup("kdd")
	require.True(t, ok)
	require.Equal(t, discovery.MonthList{2, 8}, kdd.ConfMonths)

	sigmod, ok := cat.Lookup("SIGMOD")
	require.True(t, ok)
	require.NotNil(t, sigmod.NextDate)
	require.Equal(t, "2026-06-20", sigmod.NextDate.String())
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, discovery.ErrCatalogUnavailable)
}

func TestParseRejectsInvalidRecords(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`
conferences:
  - short: X
    name: Bad Area
    domain: x.org
    area: ZZ
`))
	require.Error(t, err)

	_, err = Parse([]byte(`
conferences:
  - short: X
    name: Bad Domain
    domain: "not a host"
`))
	require.Error(t, err)

	_, err = Parse([]byte(`
conferences:
  - {short: X, name: One, domain: x.org}
  - {short: x, name: Two, domain: y.org}
`))
	require.ErrorContains(t, err, "duplicate short name")
}

func TestInWindowExplicitDateBoundaries(t *testing.T) {
	t.Parallel()

	today := time.Date(2026, time.January, 15, 9, 30, 0, 0, time.UTC)
	mk := func(short string, y int, m time.Month, d int) discovery.Conference {
		date := discovery.NewDate(y, m, d)
		return discovery.Conference{Short: short, Name: short, Domain: "example.org", NextDate: &date}
	}
	cat, err := New([]discovery.Conference{
		mk("TOOSOON", 2026, time.March, 14),
		mk("LOW", 2026, time.March, 15),
		mk("MID", 2026, time.July, 1),
		mk("HIGH", 2026, time.November, 15),
		mk("TOOLATE", 2026, time.November, 16),
	})
	require.NoError(t, err)

	got := cat.InWindow(today, Window{MinMonths: 2, MaxMonths: 10})
	require.Equal(t, []string{"LOW", "MID", "HIGH"}, shorts(got))
}

func TestInWindowMonthsRollingAndUnknown(t *testing.T) {
	t.Parallel()

	today := time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC)
	cat, err := New([]discovery.Conference{
		{Short: "FEB", Name: "f", Domain: "f.org", ConfMonths: discovery.MonthList{2}},
		{Short: "MAR", Name: "m", Domain: "m.org", ConfMonths: discovery.MonthList{3}},
		{Short: "NOV", Name: "n", Domain: "n.org", ConfMonths: discovery.MonthList{11}},
		{Short: "DEC", Name: "d", Domain: "d.org", ConfMonths: discovery.MonthList{12}},
		{Short: "MULTI", Name: "x", Domain: "x.org", ConfMonths: discovery.MonthList{1, 6}},
		{Short: "UNKNOWN", Name: "u", Domain: "u.org"},
		{Short: "ICLR", Name: "i", Domain: "iclr.cc", ConfMonths: discovery.MonthList{2}},
	})
	require.NoError(t, err)

	got := cat.InWindow(today, DefaultWindow())
	require.Equal(t, []string{"MAR", "NOV", "MULTI", "UNKNOWN", "ICLR"}, shorts(got))
}

func TestAddMonthsClamps(t *testing.T) {
	t.Parallel()

	require.Equal(t, "2026-09-30", AddMonths(discovery.NewDate(2026, time.August, 31), 1).String())
	require.Equal(t, "2027-02-28", AddMonths(discovery.NewDate(2026, time.December, 31), 2).String())
	require.Equal(t, "2026-03-15", AddMonths(discovery.NewDate(2026, time.January, 15), 2).String())
}

func TestFilterApply(t *testing.T) {
	t.Parallel()

	cat, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)
	all := cat.All()

	require.Equal(t, []string{"KDD", "SIGMOD"}, shorts(Filter{Area: "db"}.Apply(all)))
	require.Equal(t, []string{"ICSE"}, shorts(Filter{Short: "icse"}.Apply(all)))
	require.Equal(t, []string{"ICSE", "KDD"}, shorts(Filter{CCF: "A", Limit: 2}.Apply(all)))
	require.Empty(t, Filter{CORE: "B"}.Apply(all))
	require.True(t, ValidArea("se"))
	require.False(t, ValidArea("XX"))
	require.True(t, ValidRank("b"))
	require.False(t, ValidRank("A*"))
}

func shorts(confs []discovery.Conference) []string {
	out := make([]string, 0, len(confs))
	for _, c := range confs {
		out = append(out, c.Short)
	}
	return out
}
