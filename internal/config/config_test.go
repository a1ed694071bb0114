package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JakeFAU/reviewer-calls/internal/analyzer"
	"github.com/JakeFAU/reviewer-calls/internal/fetcher"
	"github.com/JakeFAU/reviewer-calls/internal/search"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
logging:
  development: true
  level: debug
data:
  catalog: /srv/data/conferences.yaml
  calls: /srv/data/calls.yaml
search:
  provider: serper
  serper_key: key-123
  date_range: year
  min_interval: 500ms
fetch:
  user_agent: test-agent
  timeout: 5s
  max_retries: 4
  per_host_rps: 0.5
crawl:
  max_links: 5
  max_links_l2: 7
  trusted_hosts: [conf.example.org]
scoring:
  min_link_score: 1.5
  positive:
    reviewer: 4
window:
  min_months: 1
  max_months: 12
  rolling: [ICLR]
pipeline:
  concurrency: 2
  timeout: 10m
notify:
  repo: owner/calls
  pubsub_project: proj
  pubsub_topic: candidates
report:
  eval: gs://bucket/eval.json
db:
  dsn: postgres://localhost/calls
server:
  addr: ":9090"
  api_key: secret
schedule:
  spec: "@daily"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.Logging.Development || cfg.Logging.Level != "debug" {
		t.Fatalf("expected logging overrides, got %+v", cfg.Logging)
	}
	if cfg.Data.Catalog != "/srv/data/conferences.yaml" || cfg.Data.Rejected != "data/rejected_urls.yaml" {
		t.Fatalf("expected data overrides with rejected default, got %+v", cfg.Data)
	}
	if cfg.Search.Provider != ProviderSerper || cfg.Search.SerperKey != "key-123" {
		t.Fatalf("expected serper provider, got %+v", cfg.Search)
	}
	if cfg.DateRange() != search.DateRangeYear {
		t.Fatalf("expected year date range, got %v", cfg.DateRange())
	}
	if cfg.Search.MinInterval != 500*time.Millisecond {
		t.Fatalf("expected 500ms min interval, got %v", cfg.Search.MinInterval)
	}
	if cfg.Fetch.Timeout != 5*time.Second || cfg.Fetch.MaxRetries != 4 || cfg.Fetch.PerHostRPS != 0.5 {
		t.Fatalf("expected fetch overrides, got %+v", cfg.Fetch)
	}
	if cfg.Crawl.MaxLinks != 5 || cfg.Crawl.MaxLinksL2 != 7 {
		t.Fatalf("expected crawl overrides, got %+v", cfg.Crawl)
	}
	if trusted := cfg.Trusted(); len(trusted.Hosts) != 1 || trusted.Hosts[0] != "conf.example.org" {
		t.Fatalf("expected trusted hosts override, got %+v", trusted)
	}
	if w := cfg.RecruitWindow(); w.MinMonths != 1 || w.MaxMonths != 12 || len(w.Rolling) != 1 {
		t.Fatalf("expected window overrides, got %+v", w)
	}
	if cfg.Pipeline.Concurrency != 2 || cfg.Pipeline.Timeout != 10*time.Minute {
		t.Fatalf("expected pipeline overrides, got %+v", cfg.Pipeline)
	}
	if cfg.Notify.Repo != "owner/calls" || cfg.Notify.PubSubTopic != "candidates" {
		t.Fatalf("expected notify overrides, got %+v", cfg.Notify)
	}
	if cfg.Report.Eval != "gs://bucket/eval.json" || cfg.DB.DSN == "" {
		t.Fatalf("expected report and db overrides")
	}
	if cfg.Server.Addr != ":9090" || cfg.Schedule.Spec != "@daily" {
		t.Fatalf("expected server and schedule overrides, got %+v %+v", cfg.Server, cfg.Schedule)
	}
	if _, err := cfg.Scorer(); err != nil {
		t.Fatalf("Scorer() error = %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Search.Provider != ProviderDuckDuckGo || cfg.DateRange() != search.DateRangeMonth {
		t.Fatalf("expected duckduckgo with month range, got %+v", cfg.Search)
	}
	if cfg.Crawl.MaxLinks != 15 || cfg.Crawl.MaxLinksL2 != 20 {
		t.Fatalf("expected default link caps, got %+v", cfg.Crawl)
	}
	if cfg.Window.MinMonths != 2 || cfg.Window.MaxMonths != 10 || len(cfg.Window.Rolling) == 0 {
		t.Fatalf("expected default window, got %+v", cfg.Window)
	}
	if cfg.Pipeline.Timeout != 30*time.Minute {
		t.Fatalf("expected 30m pipeline timeout, got %v", cfg.Pipeline.Timeout)
	}
	if !cfg.Fetch.RespectRobots {
		t.Fatal("expected robots.txt to be respected by default")
	}
	if cfg.Schedule.Spec != "0 6 * * *" {
		t.Fatalf("expected daily schedule, got %q", cfg.Schedule.Spec)
	}
	if cfg.Fetch.UserAgent != fetcher.DefaultUserAgent {
		t.Fatalf("expected fetcher default user agent, got %q", cfg.Fetch.UserAgent)
	}
	if _, err := cfg.Analyzer(); err != nil {
		t.Fatalf("Analyzer() error = %v", err)
	}
}

func TestAnalyzerFromContentTables(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
scoring:
  content:
    high:
      open call: "open call for (?:reviewers|referees)"
    medium:
      referee: "\\breferees?\\b"
    labels:
      tutorial: "\\btutorials?\\b"
    context_terms: [form]
    strong_negative: [hotel booking]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	a, err := cfg.Analyzer()
	if err != nil {
		t.Fatalf("Analyzer() error = %v", err)
	}

	got := a.AnalyzeText("Open call for referees. Use the form.")
	if !got.IsCandidate || len(got.Signals) != 2 || got.Signals[0] != "open call" || got.Signals[1] != "referee" {
		t.Fatalf("expected configured signals, got %+v", got)
	}
	if got := a.AnalyzeText("Tutorial proposals: use the form."); got.IsCandidate {
		t.Fatalf("expected label-only text to be rejected, got %+v", got)
	}
	if got := a.AnalyzeText("Open call for referees. Hotel booking closes soon."); got.IsCandidate {
		t.Fatalf("expected configured strong negative to veto, got %+v", got)
	}
	// Tables left out keep the built-in heuristics.
	if got := a.AnalyzeText("Call for papers. Open call for referees."); got.Score >= analyzer.HighWeight {
		t.Fatalf("expected built-in weak negative to apply, got %+v", got)
	}
}

func TestAnalyzerRejectsBadPattern(t *testing.T) {
	t.Parallel()

	cfg := Config{Scoring: ScoringConfig{Content: ContentConfig{High: map[string]string{"broken": "(("}}}}
	if _, err := cfg.Analyzer(); err == nil || !strings.Contains(err.Error(), "scoring.content") {
		t.Fatalf("Analyzer() error = %v, want scoring.content error", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("REVIEWERCALLS_CRAWL_MAX_LINKS", "9")
	t.Setenv("REVIEWERCALLS_SEARCH_PROVIDER", "serper")
	t.Setenv("SERPER_API_KEY", "from-env")
	t.Setenv("GITHUB_REPOSITORY", "owner/repo")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Crawl.MaxLinks != 9 {
		t.Fatalf("expected env max_links 9, got %d", cfg.Crawl.MaxLinks)
	}
	if cfg.Search.SerperKey != "from-env" {
		t.Fatalf("expected serper key from SERPER_API_KEY, got %q", cfg.Search.SerperKey)
	}
	if cfg.Notify.Repo != "owner/repo" {
		t.Fatalf("expected repo from GITHUB_REPOSITORY, got %q", cfg.Notify.Repo)
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"catalog", func(c *Config) { c.Data.Catalog = "" }, "data.catalog"},
		{"provider", func(c *Config) { c.Search.Provider = "bing" }, "search.provider"},
		{"serper key", func(c *Config) { c.Search.Provider = ProviderSerper; c.Search.SerperKey = "" }, "serper_key"},
		{"date range", func(c *Config) { c.Search.DateRange = "decade" }, "search.date_range"},
		{"fetch timeout", func(c *Config) { c.Fetch.Timeout = 0 }, "fetch.timeout"},
		{"retries", func(c *Config) { c.Fetch.MaxRetries = -1 }, "fetch.max_retries"},
		{"max links", func(c *Config) { c.Crawl.MaxLinks = 0 }, "crawl.max_links"},
		{"window", func(c *Config) { c.Window.MinMonths = 11 }, "window"},
		{"concurrency", func(c *Config) { c.Pipeline.Concurrency = 0 }, "pipeline.concurrency"},
		{"pubsub", func(c *Config) { c.Notify.PubSubTopic = "topic" }, "pubsub"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestScorerRejectsBadRule(t *testing.T) {
	t.Parallel()

	cfg := Config{Scoring: ScoringConfig{Negative: map[string]float64{" - ": -1}}}
	if _, err := cfg.Scorer(); err == nil {
		t.Fatal("expected empty pattern error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
