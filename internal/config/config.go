// Package config loads and validates reviewer-calls configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/reviewer-calls/internal/analyzer"
	"github.com/JakeFAU/reviewer-calls/internal/catalog"
	"github.com/JakeFAU/reviewer-calls/internal/fetcher"
	"github.com/JakeFAU/reviewer-calls/internal/links"
	"github.com/JakeFAU/reviewer-calls/internal/search"
)

// EnvPrefix namespaces environment overrides, e.g. REVIEWERCALLS_FETCH_TIMEOUT.
const EnvPrefix = "REVIEWERCALLS"

// Search providers.
const (
	ProviderDuckDuckGo = "duckduckgo"
	ProviderSerper     = "serper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Data     DataConfig     `mapstructure:"data"`
	Search   SearchConfig   `mapstructure:"search"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Window   WindowConfig   `mapstructure:"window"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Report   ReportConfig   `mapstructure:"report"`
	DB       DBConfig       `mapstructure:"db"`
	Server   ServerConfig   `mapstructure:"server"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// DataConfig locates the catalog and the curated datasets.
type DataConfig struct {
	Catalog  string `mapstructure:"catalog"`
	Calls    string `mapstructure:"calls"`
	Rejected string `mapstructure:"rejected"`
}

// SearchConfig selects and throttles the web search provider.
type SearchConfig struct {
	Provider  string `mapstructure:"provider"`
	SerperKey string `mapstructure:"serper_key"`
	// Fallback chains DuckDuckGo behind Serper when a key is configured.
	Fallback    bool          `mapstructure:"fallback"`
	DateRange   string        `mapstructure:"date_range"`
	MaxResults  int           `mapstructure:"max_results"`
	MinInterval time.Duration `mapstructure:"min_interval"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// FetchConfig governs page retrieval.
type FetchConfig struct {
	UserAgent      string        `mapstructure:"user_agent"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	MaxBodyBytes   int           `mapstructure:"max_body_bytes"`
	PerHostRPS     float64       `mapstructure:"per_host_rps"`
	Burst          int           `mapstructure:"burst"`
	RespectRobots  bool          `mapstructure:"respect_robots"`
}

// CrawlConfig bounds the link graph explored per conference.
type CrawlConfig struct {
	MaxLinks     int      `mapstructure:"max_links"`
	MaxLinksL2   int      `mapstructure:"max_links_l2"`
	TrustedHosts []string `mapstructure:"trusted_hosts"`
	ScopedHosts  []string `mapstructure:"scoped_hosts"`
}

// ScoringConfig overrides the link keyword tables and the page heuristics.
// Empty tables keep the built-in ones.
type ScoringConfig struct {
	MinLinkScore float64            `mapstructure:"min_link_score"`
	Positive     map[string]float64 `mapstructure:"positive"`
	Negative     map[string]float64 `mapstructure:"negative"`
	Content      ContentConfig      `mapstructure:"content"`
}

// ContentConfig mirrors analyzer.Tables. Signal tables map a signal name to
// an RE2 pattern matched against lowercase page text.
type ContentConfig struct {
	High           map[string]string `mapstructure:"high"`
	Medium         map[string]string `mapstructure:"medium"`
	Labels         map[string]string `mapstructure:"labels"`
	ContextTerms   []string          `mapstructure:"context_terms"`
	StrongNegative []string          `mapstructure:"strong_negative"`
	WeakNegative   []string          `mapstructure:"weak_negative"`
	Recovery       []string          `mapstructure:"recovery"`
}

// WindowConfig is the recruitment window in months before a conference.
type WindowConfig struct {
	MinMonths int      `mapstructure:"min_months"`
	MaxMonths int      `mapstructure:"max_months"`
	Rolling   []string `mapstructure:"rolling"`
}

// PipelineConfig tunes the orchestrator.
type PipelineConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// NotifyConfig selects notification channels. Empty values disable a channel.
type NotifyConfig struct {
	Repo          string        `mapstructure:"repo"`
	Label         string        `mapstructure:"label"`
	Log           bool          `mapstructure:"log"`
	PubSubProject string        `mapstructure:"pubsub_project"`
	PubSubTopic   string        `mapstructure:"pubsub_topic"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// ReportConfig sets the default eval export destination.
type ReportConfig struct {
	Eval string `mapstructure:"eval"`
}

// DBConfig controls the optional run ledger.
type DBConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxConns        int32  `mapstructure:"max_conns"`
	RunsTable       string `mapstructure:"runs_table"`
	CandidatesTable string `mapstructure:"candidates_table"`
}

// ServerConfig controls the status HTTP server of `serve`.
type ServerConfig struct {
	Addr   string `mapstructure:"addr"`
	APIKey string `mapstructure:"api_key"`
}

// ScheduleConfig is the cron schedule of `serve`.
type ScheduleConfig struct {
	Spec       string `mapstructure:"spec"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Conventional names used by CI and local .env files.
	_ = v.BindEnv("search.serper_key", EnvPrefix+"_SEARCH_SERPER_KEY", "SERPER_API_KEY")
	_ = v.BindEnv("notify.repo", EnvPrefix+"_NOTIFY_REPO", "GITHUB_REPOSITORY")
	_ = v.BindEnv("db.dsn", EnvPrefix+"_DB_DSN", "DATABASE_URL")

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	trusted := links.DefaultTrusted()
	window := catalog.DefaultWindow()

	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("data.catalog", "data/conferences.yaml")
	v.SetDefault("data.calls", "data/calls.yaml")
	v.SetDefault("data.rejected", "data/rejected_urls.yaml")
	v.SetDefault("search.provider", ProviderDuckDuckGo)
	v.SetDefault("search.fallback", true)
	v.SetDefault("search.date_range", "m")
	v.SetDefault("search.max_results", 10)
	v.SetDefault("search.min_interval", 2*time.Second)
	v.SetDefault("search.cooldown", 30*time.Second)
	v.SetDefault("search.timeout", 15*time.Second)
	v.SetDefault("fetch.user_agent", fetcher.DefaultUserAgent)
	v.SetDefault("fetch.timeout", 20*time.Second)
	v.SetDefault("fetch.max_retries", 2)
	v.SetDefault("fetch.max_concurrency", 8)
	v.SetDefault("fetch.max_body_bytes", 2<<20)
	v.SetDefault("fetch.per_host_rps", 1.0)
	v.SetDefault("fetch.burst", 2)
	v.SetDefault("fetch.respect_robots", true)
	v.SetDefault("crawl.max_links", 15)
	v.SetDefault("crawl.max_links_l2", 20)
	v.SetDefault("crawl.trusted_hosts", trusted.Hosts)
	v.SetDefault("crawl.scoped_hosts", trusted.ScopedHosts)
	v.SetDefault("scoring.min_link_score", 0.0)
	v.SetDefault("window.min_months", window.MinMonths)
	v.SetDefault("window.max_months", window.MaxMonths)
	v.SetDefault("window.rolling", window.Rolling)
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.timeout", 30*time.Minute)
	v.SetDefault("notify.log", true)
	v.SetDefault("notify.timeout", 30*time.Second)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("schedule.spec", "0 6 * * *")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Data.Catalog == "" {
		return fmt.Errorf("data.catalog must be set")
	}
	if c.Data.Calls == "" {
		return fmt.Errorf("data.calls must be set")
	}
	switch c.Search.Provider {
	case ProviderDuckDuckGo:
	case ProviderSerper:
		if c.Search.SerperKey == "" {
			return fmt.Errorf("search.serper_key must be set when search.provider is serper")
		}
	default:
		return fmt.Errorf("search.provider must be %s or %s, got %q", ProviderDuckDuckGo, ProviderSerper, c.Search.Provider)
	}
	if _, err := search.ParseDateRange(c.Search.DateRange); err != nil {
		return fmt.Errorf("search.date_range: %w", err)
	}
	if c.Search.MinInterval < 0 || c.Search.Cooldown < 0 {
		return fmt.Errorf("search.min_interval and search.cooldown must be >= 0")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be > 0")
	}
	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries must be >= 0")
	}
	if c.Fetch.MaxConcurrency <= 0 {
		return fmt.Errorf("fetch.max_concurrency must be > 0")
	}
	if c.Crawl.MaxLinks <= 0 || c.Crawl.MaxLinksL2 <= 0 {
		return fmt.Errorf("crawl.max_links and crawl.max_links_l2 must be > 0")
	}
	if c.Window.MinMonths < 0 || c.Window.MaxMonths < c.Window.MinMonths {
		return fmt.Errorf("window must satisfy 0 <= min_months <= max_months")
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("pipeline.concurrency must be > 0")
	}
	if c.Pipeline.Timeout < 0 {
		return fmt.Errorf("pipeline.timeout must be >= 0")
	}
	if (c.Notify.PubSubProject == "") != (c.Notify.PubSubTopic == "") {
		return fmt.Errorf("notify.pubsub_project and notify.pubsub_topic must be set together")
	}
	return nil
}

// DateRange returns the parsed search date range. Call after Validate.
func (c Config) DateRange() search.DateRange {
	dr, _ := search.ParseDateRange(c.Search.DateRange)
	return dr
}

// RecruitWindow converts the window section.
func (c Config) RecruitWindow() catalog.Window {
	return catalog.Window{
		MinMonths: c.Window.MinMonths,
		MaxMonths: c.Window.MaxMonths,
		Rolling:   c.Window.Rolling,
	}
}

// Trusted converts the crawl host lists.
func (c Config) Trusted() links.Trusted {
	return links.Trusted{Hosts: c.Crawl.TrustedHosts, ScopedHosts: c.Crawl.ScopedHosts}
}

// Scorer builds the link scorer, falling back to the built-in tables.
func (c Config) Scorer() (*links.Scorer, error) {
	positive := links.DefaultPositive()
	if len(c.Scoring.Positive) > 0 {
		positive = links.RulesFromMap(c.Scoring.Positive)
	}
	negative := links.DefaultNegative()
	if len(c.Scoring.Negative) > 0 {
		negative = links.RulesFromMap(c.Scoring.Negative)
	}
	scorer, err := links.NewScorer(positive, negative, links.DefaultWeights())
	if err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}
	return scorer, nil
}

// Analyzer builds the page analyzer. Each table left empty keeps its
// built-in default.
func (c Config) Analyzer() (*analyzer.Analyzer, error) {
	content := c.Scoring.Content
	tables := analyzer.DefaultTables()
	if len(content.High) > 0 {
		tables.High = analyzer.SignalsFromMap(content.High)
	}
	if len(content.Medium) > 0 {
		tables.Medium = analyzer.SignalsFromMap(content.Medium)
	}
	if len(content.Labels) > 0 {
		tables.Labels = analyzer.SignalsFromMap(content.Labels)
	}
	if len(content.ContextTerms) > 0 {
		tables.ContextTerms = content.ContextTerms
	}
	if len(content.StrongNegative) > 0 {
		tables.StrongNegative = content.StrongNegative
	}
	if len(content.WeakNegative) > 0 {
		tables.WeakNegative = content.WeakNegative
	}
	if len(content.Recovery) > 0 {
		tables.Recovery = content.Recovery
	}
	a, err := analyzer.New(tables)
	if err != nil {
		return nil, fmt.Errorf("scoring.content: %w", err)
	}
	return a, nil
}
