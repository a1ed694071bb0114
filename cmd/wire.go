package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gpubsub "cloud.google.com/go/pubsub"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/reviewer-calls/internal/app"
	"github.com/JakeFAU/reviewer-calls/internal/clock/system"
	"github.com/JakeFAU/reviewer-calls/internal/config"
	"github.com/JakeFAU/reviewer-calls/internal/fetcher"
	idgen "github.com/JakeFAU/reviewer-calls/internal/id/uuid"
	"github.com/JakeFAU/reviewer-calls/internal/notify"
	"github.com/JakeFAU/reviewer-calls/internal/pipeline"
	"github.com/JakeFAU/reviewer-calls/internal/policy/ratelimit"
	"github.com/JakeFAU/reviewer-calls/internal/policy/robots"
	"github.com/JakeFAU/reviewer-calls/internal/progress"
	"github.com/JakeFAU/reviewer-calls/internal/progress/sinks"
	pubsubpublisher "github.com/JakeFAU/reviewer-calls/internal/publisher/pubsub"
	"github.com/JakeFAU/reviewer-calls/internal/search"
	"github.com/JakeFAU/reviewer-calls/internal/storage/postgres"
	"github.com/JakeFAU/reviewer-calls/internal/store"
)

// services holds the long-lived collaborators of one command invocation.
type services struct {
	app        *app.App
	hub        *progress.Hub
	status     *sinks.StatusSink
	dispatcher *notify.Dispatcher
	runs       store.RunRepository
	publisher  *pubsubpublisher.Publisher
	pubsub     *gpubsub.Client
	logger     *zap.Logger
}

// buildSearch assembles the throttled provider chain. Serper is preferred
// when configured, with DuckDuckGo behind it when fallback is on.
func buildSearch(cfg config.Config, logger *zap.Logger) (search.Provider, error) {
	client := &http.Client{Timeout: cfg.Search.Timeout}
	throttle := search.ThrottleConfig{MinInterval: cfg.Search.MinInterval, Cooldown: cfg.Search.Cooldown}
	ddg := search.NewThrottled(search.NewDuckDuckGo(search.DuckDuckGoConfig{
		UserAgent:  cfg.Fetch.UserAgent,
		MaxResults: cfg.Search.MaxResults,
		Client:     client,
	}), throttle, logger)
	if cfg.Search.Provider != config.ProviderSerper {
		return ddg, nil
	}
	serper, err := search.NewSerper(search.SerperConfig{
		APIKey:     cfg.Search.SerperKey,
		MaxResults: cfg.Search.MaxResults,
		Client:     client,
	})
	if err != nil {
		return nil, fmt.Errorf("init serper: %w", err)
	}
	primary := search.NewThrottled(serper, search.ThrottleConfig{Cooldown: cfg.Search.Cooldown}, logger)
	if !cfg.Search.Fallback {
		return primary, nil
	}
	return search.NewFallback(logger, primary, ddg), nil
}

func buildFetcher(cfg config.Config, logger *zap.Logger) *fetcher.Fetcher {
	return fetcher.New(fetcher.Config{
		UserAgent:   cfg.Fetch.UserAgent,
		MaxBodySize: cfg.Fetch.MaxBodyBytes,
		Robots:      robots.New(cfg.Fetch.RespectRobots, cfg.Fetch.UserAgent, nil, logger),
		Limiter:     ratelimit.New(ratelimit.Config{PerHostRPS: cfg.Fetch.PerHostRPS, Burst: cfg.Fetch.Burst}),
		Retry:       fetcher.NewRetryPolicy(),
		Logger:      logger.Named("fetcher"),
		Clock:       system.New(),
	})
}

func pipelineConfig(cfg config.Config) pipeline.Config {
	return pipeline.Config{
		Concurrency:  cfg.Pipeline.Concurrency,
		DateRange:    cfg.DateRange(),
		MaxLinks:     cfg.Crawl.MaxLinks,
		MaxLinksL2:   cfg.Crawl.MaxLinksL2,
		MinLinkScore: cfg.Scoring.MinLinkScore,
		Fetch: fetcher.Options{
			MaxConcurrency: cfg.Fetch.MaxConcurrency,
			Timeout:        cfg.Fetch.Timeout,
			MaxRetries:     cfg.Fetch.MaxRetries,
		},
		Timeout: cfg.Pipeline.Timeout,
		Trusted: cfg.Trusted(),
	}
}

// buildProgress starts the hub with log, metrics and status sinks. A metrics
// sink that is already registered in this process is skipped.
func buildProgress(logger *zap.Logger) (*progress.Hub, *sinks.StatusSink) {
	status := sinks.NewStatusSink()
	hubSinks := []progress.Sink{sinks.NewLogSink(logger.Named("progress")), status}
	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			logger.Warn("progress metrics disabled", zap.Error(err))
		}
	} else {
		hubSinks = append(hubSinks, promSink)
	}
	return progress.NewHub(progress.Config{Logger: logger}, hubSinks...), status
}

// buildNotifiers returns the configured channels and the issue tracker used
// for known URLs, which is nil when no repository is set.
func (s *services) buildNotifiers(ctx context.Context, cfg config.Config) ([]notify.Notifier, *notify.GitHub, error) {
	var notifiers []notify.Notifier
	if cfg.Notify.Log {
		notifiers = append(notifiers, notify.NewLog(s.logger.Named("notify")))
	}
	var tracker *notify.GitHub
	if gh := notify.NewGitHub(notify.GitHubConfig{Repo: cfg.Notify.Repo, Label: cfg.Notify.Label}, s.logger); gh.Enabled() {
		tracker = gh
		notifiers = append(notifiers, gh)
	}
	if cfg.Notify.PubSubProject != "" {
		client, err := gpubsub.NewClient(ctx, cfg.Notify.PubSubProject)
		if err != nil {
			return nil, nil, fmt.Errorf("create pubsub client: %w", err)
		}
		s.pubsub = client
		s.publisher = pubsubpublisher.New(client)
		notifiers = append(notifiers, notify.NewPublish(s.publisher, cfg.Notify.PubSubTopic))
	}
	return notifiers, tracker, nil
}

// newServices wires every collaborator of a discovery run. The ledger is
// optional: a database that cannot be reached is logged and skipped.
func newServices(ctx context.Context, cfg config.Config, logger *zap.Logger) (*services, error) {
	s := &services{logger: logger}

	provider, err := buildSearch(cfg, logger.Named("search"))
	if err != nil {
		return nil, err
	}
	scorer, err := cfg.Scorer()
	if err != nil {
		return nil, err
	}
	contentAnalyzer, err := cfg.Analyzer()
	if err != nil {
		return nil, err
	}
	s.hub, s.status = buildProgress(logger)

	clock := system.New()
	orchestrator, err := pipeline.New(pipelineConfig(cfg), pipeline.Deps{
		Search:   provider,
		Fetcher:  buildFetcher(cfg, logger),
		Scorer:   scorer,
		Analyzer: contentAnalyzer,
		Progress: s.hub,
		Clock:    clock,
		Logger:   logger.Named("pipeline"),
	})
	if err != nil {
		s.close(ctx)
		return nil, err
	}

	notifiers, tracker, err := s.buildNotifiers(ctx, cfg)
	if err != nil {
		s.close(ctx)
		return nil, err
	}
	s.dispatcher = notify.NewDispatcher(logger.Named("notify"), cfg.Notify.Timeout, notifiers...)

	if cfg.DB.DSN != "" {
		runStore, err := postgres.NewRunStore(ctx, postgres.Config{
			DSN:             cfg.DB.DSN,
			RunsTable:       cfg.DB.RunsTable,
			CandidatesTable: cfg.DB.CandidatesTable,
			MaxConns:        cfg.DB.MaxConns,
		})
		if err != nil {
			logger.Warn("Run ledger unavailable, continuing without it", zap.Error(err))
		} else {
			s.runs = runStore
		}
	}

	deps := app.Deps{
		Paths:    app.Paths{Catalog: cfg.Data.Catalog, Calls: cfg.Data.Calls, Rejected: cfg.Data.Rejected},
		Pipeline: orchestrator,
		Notifier: s.dispatcher,
		Progress: s.hub,
		Clock:    clock,
		IDs:      idgen.New(),
		Logger:   logger.Named("app"),
	}
	if tracker != nil {
		deps.Known = tracker
	}
	if s.runs != nil {
		deps.Runs = s.runs
	}
	s.app, err = app.New(deps)
	if err != nil {
		s.close(ctx)
		return nil, err
	}
	return s, nil
}

// close drains notifications and progress events, then releases clients.
func (s *services) close(ctx context.Context) {
	if s.dispatcher != nil {
		if err := s.dispatcher.Wait(ctx); err != nil {
			s.logger.Warn("Notifications still in flight at shutdown", zap.Error(err))
		}
	}
	if s.publisher != nil {
		s.publisher.Stop()
	}
	if s.pubsub != nil {
		if err := s.pubsub.Close(); err != nil {
			s.logger.Warn("Failed to close pubsub client", zap.Error(err))
		}
	}
	if s.hub != nil {
		if err := s.hub.Close(ctx); err != nil {
			s.logger.Warn("Failed to close progress hub", zap.Error(err))
		}
	}
	if s.runs != nil {
		s.runs.Close()
	}
}
