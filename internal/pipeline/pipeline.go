package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/reviewer-calls/internal/analyzer"
	"github.com/JakeFAU/reviewer-calls/internal/discovery"
	"github.com/JakeFAU/reviewer-calls/internal/fetcher"
	"github.com/JakeFAU/reviewer-calls/internal/links"
	"github.com/JakeFAU/reviewer-calls/internal/progress"
	"github.com/JakeFAU/reviewer-calls/internal/search"
)

// Outcome is how a conference left the pipeline.
type Outcome string

// Conference outcomes.
const (
	OutcomeCompleted   Outcome = "completed"
	OutcomeNoSeeds     Outcome = "no_seeds"
	OutcomeFailed      Outcome = "failed"
	OutcomeInterrupted Outcome = "interrupted"
	OutcomeSkipped     Outcome = "skipped"
)

// errSearchUnavailable marks a conference whose every search call failed.
var errSearchUnavailable = errors.New("search unavailable")

// ConferenceOutcome records one conference's run.
type ConferenceOutcome struct {
	Conference string
	Year       int
	Outcome    Outcome
	// Reached is the last state entered before Done.
	Reached    State
	Candidates int
	Err        error
}

// Report is the result of a run. Candidates are grouped per conference in
// input order.
type Report struct {
	Candidates  []discovery.Candidate
	Outcomes    []ConferenceOutcome
	Completed   int
	Interrupted int
	Skipped     int
}

// PageFetcher retrieves pages in bulk; *fetcher.Fetcher satisfies it.
type PageFetcher interface {
	FetchAll(ctx context.Context, urls []string, opts fetcher.Options) map[string]fetcher.Result
}

// Config tunes the orchestrator. Zero values select defaults.
type Config struct {
	// Concurrency bounds how many conferences run at once.
	Concurrency  int
	DateRange    search.DateRange
	MaxLinks     int
	MaxLinksL2   int
	MinLinkScore float64
	Fetch        fetcher.Options
	// Timeout bounds the whole run; zero disables it.
	Timeout time.Duration
	Trusted links.Trusted
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		Concurrency: 4,
		DateRange:   search.DateRangeMonth,
		MaxLinks:    15,
		MaxLinksL2:  20,
		Fetch:       fetcher.DefaultOptions(),
		Timeout:     30 * time.Minute,
		Trusted:     links.DefaultTrusted(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.MaxLinks <= 0 {
		c.MaxLinks = def.MaxLinks
	}
	if c.MaxLinksL2 <= 0 {
		c.MaxLinksL2 = def.MaxLinksL2
	}
	if c.Fetch.MaxConcurrency <= 0 {
		c.Fetch.MaxConcurrency = def.Fetch.MaxConcurrency
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = def.Fetch.Timeout
	}
	if len(c.Trusted.Hosts) == 0 && len(c.Trusted.ScopedHosts) == 0 {
		c.Trusted = def.Trusted
	}
	return c
}

// Deps are the orchestrator's collaborators. Search and Fetcher are required.
type Deps struct {
	Search   search.Provider
	Fetcher  PageFetcher
	Scorer   *links.Scorer
	Analyzer *analyzer.Analyzer
	Progress progress.Emitter
	Clock    discovery.Clock
	Logger   *zap.Logger
}

// Orchestrator drives conferences through the discovery pipeline.
type Orchestrator struct {
	cfg      Config
	search   search.Provider
	fetcher  PageFetcher
	scorer   *links.Scorer
	analyzer *analyzer.Analyzer
	progress progress.Emitter
	clock    discovery.Clock
	logger   *zap.Logger
}

// New validates deps and builds an Orchestrator.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.Search == nil {
		return nil, errors.New("pipeline: search provider is required")
	}
	if deps.Fetcher == nil {
		return nil, errors.New("pipeline: fetcher is required")
	}
	o := &Orchestrator{
		cfg:      cfg.withDefaults(),
		search:   deps.Search,
		fetcher:  deps.Fetcher,
		scorer:   deps.Scorer,
		analyzer: deps.Analyzer,
		progress: deps.Progress,
		clock:    deps.Clock,
		logger:   deps.Logger,
	}
	if o.scorer == nil {
		o.scorer = links.DefaultScorer()
	}
	if o.analyzer == nil {
		o.analyzer = analyzer.Default()
	}
	if o.progress == nil {
		o.progress = progress.Discard{}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o, nil
}

func (o *Orchestrator) now() time.Time {
	if o.clock != nil {
		return o.clock.Now()
	}
	return time.Now().UTC()
}

// Input is one run's work.
type Input struct {
	RunID       uuid.UUID
	Conferences []discovery.Conference
	// Skip holds normalized URLs that are never analyzed: active rejections
	// and URLs already under triage.
	Skip map[string]struct{}
}

// Run processes every conference. The first conference runs alone; if all
// of its searches fail the run aborts with discovery.ErrProvidersUnavailable.
// Other failures stay inside their conference. When the run deadline passes,
// conferences not yet started are skipped and running ones keep what they
// found so far.
func (o *Orchestrator) Run(ctx context.Context, in Input) (Report, error) {
	if len(in.Conferences) == 0 {
		return Report{}, nil
	}
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	year := GuessYear(o.now())
	results := make([][]discovery.Candidate, len(in.Conferences))
	outcomes := make([]ConferenceOutcome, len(in.Conferences))

	results[0], outcomes[0] = o.runConference(ctx, in, in.Conferences[0], year)
	if first := outcomes[0]; first.Outcome == OutcomeFailed && errors.Is(first.Err, errSearchUnavailable) {
		return Report{Outcomes: outcomes[:1]}, fmt.Errorf("%w: %s: %w",
			discovery.ErrProvidersUnavailable, first.Conference, first.Err)
	}

	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for i := 1; i < len(in.Conferences); i++ {
		conf := in.Conferences[i]
		g.Go(func() error {
			if ctx.Err() != nil {
				outcomes[i] = o.skipConference(in.RunID, conf, year)
				return nil
			}
			results[i], outcomes[i] = o.runConference(ctx, in, conf, year)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Outcomes: outcomes}
	for i, out := range outcomes {
		report.Candidates = append(report.Candidates, results[i]...)
		switch out.Outcome {
		case OutcomeSkipped:
			report.Skipped++
		case OutcomeInterrupted:
			report.Interrupted++
		default:
			report.Completed++
		}
	}
	return report, nil
}

func (o *Orchestrator) runConference(
	ctx context.Context,
	in Input,
	conf discovery.Conference,
	year int,
) ([]discovery.Candidate, ConferenceOutcome) {
	r := newConferenceRun(o, in, conf, year)
	start := o.now()
	outcome, err := r.run(ctx)
	reached := r.machine.state
	if advErr := r.machine.advance(StateDone); advErr != nil && err == nil {
		outcome, err = OutcomeFailed, advErr
	}

	out := ConferenceOutcome{
		Conference: conf.Short,
		Year:       year,
		Outcome:    outcome,
		Reached:    reached,
		Candidates: len(r.candidates),
		Err:        err,
	}
	evt := r.event(progress.StageConfDone)
	evt.State = string(outcome)
	evt.Count = out.Candidates
	evt.Dur = o.now().Sub(start)
	if err != nil {
		evt.Note = err.Error()
		r.logger.Warn("Conference failed", zap.String("reached", reached.String()), zap.Error(err))
	} else {
		r.logger.Info("Conference finished",
			zap.String("outcome", string(outcome)),
			zap.Int("candidates", out.Candidates))
	}
	o.progress.Emit(evt)
	return r.candidates, out
}

func (o *Orchestrator) skipConference(runID uuid.UUID, conf discovery.Conference, year int) ConferenceOutcome {
	o.progress.Emit(progress.Event{
		RunID:      progress.UUIDToBytes(runID),
		TS:         o.now(),
		Stage:      progress.StageConfDone,
		Conference: conf.Short,
		State:      string(OutcomeSkipped),
	})
	o.logger.Info("Conference skipped, run deadline reached", zap.String("conference", conf.Short))
	return ConferenceOutcome{Conference: conf.Short, Year: year, Outcome: OutcomeSkipped, Reached: StateSeeding}
}
