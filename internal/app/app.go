// Package app runs one discovery pass end to end: it loads the catalog and
// datasets, drives the pipeline, merges the results and hands kept candidates
// to the dataset writer, the notifiers and the run ledger.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/reviewer-calls/internal/catalog"
	"github.com/JakeFAU/reviewer-calls/internal/dataset"
	"github.com/JakeFAU/reviewer-calls/internal/discovery"
	"github.com/JakeFAU/reviewer-calls/internal/merge"
	"github.com/JakeFAU/reviewer-calls/internal/metrics"
	"github.com/JakeFAU/reviewer-calls/internal/notify"
	"github.com/JakeFAU/reviewer-calls/internal/pipeline"
	"github.com/JakeFAU/reviewer-calls/internal/progress"
	"github.com/JakeFAU/reviewer-calls/internal/report"
	"github.com/JakeFAU/reviewer-calls/internal/store"
)

const ledgerTimeout = 10 * time.Second

// Runner executes the discovery pipeline; *pipeline.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, in pipeline.Input) (pipeline.Report, error)
}

// KnownURLSource lists URLs already under triage, normalized.
type KnownURLSource interface {
	KnownURLs(ctx context.Context) (map[string]struct{}, error)
}

// Notifier fans notifications out without blocking; *notify.Dispatcher
// satisfies it.
type Notifier interface {
	Dispatch(ctx context.Context, ns []notify.Notification)
}

// Paths locates the data files.
type Paths struct {
	Catalog  string
	Calls    string
	Rejected string
}

// Deps are the collaborators of an App. Only Paths.Catalog is required to
// list conferences; Discover also needs Pipeline and Paths.Calls.
type Deps struct {
	Paths    Paths
	Pipeline Runner
	Known    KnownURLSource
	Notifier Notifier
	Runs     store.RunRepository
	Progress progress.Emitter
	Clock    discovery.Clock
	IDs      discovery.IDGenerator
	Logger   *zap.Logger
}

// App wires the run flow together.
type App struct {
	paths    Paths
	pipeline Runner
	known    KnownURLSource
	notifier Notifier
	runs     store.RunRepository
	progress progress.Emitter
	clock    discovery.Clock
	ids      discovery.IDGenerator
	logger   *zap.Logger
}

// New validates deps and returns an App.
func New(deps Deps) (*App, error) {
	if deps.Paths.Catalog == "" {
		return nil, errors.New("app: catalog path is required")
	}
	a := &App{
		paths:    deps.Paths,
		pipeline: deps.Pipeline,
		known:    deps.Known,
		notifier: deps.Notifier,
		runs:     deps.Runs,
		progress: deps.Progress,
		clock:    deps.Clock,
		ids:      deps.IDs,
		logger:   deps.Logger,
	}
	if a.progress == nil {
		a.progress = progress.Discard{}
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a, nil
}

// Request selects the conferences of a run and what to do with the results.
type Request struct {
	Filter catalog.Filter
	Window catalog.Window
	// DryRun reports without writing the dataset, notifying or touching the
	// ledger.
	DryRun bool
	// EvalDest is an optional local path or gs:// URI for the eval export.
	EvalDest string
}

// Summary describes a finished run.
type Summary struct {
	RunID       uuid.UUID
	StartedAt   time.Time
	FinishedAt  time.Time
	Searched    int
	Completed   int
	Interrupted int
	Skipped     int
	Discovered  int
	Kept        int
	Dropped     int
	DryRun      bool
	// Written is true when calls.yaml was rewritten.
	Written    bool
	EvalURI    string
	Candidates []discovery.Candidate
}

func (a *App) now() time.Time {
	if a.clock != nil {
		return a.clock.Now()
	}
	return time.Now().UTC()
}

func (a *App) newRunID() (uuid.UUID, error) {
	if a.ids != nil {
		return a.ids.NewID()
	}
	return uuid.NewV7()
}

// Conferences returns the catalog conferences recruiting today that match
// req's filter, in catalog order. It never touches the network.
func (a *App) Conferences(req Request) ([]discovery.Conference, error) {
	cat, err := catalog.Load(a.paths.Catalog)
	if err != nil {
		return nil, err
	}
	return req.Filter.Apply(cat.InWindow(a.now(), req.Window)), nil
}

// Discover performs one run. It fails only when the catalog or calls dataset
// cannot be read, when the calls dataset cannot be written, or when search
// is unavailable on the first conference. Everything else is logged and the
// run carries on.
func (a *App) Discover(ctx context.Context, req Request) (Summary, error) {
	if a.pipeline == nil {
		return Summary{}, errors.New("app: pipeline is required for discovery")
	}
	runID, err := a.newRunID()
	if err != nil {
		return Summary{}, fmt.Errorf("generate run id: %w", err)
	}
	sum := Summary{RunID: runID, StartedAt: a.now(), DryRun: req.DryRun}
	logger := a.logger.With(zap.String("run_id", runID.String()))
	a.emit(runID, progress.StageRunStart, 0, "")
	if !req.DryRun {
		a.ledger(ctx, logger, "start run", func(ctx context.Context) error {
			return a.runs.StartRun(ctx, runID, sum.StartedAt)
		})
	}

	sum, err = a.discover(ctx, logger, req, sum)
	sum.FinishedAt = a.now()
	if err != nil {
		a.finish(ctx, logger, sum, err)
		return sum, err
	}
	a.finish(ctx, logger, sum, nil)

	logger.Info("Discovery finished",
		zap.Int("searched", sum.Searched),
		zap.Int("completed", sum.Completed),
		zap.Int("interrupted", sum.Interrupted),
		zap.Int("skipped", sum.Skipped),
		zap.Int("discovered", sum.Discovered),
		zap.Int("kept", sum.Kept),
		zap.Int("dropped", sum.Dropped),
		zap.Bool("dry_run", sum.DryRun),
		zap.Duration("elapsed", sum.FinishedAt.Sub(sum.StartedAt)),
	)
	return sum, nil
}

func (a *App) discover(ctx context.Context, logger *zap.Logger, req Request, sum Summary) (Summary, error) {
	confs, err := a.Conferences(req)
	if err != nil {
		return sum, err
	}
	if a.paths.Calls == "" {
		return sum, errors.New("calls dataset path is required")
	}
	calls, err := dataset.LoadCalls(a.paths.Calls)
	if err != nil {
		return sum, err
	}
	existing, err := calls.Candidates()
	if err != nil {
		return sum, err
	}
	rejected := a.loadRejected(logger)
	sum.Searched = len(confs)
	logger.Info("Discovery starting",
		zap.Int("conferences", len(confs)),
		zap.Int("existing", len(existing)),
		zap.Int("rejected", len(rejected)),
	)

	skip := merge.RejectedSet(rejected, sum.StartedAt)
	for u := range a.knownURLs(ctx, logger) {
		skip[u] = struct{}{}
	}

	rep, err := a.pipeline.Run(ctx, pipeline.Input{RunID: sum.RunID, Conferences: confs, Skip: skip})
	if err != nil {
		return sum, fmt.Errorf("run pipeline: %w", err)
	}
	sum.Completed = rep.Completed
	sum.Interrupted = rep.Interrupted
	sum.Skipped = rep.Skipped
	sum.Discovered = len(rep.Candidates)

	merged := merge.Merge(rep.Candidates, existing, rejected, sum.StartedAt)
	sum.Kept = len(merged.Kept)
	sum.Dropped = len(merged.Dropped)
	sum.Candidates = merged.Kept
	for _, d := range merged.Dropped {
		logger.Debug("Candidate dropped",
			zap.String("conference", d.Candidate.Conference),
			zap.String("url", d.Candidate.URL),
			zap.String("reason", d.Reason))
	}
	metrics.ObserveCandidates("discovered", sum.Discovered)
	metrics.ObserveCandidates("kept", sum.Kept)
	metrics.ObserveCandidates("dropped", sum.Dropped)

	if !req.DryRun && sum.Kept > 0 {
		if err := calls.Add(merged.Kept); err != nil {
			return sum, fmt.Errorf("add candidates: %w", err)
		}
		if err := calls.Write(); err != nil {
			return sum, err
		}
		sum.Written = true
		logger.Info("Calls dataset updated", zap.String("path", calls.Path()), zap.Int("entries", calls.Len()))
		a.notify(ctx, sum)
	}

	if req.EvalDest != "" {
		eval := report.Build(sum.RunID, sum.StartedAt, sum.Searched, rep.Candidates)
		uri, err := report.Export(ctx, req.EvalDest, eval)
		if err != nil {
			logger.Error("Eval export failed", zap.String("dest", req.EvalDest), zap.Error(err))
		} else {
			sum.EvalURI = uri
			logger.Info("Eval report written", zap.String("uri", uri))
		}
	}
	return sum, nil
}

func (a *App) loadRejected(logger *zap.Logger) []discovery.RejectedURL {
	if a.paths.Rejected == "" {
		return nil
	}
	rejected, err := dataset.LoadRejected(a.paths.Rejected)
	if err != nil {
		logger.Warn("Rejected URLs unreadable, continuing without them", zap.Error(err))
		return nil
	}
	return rejected
}

func (a *App) knownURLs(ctx context.Context, logger *zap.Logger) map[string]struct{} {
	if a.known == nil {
		return nil
	}
	known, err := a.known.KnownURLs(ctx)
	if err != nil {
		logger.Warn("Known URLs unavailable, continuing without them", zap.Error(err))
		return nil
	}
	return known
}

func (a *App) notify(ctx context.Context, sum Summary) {
	if a.notifier == nil {
		return
	}
	ns := make([]notify.Notification, 0, len(sum.Candidates))
	for _, c := range sum.Candidates {
		ns = append(ns, notify.FromCandidate(sum.RunID.String(), c))
	}
	a.notifier.Dispatch(ctx, ns)
}

// finish records the run outcome in progress events, metrics and the ledger.
func (a *App) finish(ctx context.Context, logger *zap.Logger, sum Summary, runErr error) {
	run := store.Run{
		ID:          sum.RunID,
		StartedAt:   sum.StartedAt,
		FinishedAt:  &sum.FinishedAt,
		Status:      store.RunSuccess,
		Searched:    sum.Searched,
		Completed:   sum.Completed,
		Interrupted: sum.Interrupted,
		Skipped:     sum.Skipped,
		Discovered:  sum.Discovered,
		Kept:        sum.Kept,
		Dropped:     sum.Dropped,
	}
	if runErr != nil {
		msg := runErr.Error()
		run.Status = store.RunError
		run.ErrorMessage = &msg
		a.emit(sum.RunID, progress.StageRunError, sum.Discovered, msg)
		logger.Error("Discovery failed", zap.Error(runErr))
	} else {
		a.emit(sum.RunID, progress.StageRunDone, sum.Discovered, "")
	}
	metrics.ObserveRun(string(run.Status))

	if sum.DryRun {
		return
	}
	a.ledger(ctx, logger, "complete run", func(ctx context.Context) error {
		return a.runs.CompleteRun(ctx, run)
	})
	if len(sum.Candidates) > 0 && sum.Written {
		a.ledger(ctx, logger, "record candidates", func(ctx context.Context) error {
			return a.runs.RecordCandidates(ctx, sum.RunID, sum.Candidates)
		})
	}
}

// ledger runs fn against the run repository when one is configured. Ledger
// writes outlive a cancelled run context and never fail the run.
func (a *App) ledger(ctx context.Context, logger *zap.Logger, op string, fn func(context.Context) error) {
	if a.runs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Warn("Run ledger write failed", zap.String("op", op), zap.Error(err))
	}
}

func (a *App) emit(runID uuid.UUID, stage progress.Stage, count int, note string) {
	a.progress.Emit(progress.Event{
		RunID: progress.UUIDToBytes(runID),
		TS:    a.now(),
		Stage: stage,
		Count: count,
		Note:  note,
	})
}
