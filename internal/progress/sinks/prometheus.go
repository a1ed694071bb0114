package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/reviewer-calls/internal/progress"
)

// PrometheusSink exports run progress via Prometheus. It owns the collectors
// for runs started/running, conference state transitions and per-site fetch
// completions.
type PrometheusSink struct {
	runsStarted prometheus.Counter
	runsRunning prometheus.Gauge
	runRuntime  *prometheus.HistogramVec

	confTransitions *prometheus.CounterVec
	confCompleted   *prometheus.CounterVec
	confCandidates  prometheus.Counter

	fetchCompleted *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec

	tracker *runTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reviewercalls_progress_runs_started_total",
			Help: "Total discovery runs that have started.",
		}),
		runsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reviewercalls_progress_runs_running",
			Help: "Current number of running discovery runs.",
		}),
		runRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reviewercalls_progress_run_runtime_seconds",
			Help:    "Wall time per finished run.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		}, []string{"result"}),
		confTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviewercalls_progress_conference_states_total",
			Help: "Conference pipeline state transitions partitioned by state entered.",
		}, []string{"state"}),
		confCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviewercalls_progress_conferences_completed_total",
			Help: "Conferences finished partitioned by outcome.",
		}, []string{"outcome"}),
		confCandidates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reviewercalls_progress_conference_candidates_total",
			Help: "Candidates reported by finished conferences.",
		}),
		fetchCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviewercalls_progress_fetches_total",
			Help: "Fetch completions partitioned by site and status class.",
		}, []string{"site", "status_class"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reviewercalls_progress_fetch_duration_seconds",
			Help:    "Fetch duration partitioned by status class.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"status_class"}),
		tracker: newRunTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsRunning,
		s.runRuntime,
		s.confTransitions,
		s.confCompleted,
		s.confCandidates,
		s.fetchCompleted,
		s.fetchDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors using the provided batch. It is safe for
// concurrent use.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart, progress.StageRunDone, progress.StageRunError:
			s.handleRunEvent(evt)
		case progress.StageConfState:
			s.confTransitions.WithLabelValues(evt.State).Inc()
		case progress.StageConfDone:
			s.confCompleted.WithLabelValues(evt.State).Inc()
			s.confCandidates.Add(float64(evt.Count))
		case progress.StageFetchDone:
			s.handleFetchEvent(evt)
		}
	}
	return nil
}

func (s *PrometheusSink) handleRunEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
		if s.tracker.start(evt.RunID) {
			s.runsRunning.Inc()
		}
		return
	case progress.StageRunDone:
		s.observeRuntime(evt, "success")
	case progress.StageRunError:
		s.observeRuntime(evt, "error")
	}
	if s.tracker.complete(evt.RunID) {
		s.runsRunning.Dec()
	}
}

func (s *PrometheusSink) observeRuntime(evt progress.Event, label string) {
	if evt.Dur > 0 {
		s.runRuntime.WithLabelValues(label).Observe(evt.Dur.Seconds())
	}
}

func (s *PrometheusSink) handleFetchEvent(evt progress.Event) {
	statusClass := string(evt.StatusClass)
	s.fetchCompleted.WithLabelValues(evt.Site, statusClass).Inc()
	if evt.Dur > 0 {
		s.fetchDuration.WithLabelValues(statusClass).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type runTracker struct {
	mu      sync.Mutex
	running map[[16]byte]struct{}
}

func newRunTracker() *runTracker {
	return &runTracker{running: make(map[[16]byte]struct{})}
}

func (t *runTracker) start(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *runTracker) complete(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
