package sinks

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/reviewer-calls/internal/progress"
)

// Run status values reported by StatusSink.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// ConferenceStatus is the last known pipeline state of one conference.
type ConferenceStatus struct {
	State      string    `json:"state"`
	Candidates int       `json:"candidates"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RunStatus summarizes the most recent run seen by a StatusSink.
type RunStatus struct {
	RunID       uuid.UUID                   `json:"run_id"`
	Status      string                      `json:"status"`
	StartedAt   time.Time                   `json:"started_at"`
	FinishedAt  *time.Time                  `json:"finished_at,omitempty"`
	Candidates  int                         `json:"candidates"`
	Fetches     int                         `json:"fetches"`
	Error       string                      `json:"error,omitempty"`
	Conferences map[string]ConferenceStatus `json:"conferences"`
}

// StatusSink keeps an in-memory view of the latest run for the HTTP status
// endpoint. Events for older runs are ignored once a newer run has started.
type StatusSink struct {
	mu     sync.RWMutex
	latest *RunStatus
}

// NewStatusSink constructs an empty StatusSink.
func NewStatusSink() *StatusSink {
	return &StatusSink{}
}

// Consume folds the batch into the latest run summary.
func (s *StatusSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		s.apply(evt)
	}
	return nil
}

func (s *StatusSink) apply(evt progress.Event) {
	id := evt.RunUUID()
	if evt.Stage == progress.StageRunStart {
		s.latest = &RunStatus{
			RunID:       id,
			Status:      StatusRunning,
			StartedAt:   evt.TS,
			Conferences: make(map[string]ConferenceStatus),
		}
		return
	}
	if s.latest == nil || s.latest.RunID != id {
		return
	}
	run := s.latest
	switch evt.Stage {
	case progress.StageRunDone, progress.StageRunError:
		finished := evt.TS
		run.FinishedAt = &finished
		run.Status = StatusSuccess
		if evt.Stage == progress.StageRunError {
			run.Status = StatusError
			run.Error = evt.Note
		}
		if evt.Count > 0 {
			run.Candidates = evt.Count
		}
	case progress.StageConfState:
		conf := run.Conferences[evt.Conference]
		conf.State = evt.State
		conf.UpdatedAt = evt.TS
		run.Conferences[evt.Conference] = conf
	case progress.StageConfDone:
		run.Conferences[evt.Conference] = ConferenceStatus{
			State:      evt.State,
			Candidates: evt.Count,
			UpdatedAt:  evt.TS,
		}
		run.Candidates += evt.Count
	case progress.StageFetchDone:
		run.Fetches++
	}
}

// Latest returns a copy of the most recent run summary.
func (s *StatusSink) Latest() (RunStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return RunStatus{}, false
	}
	out := *s.latest
	out.Conferences = maps.Clone(s.latest.Conferences)
	if s.latest.FinishedAt != nil {
		finished := *s.latest.FinishedAt
		out.FinishedAt = &finished
	}
	return out, true
}

// Running reports whether the latest run has not finished yet.
func (s *StatusSink) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest != nil && s.latest.Status == StatusRunning
}

// Close implements the Sink interface; it performs no action.
func (s *StatusSink) Close(context.Context) error {
	return nil
}
