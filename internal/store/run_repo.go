package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

// RunStatus mirrors the discovery_runs status column.
type RunStatus string

// Run statuses persisted in discovery_runs.status.
const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// Run models one discovery run in the ledger.
type Run struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     RunStatus
	// Searched counts conferences selected for the run.
	Searched    int
	Completed   int
	Interrupted int
	Skipped     int
	Discovered  int
	Kept        int
	Dropped     int
	// ErrorMessage optionally stores the final failure reason.
	ErrorMessage *string
}

// RunRepository records discovery runs and the candidates they kept.
type RunRepository interface {
	// StartRun inserts the run as running.
	StartRun(ctx context.Context, id uuid.UUID, startedAt time.Time) error
	// CompleteRun stores the final counters and status.
	CompleteRun(ctx context.Context, run Run) error
	// RecordCandidates stores the candidates kept by a run.
	RecordCandidates(ctx context.Context, runID uuid.UUID, candidates []discovery.Candidate) error
	// Close releases the underlying connection.
	Close()
}
