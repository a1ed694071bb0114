// Package postgres provides the Postgres-backed run ledger.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
	"github.com/JakeFAU/reviewer-calls/internal/store"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool and table names.
type Config struct {
	DSN             string
	RunsTable       string
	CandidatesTable string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// RunStore implements store.RunRepository.
type RunStore struct {
	pool       execCloser
	runs       string
	candidates string
}

var _ store.RunRepository = (*RunStore)(nil)

// NewRunStore connects a pool using cfg.
func NewRunStore(ctx context.Context, cfg Config) (*RunStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s, err := NewRunStoreWithPool(pool, cfg.RunsTable, cfg.CandidatesTable)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewRunStoreWithPool builds a store from an existing pool (primarily for testing).
func NewRunStoreWithPool(pool execCloser, runsTable, candidatesTable string) (*RunStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if runsTable == "" {
		runsTable = "discovery_runs"
	}
	if candidatesTable == "" {
		candidatesTable = "discovery_candidates"
	}
	for _, table := range []string{runsTable, candidatesTable} {
		if !validTableName.MatchString(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return &RunStore{pool: pool, runs: runsTable, candidates: candidatesTable}, nil
}

// Close releases the underlying pool resources.
func (s *RunStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// StartRun inserts a running row; re-starting the same id is a no-op.
func (s *RunStore) StartRun(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	query := fmt.Sprintf(`
INSERT INTO %s (id, started_at, status)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO NOTHING`, s.runs)
	if _, err := s.pool.Exec(ctx, query, id, startedAt, store.RunRunning); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// CompleteRun writes the final counters.
func (s *RunStore) CompleteRun(ctx context.Context, run store.Run) error {
	query := fmt.Sprintf(`
UPDATE %s
SET finished_at = $1, status = $2, searched = $3, completed = $4, interrupted = $5,
	skipped = $6, discovered = $7, kept = $8, dropped = $9, error_message = $10
WHERE id = $11`, s.runs)
	tag, err := s.pool.Exec(ctx, query,
		run.FinishedAt,
		run.Status,
		run.Searched,
		run.Completed,
		run.Interrupted,
		run.Skipped,
		run.Discovered,
		run.Kept,
		run.Dropped,
		run.ErrorMessage,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete run %s: run not started", run.ID)
	}
	return nil
}

// RecordCandidates inserts one row per candidate with its score breakdown.
func (s *RunStore) RecordCandidates(ctx context.Context, runID uuid.UUID, candidates []discovery.Candidate) error {
	query := fmt.Sprintf(`
INSERT INTO %s (run_id, conference, year, role, url, label, date, discovery_score, source_depth, scores)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (run_id, url, role) DO NOTHING`, s.candidates)
	for _, c := range candidates {
		scores, err := json.Marshal(c.Scores)
		if err != nil {
			return fmt.Errorf("marshal scores: %w", err)
		}
		var date *time.Time
		if c.Date != nil {
			t := c.Date.Time
			date = &t
		}
		if _, err := s.pool.Exec(ctx, query,
			runID,
			c.Conference,
			c.Year,
			c.Role,
			c.URL,
			c.Label,
			date,
			c.DiscoveryScore,
			c.SourceDepth,
			scores,
		); err != nil {
			return fmt.Errorf("insert candidate %s: %w", c.URL, err)
		}
	}
	return nil
}
