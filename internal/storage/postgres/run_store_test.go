package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
	"github.com/JakeFAU/reviewer-calls/internal/store"
)

func newMockStore(t *testing.T) (*RunStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	s, err := NewRunStoreWithPool(mock, "", "")
	require.NoError(t, err)
	return s, mock
}

func TestStartRun(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	id := uuid.New()
	started := time.Unix(1700000000, 0).UTC()

	mock.ExpectExec("INSERT INTO discovery_runs").
		WithArgs(id, started, store.RunRunning).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.StartRun(context.Background(), id, started))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRun(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	finished := time.Unix(1700000600, 0).UTC()
	run := store.Run{
		ID:         uuid.New(),
		FinishedAt: &finished,
		Status:     store.RunSuccess,
		Searched:   4,
		Completed:  3,
		Skipped:    1,
		Discovered: 5,
		Kept:       2,
		Dropped:    3,
	}

	mock.ExpectExec("UPDATE discovery_runs").
		WithArgs(run.FinishedAt, run.Status, 4, 3, 0, 1, 5, 2, 3, run.ErrorMessage, run.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, s.CompleteRun(context.Background(), run))

	mock.ExpectExec("UPDATE discovery_runs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorContains(t, s.CompleteRun(context.Background(), run), "not started")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordCandidates(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	runID := uuid.New()
	d := discovery.NewDate(2026, time.January, 5)
	cands := []discovery.Candidate{
		{
			Conference: "ICSE", Year: 2026, Role: "Reviewer", URL: "https://icse.org/r", Label: "Main",
			Date: &d, DiscoveryScore: 6.5, SourceDepth: 1,
			Scores: discovery.Scores{Search: 3, Link: 2, Content: 8, Final: 6.5, Decision: "accept"},
		},
		{Conference: "FSE", Year: 2026, Role: "PC", URL: "https://fse.org/pc"},
	}

	mock.ExpectExec("INSERT INTO discovery_candidates").
		WithArgs(runID, "ICSE", 2026, "Reviewer", "https://icse.org/r", "Main", &d.Time, 6.5, 1,
			[]byte(`{"search":3,"link":2,"content":8,"final":6.5,"decision":"accept"}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO discovery_candidates").
		WithArgs(runID, "FSE", 2026, "PC", "https://fse.org/pc", "", (*time.Time)(nil), 0.0, 0, pgxmock.AnyArg()).
		WillReturnError(errors.New("conflict"))

	err := s.RecordCandidates(context.Background(), runID, cands)
	require.ErrorContains(t, err, "https://fse.org/pc")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRunStoreWithPoolValidates(t *testing.T) {
	t.Parallel()

	_, err := NewRunStoreWithPool(nil, "", "")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewRunStoreWithPool(mock, "runs; DROP TABLE x", "")
	require.ErrorContains(t, err, "invalid table name")
}

func TestNewRunStoreRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewRunStore(context.Background(), Config{})
	require.ErrorContains(t, err, "db.dsn")
}
