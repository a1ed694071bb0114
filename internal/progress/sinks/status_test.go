package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/reviewer-calls/internal/progress"
)

func TestStatusSinkTracksLatestRun(t *testing.T) {
	t.Parallel()

	sink := NewStatusSink()
	_, ok := sink.Latest()
	require.False(t, ok)
	require.False(t, sink.Running())

	id := uuid.New()
	runID := progress.UUIDToBytes(id)
	start := time.Date(2026, 10, 16, 6, 0, 0, 0, time.UTC)
	ctx := context.Background()

	require.NoError(t, sink.Consume(ctx, []progress.Event{
		{RunID: runID, TS: start, Stage: progress.StageRunStart},
		{RunID: runID, TS: start, Stage: progress.StageConfState, Conference: "ICSE", State: "Searching"},
		{RunID: runID, TS: start, Stage: progress.StageFetchDone, Site: "icse.org", StatusClass: progress.Status2xx},
	}))
	require.True(t, sink.Running())

	latest, ok := sink.Latest()
	require.True(t, ok)
	require.Equal(t, id, latest.RunID)
	require.Equal(t, StatusRunning, latest.Status)
	require.Equal(t, "Searching", latest.Conferences["ICSE"].State)
	require.Equal(t, 1, latest.Fetches)

	latest.Conferences["FSE"] = ConferenceStatus{State: "mutated"}

	end := start.Add(time.Minute)
	require.NoError(t, sink.Consume(ctx, []progress.Event{
		{RunID: runID, TS: end, Stage: progress.StageConfDone, Conference: "ICSE", State: "Done", Count: 3},
		{RunID: runID, TS: end, Stage: progress.StageRunDone, Dur: time.Minute},
	}))
	require.False(t, sink.Running())

	latest, ok = sink.Latest()
	require.True(t, ok)
	require.Equal(t, StatusSuccess, latest.Status)
	require.Equal(t, 3, latest.Candidates)
	require.Equal(t, ConferenceStatus{State: "Done", Candidates: 3, UpdatedAt: end}, latest.Conferences["ICSE"])
	require.NotContains(t, latest.Conferences, "FSE")
	require.NotNil(t, latest.FinishedAt)
	require.Equal(t, end, *latest.FinishedAt)
}

func TestStatusSinkIgnoresStaleRuns(t *testing.T) {
	t.Parallel()

	sink := NewStatusSink()
	oldRun := progress.UUIDToBytes(uuid.New())
	newRun := progress.UUIDToBytes(uuid.New())
	now := time.Now()
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunID: oldRun, TS: now, Stage: progress.StageRunStart},
		{RunID: newRun, TS: now, Stage: progress.StageRunStart},
		{RunID: oldRun, TS: now, Stage: progress.StageRunError, Note: "late"},
		{RunID: newRun, TS: now, Stage: progress.StageRunError, Note: "providers down"},
	}))

	latest, ok := sink.Latest()
	require.True(t, ok)
	require.Equal(t, uuid.UUID(newRun), latest.RunID)
	require.Equal(t, StatusError, latest.Status)
	require.Equal(t, "providers down", latest.Error)
	require.NoError(t, sink.Close(context.Background()))
}

func TestLogSinkWritesFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	sink := NewLogSink(zap.New(core))
	runID := progress.UUIDToBytes(uuid.New())
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunID: runID, TS: time.Now(), Stage: progress.StageConfDone, Conference: "ICSE", State: "Done", Count: 1},
		{RunID: runID, TS: time.Now(), Stage: progress.StageFetchDone, Site: "icse.org", StatusClass: progress.Status4xx, Note: "404"},
	}))
	require.Equal(t, 2, logs.Len())
	entries := logs.All()
	require.Equal(t, "ICSE", entries[0].ContextMap()["conference"])
	require.Equal(t, "icse.org", entries[1].ContextMap()["site"])
	require.Equal(t, "404", entries[1].ContextMap()["note"])
	require.NoError(t, sink.Close(context.Background()))
}
