package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	_, err := New("every day at six", func(context.Context) error { return nil }, nil)
	require.ErrorContains(t, err, "parse schedule")

	_, err = New(DefaultSpec, nil, nil)
	require.Error(t, err)
}

func TestTriggerIsSingleFlight(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var runs atomic.Int32
	s, err := New(DefaultSpec, func(context.Context) error {
		runs.Add(1)
		<-release
		return nil
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	require.NoError(t, s.Trigger())
	require.True(t, s.Running())
	require.ErrorIs(t, s.Trigger(), ErrRunInProgress)

	close(release)
	require.Eventually(t, func() bool { return !s.Running() }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Trigger())
	require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestStopCancelsActiveRun(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	s, err := New("@daily", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, nil)
	require.NoError(t, err)
	s.Start()
	require.False(t, s.Next().IsZero())

	require.NoError(t, s.Trigger())
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.False(t, s.Running())
	require.Error(t, s.Trigger())
}

func TestFailedRunIsLogged(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	s, err := New(DefaultSpec, func(context.Context) error { return errors.New("catalog unavailable") }, zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	s.fire()
	require.Eventually(t, func() bool {
		return logs.FilterMessage("Discovery run failed").Len() == 1
	}, time.Second, 5*time.Millisecond)
}
