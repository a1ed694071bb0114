// Package scheduler runs discovery on a cron schedule. At most one run is in
// flight: a trigger that arrives while a run is active is rejected, never
// queued.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSpec runs discovery daily at 06:00 UTC.
const DefaultSpec = "0 6 * * *"

// ErrRunInProgress is returned by Trigger while a run is active.
var ErrRunInProgress = errors.New("discovery run already in progress")

// Job is one discovery run. ctx is cancelled when the scheduler stops.
type Job func(ctx context.Context) error

// Scheduler owns the cron loop and the single-flight guard.
type Scheduler struct {
	cron    *cron.Cron
	entry   cron.EntryID
	job     Job
	logger  *zap.Logger
	running atomic.Bool
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// New parses spec (standard five fields, or a descriptor like @daily) and
// returns a stopped Scheduler.
func New(spec string, job Job, logger *zap.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("scheduler: job is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if spec == "" {
		spec = DefaultSpec
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cron.WithParser(parser), cron.WithLocation(time.UTC)),
		job:    job,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	entry, err := s.cron.AddFunc(spec, s.fire)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	s.entry = entry
	return s, nil
}

func (s *Scheduler) fire() {
	if err := s.Trigger(); err != nil {
		s.logger.Warn("Scheduled run skipped", zap.Error(err))
	}
}

// Start begins the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Time("next_run", s.Next()))
}

// Next returns the next scheduled run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Running reports whether a run is in flight.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Trigger starts a run in the background and returns immediately.
func (s *Scheduler) Trigger() error {
	if s.ctx.Err() != nil {
		return errors.New("scheduler stopped")
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		start := time.Now()
		if err := s.job(s.ctx); err != nil {
			s.logger.Error("Discovery run failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
			return
		}
		s.logger.Info("Discovery run finished", zap.Duration("elapsed", time.Since(start)))
	}()
	return nil
}

// Stop halts the cron loop, cancels an active run and waits for it to
// return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	<-s.cron.Stop().Done()
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop wait: %w", ctx.Err())
	}
}
