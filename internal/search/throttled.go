package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
	"github.com/JakeFAU/reviewer-calls/internal/metrics"
)

// ThrottleConfig controls call spacing for one provider instance.
type ThrottleConfig struct {
	// MinInterval is the mandatory delay between two calls.
	MinInterval time.Duration
	// Cooldown is added after the provider reports ErrRateLimited.
	Cooldown time.Duration
}

// Throttled serializes every call to one provider instance. A single
// Throttled is shared by all conference pipelines of a run.
type Throttled struct {
	inner    Provider
	limiter  *rate.Limiter
	cooldown time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	notBefore time.Time
}

// NewThrottled wraps provider with serialization and call spacing.
func NewThrottled(provider Provider, cfg ThrottleConfig, logger *zap.Logger) *Throttled {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	return &Throttled{
		inner:    provider,
		limiter:  rate.NewLimiter(limit, 1),
		cooldown: cfg.Cooldown,
		logger:   logger,
	}
}

// Name implements Provider.
func (t *Throttled) Name() string { return t.inner.Name() }

// Search implements Provider. Calls never overlap; the lock is held across
// the wait so callers queue in arrival order.
func (t *Throttled) Search(ctx context.Context, query string, dateRange DateRange) ([]discovery.SearchResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := time.Now()
	if err := t.waitCooldown(ctx); err != nil {
		return nil, err
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("search throttle wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay("search", waited)
	}

	results, err := t.inner.Search(ctx, query, dateRange)
	switch {
	case err == nil:
		metrics.ObserveSearch(t.Name(), "ok")
	case errors.Is(err, ErrRateLimited):
		metrics.ObserveSearch(t.Name(), "rate_limited")
		t.notBefore = time.Now().Add(t.cooldown)
		t.logger.Warn("Search provider rate limited; cooling down",
			zap.String("provider", t.Name()),
			zap.Duration("cooldown", t.cooldown))
	default:
		metrics.ObserveSearch(t.Name(), "error")
	}
	return results, err
}

func (t *Throttled) waitCooldown(ctx context.Context) error {
	delay := time.Until(t.notBefore)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("search cooldown wait: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
