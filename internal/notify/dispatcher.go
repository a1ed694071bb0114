package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/reviewer-calls/internal/metrics"
)

// DefaultTimeout bounds one delivery attempt.
const DefaultTimeout = 30 * time.Second

// Dispatcher fans notifications out to every notifier in the background.
// Deliveries are detached from the caller's cancellation so a finished run
// does not abort them; Wait blocks until they drain.
type Dispatcher struct {
	notifiers []Notifier
	logger    *zap.Logger
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. A zero timeout uses DefaultTimeout.
func NewDispatcher(logger *zap.Logger, timeout time.Duration, notifiers ...Notifier) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{notifiers: notifiers, logger: logger, timeout: timeout}
}

// Dispatch starts delivery of ns to each notifier and returns immediately.
// Each notifier receives the notifications in order on its own goroutine.
func (d *Dispatcher) Dispatch(ctx context.Context, ns []Notification) {
	if len(ns) == 0 {
		return
	}
	base := context.WithoutCancel(ctx)
	for _, n := range d.notifiers {
		d.wg.Add(1)
		go func(notifier Notifier) {
			defer d.wg.Done()
			for _, item := range ns {
				d.deliver(base, notifier, item)
			}
		}(n)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, notifier Notifier, n Notification) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := notifier.Notify(ctx, n); err != nil {
		metrics.ObserveNotification(notifier.Name(), "error")
		d.logger.Warn("notification failed",
			zap.String("channel", notifier.Name()),
			zap.String("conference", n.Conference),
			zap.String("url", n.URL),
			zap.Error(err),
		)
		return
	}
	metrics.ObserveNotification(notifier.Name(), "sent")
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
