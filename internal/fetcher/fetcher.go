// Package fetcher retrieves pages concurrently with a hard in-flight cap,
// per-request timeouts and classified retries.
package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/reviewer-calls/internal/discovery"
	"github.com/JakeFAU/reviewer-calls/internal/metrics"
	"github.com/JakeFAU/reviewer-calls/internal/policy/ratelimit"
	"github.com/JakeFAU/reviewer-calls/internal/policy/robots"
	"github.com/JakeFAU/reviewer-calls/internal/urlnorm"
)

// DefaultUserAgent identifies the crawler to site operators.
const DefaultUserAgent = "ReviewerCalls/0.1 (+https://github.com/JakeFAU/reviewer-calls)"

// Options bound one FetchAll call.
type Options struct {
	MaxConcurrency int
	Timeout        time.Duration
	MaxRetries     int
}

// DefaultOptions returns 15 in flight, 15s per request and 3 retries.
func DefaultOptions() Options {
	return Options{MaxConcurrency: 15, Timeout: 15 * time.Second, MaxRetries: 3}
}

// Result is the outcome for one input URL. Exactly one of Page and Err is set.
type Result struct {
	Page     *discovery.FetchedPage
	Err      error
	State    State
	Attempts int
}

// OK reports whether the fetch succeeded.
func (r Result) OK() bool { return r.State == StateSucceeded && r.Page != nil }

// Config wires the fetcher's collaborators. Zero values select defaults.
type Config struct {
	UserAgent   string
	MaxBodySize int
	Transport   http.RoundTripper
	Robots      discovery.RobotsPolicy
	Limiter     *ratelimit.Limiter
	Retry       *RetryPolicy
	Logger      *zap.Logger
	Clock       discovery.Clock
}

// Fetcher implements bounded, retrying page retrieval over colly.
type Fetcher struct {
	cfg       Config
	transport http.RoundTripper
	robots    discovery.RobotsPolicy
	limiter   *ratelimit.Limiter
	retry     *RetryPolicy
	logger    *zap.Logger
	clock     discovery.Clock
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 2 << 20
	}
	f := &Fetcher{
		cfg:       cfg,
		transport: cfg.Transport,
		robots:    cfg.Robots,
		limiter:   cfg.Limiter,
		retry:     cfg.Retry,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
	}
	if f.transport == nil {
		f.transport = newHTTPTransport()
	}
	if f.robots == nil {
		f.robots = robots.AllowAll{}
	}
	if f.retry == nil {
		f.retry = NewRetryPolicy()
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	return f
}

func (f *Fetcher) now() time.Time {
	if f.clock != nil {
		return f.clock.Now()
	}
	return time.Now()
}

// FetchAll retrieves every URL and returns one Result per distinct input
// string. URLs that normalize identically are fetched once and share the
// result. Never more than opts.MaxConcurrency HTTP attempts run at once;
// backoff sleeps and rate limit waits do not hold a slot. If ctx ends,
// unfinished URLs are reported as StateFailedExhausted wrapping ctx.Err().
func (f *Fetcher) FetchAll(ctx context.Context, urls []string, opts Options) map[string]Result {
	opts = withDefaults(opts)
	results := make(map[string]Result, len(urls))
	if len(urls) == 0 {
		return results
	}

	groups := make(map[string][]string)
	var order []string
	for _, raw := range urls {
		key := urlnorm.Normalize(raw)
		if key == "" {
			key = raw
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = appendUnique(groups[key], raw)
	}

	base := f.newBaseCollector(opts.Timeout)
	sem := semaphore.NewWeighted(int64(opts.MaxConcurrency))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, key := range order {
		raws := groups[key]
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := f.fetchOne(ctx, base, sem, raws[0], opts)
			mu.Lock()
			defer mu.Unlock()
			for _, raw := range raws {
				results[raw] = res
			}
		}()
	}
	wg.Wait()
	return results
}

func (f *Fetcher) fetchOne(
	ctx context.Context,
	base *colly.Collector,
	sem *semaphore.Weighted,
	rawURL string,
	opts Options,
) Result {
	req := &request{url: rawURL, state: StatePending}
	if err := validateURL(rawURL); err != nil {
		return f.fail(req, StateFailedPermanent, 0, err)
	}
	if !f.robots.Allowed(ctx, rawURL) {
		return f.fail(req, StateFailedPermanent, 0, errRobotsDisallowed)
	}

	for {
		if err := ctx.Err(); err != nil {
			return f.fail(req, StateFailedExhausted, 0, err)
		}
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return f.fail(req, StateFailedExhausted, 0, err)
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			return f.fail(req, StateFailedExhausted, 0, fmt.Errorf("acquire fetch slot: %w", err))
		}
		req.attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		out := f.visit(attemptCtx, base, rawURL)
		cancel()
		sem.Release(1)

		if out.err == nil {
			metrics.ObserveFetch(rawURL, StateSucceeded.String(), len(out.page.Body))
			_ = req.transition(StateSucceeded)
			return Result{Page: out.page, State: StateSucceeded, Attempts: req.attempts}
		}

		kind := classify(out.err, out.status)
		metrics.ObserveFetch(rawURL, kind.String(), 0)
		switch {
		case ctx.Err() != nil:
			return f.fail(req, StateFailedExhausted, out.status, ctx.Err())
		case kind == KindPermanent:
			return f.fail(req, StateFailedPermanent, out.status, out.err)
		case req.retries >= opts.MaxRetries:
			return f.fail(req, StateFailedExhausted, out.status, out.err)
		}

		_ = req.transition(StateRetrying)
		delay := f.retry.Backoff(req.retries, out.status)
		f.logger.Debug("Retrying fetch",
			zap.String("url", rawURL),
			zap.Int("attempt", req.attempts),
			zap.Int("status", out.status),
			zap.Duration("backoff", delay),
			zap.Error(out.err))
		if err := sleepWithContext(ctx, delay); err != nil {
			return f.fail(req, StateFailedExhausted, out.status, err)
		}
	}
}

func (f *Fetcher) fail(req *request, to State, status int, cause error) Result {
	if !req.state.Terminal() {
		_ = req.transition(to)
	}
	kind := KindTransient
	if req.state == StateFailedPermanent {
		kind = KindPermanent
	}
	return Result{
		Err: &FetchError{
			URL:      req.url,
			Kind:     kind,
			Status:   status,
			Attempts: req.attempts,
			Err:      cause,
		},
		State:    req.state,
		Attempts: req.attempts,
	}
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch backoff sleep: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func withDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = def.MaxConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return opts
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", errInvalidURL, rawURL)
	}
	return nil
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
