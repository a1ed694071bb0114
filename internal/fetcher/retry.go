package fetcher

import (
	"crypto/rand"
	"math"
	"math/big"
	"net/http"
	"time"
)

// RetryPolicy computes jittered exponential backoff between attempts.
type RetryPolicy struct {
	BaseDelay      time.Duration
	RateLimitDelay time.Duration
	MaxDelay       time.Duration
}

// NewRetryPolicy returns a 1s base, 5s after HTTP 429, capped at 30s.
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		BaseDelay:      time.Second,
		RateLimitDelay: 5 * time.Second,
		MaxDelay:       30 * time.Second,
	}
}

// Backoff returns the wait before retry number retry (1-based). A 429 status
// uses the longer rate-limit base.
func (p *RetryPolicy) Backoff(retry int, status int) time.Duration {
	base := p.BaseDelay
	if status == http.StatusTooManyRequests && p.RateLimitDelay > 0 {
		base = p.RateLimitDelay
	}
	if retry < 1 {
		retry = 1
	}
	delay := float64(base) * math.Pow(2, float64(retry-1))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	jitter := p.randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

func (p *RetryPolicy) randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
