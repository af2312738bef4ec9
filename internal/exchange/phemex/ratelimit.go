package phemex

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"phemex-martingale-bot/internal/metrics"
)

// Limiter is a token bucket shared across every request the Adapter
// issues (spec.md §4.1 "Rate limiting"). It is safe for concurrent use;
// Wait blocks the caller until a token is available or ctx is cancelled,
// so an outer tick deadline can cancel a waiting caller.
type Limiter struct {
	bucket  *rate.Limiter
	metrics *metrics.Metrics
}

// NewLimiter builds a bucket refilling at rps tokens/second with burst
// capacity burst. m may be nil, in which case wait times are not
// observed.
func NewLimiter(rps float64, burst int, m *metrics.Metrics) *Limiter {
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(rps), burst), metrics: m}
}

// Wait blocks until admission is granted or ctx is done. A context
// cancellation or deadline surfaces as ErrCancelled, never the raw
// context error, so callers can match uniformly against the taxonomy.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	err := l.bucket.Wait(ctx)
	if l.metrics != nil {
		l.metrics.RateLimitWaitSeconds.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return ErrCancelled
	}
	return nil
}
