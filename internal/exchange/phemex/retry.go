package phemex

import (
	"context"
	"math/rand"
	"time"

	"phemex-martingale-bot/internal/common"
	"phemex-martingale-bot/internal/metrics"
)

// withRetry calls op once and, on a retryable (TransientIOError) failure,
// retries it up to common.DefaultRetryMaxAttempts more times, with exponential backoff and
// jitter (spec.md §4.1 "Retry policy"). Auth, validation, and success are
// terminal: the first such result returns immediately. An error that
// exhausts all attempts propagates unchanged — it is never swallowed. m
// may be nil, in which case retries are not counted.
func withRetry(ctx context.Context, m *metrics.Metrics, op func() error) error {
	delay := common.DefaultRetryBaseDelay

	var err error
	for attempt := 0; attempt <= common.DefaultRetryMaxAttempts; attempt++ {
		err = op()
		if err == nil || !retryable(err) {
			return err
		}

		if attempt == common.DefaultRetryMaxAttempts {
			break
		}

		if m != nil {
			m.AdapterRetries.Inc()
		}

		wait := jitter(delay, common.DefaultRetryJitter)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ErrCancelled
		}
		delay = time.Duration(float64(delay) * common.DefaultRetryFactor)
	}
	return err
}

// jitter applies a uniform ±fraction perturbation to d.
func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * fraction
	return time.Duration(float64(d) * (1 + delta))
}
