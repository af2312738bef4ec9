package workflow

import "sync"

// CircuitBreaker tracks the rolling execution-error rate across the
// instruments processed within one tick, adapted from the teacher's
// exec.CircuitBreakerState (error-rate breaker only — the
// volatility/imbalance/volume breakers there have no analogue here
// since Engine already gates on volatility/decline directly). Tripping
// suppresses new order placement for the remainder of the tick; gather
// and alert still run per instrument (spec.md §4.4's per-instrument
// isolation is a separate, narrower guarantee this augments).
type CircuitBreaker struct {
	mu                 sync.Mutex
	errorRateThreshold float64
	attempts, failures int
}

// NewCircuitBreaker builds a breaker that trips once the observed
// execution-error rate exceeds errorRateThreshold (e.g. 0.5 for 50%).
func NewCircuitBreaker(errorRateThreshold float64) *CircuitBreaker {
	return &CircuitBreaker{errorRateThreshold: errorRateThreshold}
}

// RecordAttempt registers one execute-stage attempt and whether it
// failed.
func (cb *CircuitBreaker) RecordAttempt(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.attempts++
	if failed {
		cb.failures++
	}
}

// Tripped reports whether the rolling error rate has exceeded the
// threshold. Requires at least two attempts so a single early failure
// can't trip the breaker for an entire tick.
func (cb *CircuitBreaker) Tripped() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.attempts < 2 {
		return false
	}
	return float64(cb.failures)/float64(cb.attempts) > cb.errorRateThreshold
}

// Reset clears accumulated counts. cmd/tick does not call it; it builds a
// fresh CircuitBreaker for every tick instead.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.attempts, cb.failures = 0, 0
}
