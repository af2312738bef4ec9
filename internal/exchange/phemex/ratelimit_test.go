package phemex

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_BurstAdmitsImmediately(t *testing.T) {
	l := NewLimiter(1000, 3, nil)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiter_ThrottlesBeyondBurst(t *testing.T) {
	l := NewLimiter(50, 1, nil) // one token every 20ms after the burst is spent
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx)) // consumes the single burst token

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestLimiter_ContextAlreadyCancelledReturnsErrCancelled(t *testing.T) {
	l := NewLimiter(1, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, l.Wait(context.Background())) // spend the burst token
	err := l.Wait(ctx)
	assert.ErrorIs(t, err, ErrCancelled)
}

// TestLimiter_ConcurrentWaitersAllEventuallyAdmitted is the fairness
// property: every concurrent caller is eventually admitted (none starved
// forever) once enough tokens have refilled, regardless of arrival order.
func TestLimiter_ConcurrentWaitersAllEventuallyAdmitted(t *testing.T) {
	l := NewLimiter(200, 5, nil)
	ctx := context.Background()

	const callers = 20
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			errs[idx] = l.Wait(ctx)
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not every concurrent waiter was admitted in time")
	}

	for _, err := range errs {
		assert.NoError(t, err)
	}
}
