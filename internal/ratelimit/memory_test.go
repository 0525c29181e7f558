package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(start time.Time) (*MemoryLimiter, *time.Time) {
	clock := start
	l := NewMemoryLimiter(time.Minute)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestMemoryLimiterAdmitsExactlyLimit(t *testing.T) {
	l, _ := newTestLimiter(time.Date(2024, 5, 1, 12, 0, 10, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.CheckAndIncrement(ctx, "ask:user:1", 5), "call %d should be admitted", i+1)
	}

	err := l.CheckAndIncrement(ctx, "ask:user:1", 5)
	require.ErrorIs(t, err, ErrLimitExceeded)

	var limitErr *LimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Greater(t, limitErr.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, limitErr.RetryAfter, time.Minute)
}

func TestMemoryLimiterWindowRollover(t *testing.T) {
	l, clock := newTestLimiter(time.Date(2024, 5, 1, 12, 0, 59, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.CheckAndIncrement(ctx, "k", 3))
	}
	require.ErrorIs(t, l.CheckAndIncrement(ctx, "k", 3), ErrLimitExceeded)

	// Next wall-clock minute: counting restarts at zero.
	*clock = clock.Add(2 * time.Second)
	for i := 0; i < 3; i++ {
		require.NoError(t, l.CheckAndIncrement(ctx, "k", 3))
	}
	require.ErrorIs(t, l.CheckAndIncrement(ctx, "k", 3), ErrLimitExceeded)
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	require.NoError(t, l.CheckAndIncrement(ctx, "register:ip:10.0.0.1", 1))
	require.ErrorIs(t, l.CheckAndIncrement(ctx, "register:ip:10.0.0.1", 1), ErrLimitExceeded)
	require.NoError(t, l.CheckAndIncrement(ctx, "register:ip:10.0.0.2", 1))
}

func TestMemoryLimiterConcurrentNoLostUpdates(t *testing.T) {
	l, _ := newTestLimiter(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	const workers = 50
	const limit = 20

	var wg sync.WaitGroup
	admitted := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.CheckAndIncrement(ctx, "k", limit) == nil {
				admitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(admitted)

	assert.Equal(t, limit, len(admitted))
}

func TestRetryAfterHintPointsAtWindowEnd(t *testing.T) {
	l, _ := newTestLimiter(time.Date(2024, 5, 1, 12, 0, 45, 0, time.UTC))
	ctx := context.Background()

	require.NoError(t, l.CheckAndIncrement(ctx, "k", 1))
	err := l.CheckAndIncrement(ctx, "k", 1)

	var limitErr *LimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 15*time.Second, limitErr.RetryAfter)
}
