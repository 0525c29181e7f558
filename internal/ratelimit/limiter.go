// Package ratelimit implements fixed-window request quotas. Windows are
// aligned to wall clock, not sliding: a burst straddling a boundary can admit
// up to twice the limit. That is an accepted property of the scheme, kept
// deliberately rather than corrected.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrLimitExceeded = errors.New("rate limit exceeded")

// LimitError carries the retry-after hint alongside the sentinel; match it
// with errors.Is(err, ErrLimitExceeded) and extract via errors.As.
type LimitError struct {
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *LimitError) Is(target error) bool {
	return target == ErrLimitExceeded
}

// Limiter admits or rejects one request for the given identity key.
// CheckAndIncrement is atomic: concurrent calls for the same key never lose
// updates, and exactly limit calls succeed within one window.
type Limiter interface {
	CheckAndIncrement(ctx context.Context, key string, limit int) error
}

// windowStart truncates now to the enclosing fixed window boundary.
func windowStart(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window)
}
