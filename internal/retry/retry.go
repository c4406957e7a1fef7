// Package retry runs calls to external services with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	retrygo "github.com/avast/retry-go/v4"
)

// Policy bounds a retry loop. MaxRetries counts retries after the first
// attempt, so MaxRetries 0 means a single call.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Delay returns the wait before retry number attempt (starting at 1).
func (p Policy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 || attempt < 1 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempt && d < math.MaxInt64/2; i++ {
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			break
		}
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do calls fn until it succeeds, returns an error retriable rejects, the
// policy is exhausted, or ctx is done. onRetry, when set, is called before
// each wait.
func Do(
	ctx context.Context,
	p Policy,
	retriable func(error) bool,
	onRetry func(attempt int, delay time.Duration, err error),
	fn func(ctx context.Context) error,
) error {
	maxRetries := max(p.MaxRetries, 0)
	if retriable == nil {
		retriable = func(error) bool { return true }
	}

	var lastErr error
	err := retrygo.Do(
		func() error {
			lastErr = fn(ctx)
			return lastErr
		},
		retrygo.Context(ctx),
		retrygo.Attempts(uint(maxRetries+1)),
		retrygo.DelayType(func(n uint, _ error, _ *retrygo.Config) time.Duration {
			return p.Delay(int(n))
		}),
		retrygo.RetryIf(retriable),
		retrygo.LastErrorOnly(true),
		retrygo.OnRetry(func(n uint, err error) {
			// retry-go also reports the final failed attempt; only waits count.
			if onRetry != nil && int(n) < maxRetries {
				onRetry(int(n)+1, p.Delay(int(n)+1), err)
			}
		}),
	)

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) && lastErr != nil && !errors.Is(lastErr, ctxErr) {
		return fmt.Errorf("retry aborted: %w (last error: %v)", ctxErr, lastErr)
	}
	return err
}
