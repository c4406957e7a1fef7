package resilience

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBreaker(maxFailures int, openTimeout time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "test",
		MaxFailures: maxFailures,
		OpenTimeout: openTimeout,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()
	cb := newBreaker(2, time.Hour)
	boom := errors.New("boom")

	calls := 0
	op := func(context.Context) error { calls++; return boom }

	assert.ErrorIs(t, cb.Execute(t.Context(), op), boom)
	assert.ErrorIs(t, cb.Execute(t.Context(), op), boom)
	assert.Equal(t, StateOpen, cb.State())

	assert.ErrorIs(t, cb.Execute(t.Context(), op), ErrCircuitOpen)
	assert.Equal(t, 2, calls)
}

func TestCircuitBreakerRecovers(t *testing.T) {
	t.Parallel()
	cb := newBreaker(1, 20*time.Millisecond)

	require.Error(t, cb.Execute(t.Context(), func(context.Context) error { return errors.New("down") }))
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(t.Context(), func(context.Context) error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	t.Parallel()
	cb := newBreaker(1, time.Hour)

	err := cb.Execute(t.Context(), func(context.Context) error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "CLOSED", StateClosed.String())
	assert.Equal(t, "HALF-OPEN", StateHalfOpen.String())
	assert.Equal(t, "OPEN", StateOpen.String())
	assert.Equal(t, "UNKNOWN", CircuitState(9).String())
}
