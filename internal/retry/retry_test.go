package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestDoSucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	var retried []int
	err := Do(t.Context(), Policy{MaxRetries: 3, BaseDelay: time.Millisecond},
		nil,
		func(attempt int, _ time.Duration, _ error) { retried = append(retried, attempt) },
		func(context.Context) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	permanent := errors.New("bad request")
	calls := 0
	err := Do(t.Context(), Policy{MaxRetries: 5, BaseDelay: time.Millisecond},
		func(err error) bool { return errors.Is(err, errTransient) },
		nil,
		func(context.Context) error {
			calls++
			return permanent
		})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsPolicy(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(t.Context(), Policy{MaxRetries: 2}, nil, nil, func(context.Context) error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
}

func TestDoHonorsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := Do(ctx, Policy{MaxRetries: 5, BaseDelay: time.Hour}, nil, nil, func(context.Context) error {
		return errTransient
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicyDelay(t *testing.T) {
	t.Parallel()

	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, 100*time.Millisecond, p.Delay(1))
	assert.Equal(t, 200*time.Millisecond, p.Delay(2))
	assert.Equal(t, 800*time.Millisecond, p.Delay(4))
	assert.Equal(t, time.Second, p.Delay(5))
	assert.Equal(t, time.Second, p.Delay(80))
	assert.Equal(t, time.Duration(0), Policy{}.Delay(3))
}
