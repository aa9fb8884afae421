package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func TestAttemptSucceedsAfterFailures(t *testing.T) {
	var failures []int
	p := Policy{
		MaxRetries: 3,
		Delay:      time.Millisecond,
		OnFailure:  func(attempt int, _ error) { failures = append(failures, attempt) },
	}

	got, err := Attempt(context.Background(), p, func(_ context.Context, attempt int) (string, error) {
		if attempt < 3 {
			return "", errFlaky
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, []int{1, 2}, failures)
}

func TestAttemptExhausts(t *testing.T) {
	calls := 0
	p := Policy{MaxRetries: 2}

	_, err := Attempt(context.Background(), p, func(context.Context, int) (int, error) {
		calls++
		return 0, errFlaky
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 3, calls, "maxRetries+1 attempts in total")

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 3, ex.Attempts)
}

func TestAttemptStopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	p := Policy{
		MaxRetries: 5,
		Retryable:  func(err error) bool { return !errors.Is(err, fatal) },
	}

	_, err := Attempt(context.Background(), p, func(context.Context, int) (int, error) {
		calls++
		return 0, fatal
	})
	assert.ErrorIs(t, err, fatal)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
}

func TestAttemptZeroRetries(t *testing.T) {
	calls := 0
	_, err := Attempt(context.Background(), Policy{MaxRetries: -1}, func(context.Context, int) (int, error) {
		calls++
		return 0, errFlaky
	})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
}

func TestAttemptHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := Attempt(ctx, Policy{MaxRetries: 10, Delay: time.Hour}, func(context.Context, int) (int, error) {
		calls++
		cancel()
		return 0, errFlaky
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
