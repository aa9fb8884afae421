// Package retry runs one logical operation under a bounded retry budget with
// a fixed delay between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

var ErrExhausted = errors.New("retry budget exhausted")

// ExhaustedError is returned when every allowed attempt failed with a
// retryable error. Last is the final failure.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%d attempts failed: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

func (e *ExhaustedError) Unwrap() error { return e.Last }

type Policy struct {
	// MaxRetries is the number of attempts after the first. Negative is
	// treated as zero.
	MaxRetries int
	Delay      time.Duration

	// Retryable decides whether a failure may be retried. Nil retries every
	// error except context cancellation.
	Retryable func(error) bool

	// OnFailure is called after each failed attempt.
	OnFailure func(attempt int, err error)
}

func (p Policy) Attempts() int {
	return max(p.MaxRetries, 0) + 1
}

func (p Policy) retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

// Attempt executes op up to p.Attempts() times. attempt is 1-based. A
// non-retryable error stops the loop and is returned as is; running out of
// attempts yields an *ExhaustedError.
func Attempt[T any](ctx context.Context, p Policy, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	builder := retrypolicy.NewBuilder[T]().
		WithMaxRetries(max(p.MaxRetries, 0)).
		HandleIf(func(_ T, err error) bool {
			return p.retryable(err) && ctx.Err() == nil
		}).
		ReturnLastFailure()
	if p.Delay > 0 {
		builder = builder.WithDelay(p.Delay)
	}
	rp := builder.Build()

	var (
		attempts int
		last     error
	)

	out, err := failsafe.With[T](rp).WithContext(ctx).Get(func() (T, error) {
		attempts++
		v, opErr := op(ctx, attempts)
		last = opErr
		if opErr != nil && p.OnFailure != nil {
			p.OnFailure(attempts, opErr)
		}
		return v, opErr
	})
	if err == nil {
		return out, nil
	}

	var zero T
	if cerr := ctx.Err(); cerr != nil {
		return zero, cerr
	}
	if last == nil {
		return zero, err
	}
	if p.retryable(last) && attempts >= p.Attempts() {
		return zero, &ExhaustedError{Attempts: attempts, Last: last}
	}

	return zero, last
}
