package recovery

import (
	"context"
	"time"
)

// Waiter holds for a fixed duration, calling tick roughly every interval with
// the time left. It returns early only when ctx is done.
type Waiter interface {
	Wait(ctx context.Context, d time.Duration, tick func(remaining time.Duration)) error
}

type ClockWaiter struct {
	Interval time.Duration
}

func (w ClockWaiter) Wait(ctx context.Context, d time.Duration, tick func(time.Duration)) error {
	if d <= 0 {
		return ctx.Err()
	}

	interval := w.Interval
	if interval <= 0 {
		interval = time.Second
	}

	deadline := time.Now().Add(d)
	done := time.NewTimer(d)
	defer done.Stop()
	t := time.NewTicker(interval)
	defer t.Stop()

	if tick != nil {
		tick(d)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done.C:
			return nil
		case <-t.C:
			if tick != nil {
				tick(max(time.Until(deadline).Round(time.Second), 0))
			}
		}
	}
}
