// Package recovery escalates an operation whose retry budget ran out: it
// cools down, rebuilds the network client and re-attempts the operation once,
// bounded by a per-session recovery budget.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brogergvhs/bookharvest/internal/retry"
	"github.com/brogergvhs/bookharvest/internal/ui"
)

var ErrBudgetExhausted = errors.New("recovery budget exhausted")

// Budget counts escalations since the last operation that succeeded without
// one. Used never exceeds Max.
type Budget struct {
	Used int
	Max  int
}

// Armed reports whether another escalation is allowed.
func (b Budget) Armed() bool { return b.Used < b.Max }

func (b Budget) Remaining() int { return max(b.Max-b.Used, 0) }

// ExhaustedError ends a session: the controller is disarmed and the last
// recovery attempt failed.
type ExhaustedError struct {
	Site       string
	Recoveries int
	Last       error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %v after %d recoveries: %v", e.Site, ErrBudgetExhausted, e.Recoveries, e.Last)
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrBudgetExhausted }

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Resetter discards and rebuilds the network client.
type Resetter interface {
	Reset() error
}

// Countdown renders cooldown progress.
type Countdown interface {
	Tick(remaining time.Duration)
	Done()
}

type Config struct {
	Enabled       bool
	Cooldown      time.Duration
	MaxRecoveries int
}

type Controller struct {
	cfg      Config
	budget   Budget
	total    int
	resetter Resetter
	waiter   Waiter
	log      *ui.Logger

	countdown  func(label string, total time.Duration) Countdown
	onEscalate func(site string)
}

type Option func(*Controller)

func WithWaiter(w Waiter) Option {
	return func(c *Controller) { c.waiter = w }
}

func WithLogger(l *ui.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func WithCountdown(fn func(label string, total time.Duration) Countdown) Option {
	return func(c *Controller) { c.countdown = fn }
}

// OnEscalate is called each time the budget is charged.
func OnEscalate(fn func(site string)) Option {
	return func(c *Controller) { c.onEscalate = fn }
}

// NewController returns a controller that starts disarmed when recovery is
// disabled or the budget is zero.
func NewController(cfg Config, r Resetter, opts ...Option) *Controller {
	maxRec := max(cfg.MaxRecoveries, 0)
	if !cfg.Enabled {
		maxRec = 0
	}

	c := &Controller{
		cfg:      cfg,
		budget:   Budget{Max: maxRec},
		resetter: r,
		waiter:   ClockWaiter{Interval: time.Second},
		log:      ui.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller) Budget() Budget { return c.budget }

func (c *Controller) Armed() bool { return c.budget.Armed() }

// Escalations is the number of recovery cycles run in this session.
func (c *Controller) Escalations() int { return c.total }

func (c *Controller) succeeded() { c.budget.Used = 0 }

func (c *Controller) charge(site string) {
	c.budget.Used++
	c.total++
	if c.onEscalate != nil {
		c.onEscalate(site)
	}
}

func (c *Controller) cooldown(ctx context.Context, site string) error {
	total := c.cfg.Cooldown

	var cd Countdown
	if c.countdown != nil {
		cd = c.countdown(fmt.Sprintf("recovery %d/%d", c.budget.Used, c.budget.Max), total)
	}

	err := c.waiter.Wait(ctx, total, func(remaining time.Duration) {
		secs := int(remaining / time.Second)
		if cd != nil {
			cd.Tick(remaining)
		}
		if remaining >= total || secs <= 0 || (secs%10 != 0 && secs > 10) {
			return
		}
		// Without a countdown bar the log is the only sign of life.
		if cd != nil {
			c.log.WithField("site", site).Debugf("recovery in %ds", secs)
		} else {
			c.log.WithField("site", site).Infof("recovery in %ds", secs)
		}
	})

	if cd != nil {
		cd.Done()
	}
	return err
}

// State is the position of one operation in the escalation loop.
type State int

const (
	Retrying State = iota
	Recovering
	Done
)

func (s State) String() string {
	switch s {
	case Retrying:
		return "retrying"
	case Recovering:
		return "recovering"
	default:
		return "done"
	}
}

// Operation is one logical unit of work with its two execution paths.
type Operation[T any] struct {
	Site   string
	Policy retry.Policy

	// Attempt is the ordinary path, run under Policy.
	Attempt func(ctx context.Context, attempt int) (T, error)

	// Recover is the single re-attempt made after a cooldown and client
	// rebuild. Nil reuses Attempt.
	Recover func(ctx context.Context) (T, error)

	// Escalate reports whether an exhausted failure may enter recovery.
	// Nil escalates everything.
	Escalate func(error) bool
}

// Run executes op, escalating to recovery each time the retry budget is
// spent, until it succeeds, fails with a non-escalatable error, or the
// controller is disarmed.
func Run[T any](ctx context.Context, c *Controller, op Operation[T]) (T, error) {
	var (
		zero    T
		result  T
		lastErr error
	)

	recoverOnce := op.Recover
	if recoverOnce == nil {
		recoverOnce = func(ctx context.Context) (T, error) { return op.Attempt(ctx, op.Policy.Attempts()+1) }
	}

	log := c.log.WithField("site", op.Site)
	state := Retrying

	for {
		switch state {
		case Retrying:
			v, err := retry.Attempt(ctx, op.Policy, op.Attempt)
			if err == nil {
				c.succeeded()
				return v, nil
			}
			if !errors.Is(err, retry.ErrExhausted) {
				return zero, err
			}
			if op.Escalate != nil && !op.Escalate(err) {
				return zero, err
			}
			lastErr = err
			state = Recovering

		case Recovering:
			if !c.Armed() {
				log.Errorf("retries and recoveries exhausted (%d/%d)", c.budget.Used, c.budget.Max)
				return zero, &ExhaustedError{Site: op.Site, Recoveries: c.total, Last: lastErr}
			}

			c.charge(op.Site)
			log.WithFields(ui.Fields{
				"recovery":  c.budget.Used,
				"remaining": c.budget.Remaining(),
				"cooldown":  c.cfg.Cooldown,
			}).Warnf("auto-recovery started: %v", lastErr)

			if err := c.cooldown(ctx, op.Site); err != nil {
				return zero, err
			}

			if c.resetter != nil {
				if err := c.resetter.Reset(); err != nil {
					lastErr = err
					log.Errorf("client rebuild failed: %v", err)
					continue
				}
			}

			v, err := recoverOnce(ctx)
			if err != nil {
				if cerr := ctx.Err(); cerr != nil {
					return zero, cerr
				}
				if op.Escalate != nil && !op.Escalate(err) {
					return zero, err
				}
				lastErr = err
				log.Warnf("recovery attempt failed: %v", err)
				continue
			}

			log.Infof("recovery succeeded")
			result = v
			state = Done

		case Done:
			return result, nil
		}
	}
}
