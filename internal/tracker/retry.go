package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	vlog "github.com/futureCreator/renote/internal/log"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryPolicy configures Retrier.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Jitter         float64
}

// Retrier runs tracker operations, retrying TransientError with exponential
// backoff. A reset hint on the error replaces the backoff delay when longer.
type Retrier struct {
	Policy RetryPolicy
	Sleep  Sleeper
}

// NewRetrier returns a Retrier that sleeps on the wall clock.
func NewRetrier(p RetryPolicy) *Retrier {
	return &Retrier{Policy: p, Sleep: SleepContext}
}

func (r *Retrier) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.Policy.InitialBackoff
	exp.MaxInterval = r.Policy.MaxBackoff
	exp.RandomizationFactor = r.Policy.Jitter
	exp.MaxElapsedTime = 0 // bounded by attempts and the run deadline instead

	attempts := r.Policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
	b.Reset()
	return b
}

// Do runs op until it succeeds, fails permanently, or attempts run out.
// label identifies the operation in errors and logs.
func (r *Retrier) Do(ctx context.Context, label string, op func(ctx context.Context) error) error {
	sleep := r.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	b := r.backOff(ctx)

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &FetchExhaustedError{Query: label, Attempts: attempt, Err: ctxErr}
		}

		var te *TransientError
		if !errors.As(err, &te) {
			return err
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return &FetchExhaustedError{Query: label, Attempts: attempt, Err: err}
		}
		if te.RetryAfter > wait {
			wait = te.RetryAfter
		}

		vlog.Warn("transient tracker error, retrying",
			"query", label, "attempt", attempt, "wait", wait, "err", te.Err)

		if err := sleep(ctx, wait); err != nil {
			return &FetchExhaustedError{Query: label, Attempts: attempt, Err: err}
		}
	}
}
