// Package retry re-executes units of work on transient failure with
// exponential backoff and jitter. Control flow is result/error only:
// the final attempt's error propagates unchanged, nothing panics.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Options parameterizes one retry loop.
type Options struct {
	MaxTries int           // total attempts, default 3
	Delay    time.Duration // initial sleep, default 1s
	Backoff  float64       // sleep multiplier per attempt, default 2.0
	Jitter   bool          // multiply sleep by 1 + rand*0.1

	// IsRetryable decides whether a failure qualifies for another
	// attempt. Defaults to Retryable.
	IsRetryable func(error) bool

	// OnRetry is invoked before each backoff sleep.
	OnRetry func(err error, attempt int, sleep time.Duration)
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.MaxTries <= 0 {
		out.MaxTries = 3
	}
	if out.Delay <= 0 {
		out.Delay = time.Second
	}
	if out.Backoff <= 1 {
		out.Backoff = 2.0
	}
	if out.IsRetryable == nil {
		out.IsRetryable = Retryable
	}
	return out
}

// Do runs fn up to MaxTries times. A non-retryable failure, or the
// final attempt's failure, is returned to the caller as-is. The backoff
// sleep respects ctx cancellation.
func Do(ctx context.Context, opts Options, fn func(ctx context.Context) error) error {
	opts = opts.withDefaults()

	delay := opts.Delay
	var err error
	for attempt := 1; attempt <= opts.MaxTries; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == opts.MaxTries || !opts.IsRetryable(err) {
			return err
		}

		sleep := delay
		if opts.Jitter {
			sleep = time.Duration(float64(sleep) * (1 + rand.Float64()*0.1))
		}
		if opts.OnRetry != nil {
			opts.OnRetry(err, attempt, sleep)
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * opts.Backoff)
	}
	return err
}
