// Package retry repeats operations that fail transiently.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"git.home.luguber.info/inful/recreate-skps/internal/config"
	ferrors "git.home.luguber.info/inful/recreate-skps/internal/foundation/errors"
)

// Policy is how many times, and how patiently, an operation is retried.
type Policy struct {
	Backoff config.RetryBackoffMode
	Initial time.Duration
	Max     time.Duration
	Retries int // attempts after the first
}

// Default is linear backoff from one second, capped at 30s, two retries.
func Default() Policy {
	return Policy{Backoff: config.RetryBackoffLinear, Initial: time.Second, Max: 30 * time.Second, Retries: 2}
}

// NewPolicy fills zero or unknown values from Default and clamps Initial to Max.
func NewPolicy(backoff config.RetryBackoffMode, initial, maxDelay time.Duration, retries int) Policy {
	p := Default()
	switch backoff {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Backoff = backoff
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDelay > 0 {
		p.Max = maxDelay
	}
	if retries >= 0 {
		p.Retries = retries
	}
	p.Initial = min(p.Initial, p.Max)
	return p
}

// FromConfig builds a policy from a retry config section.
func FromConfig(rc config.RetryConfig) Policy {
	initial, _ := time.ParseDuration(rc.InitialDelay)
	maxDelay, _ := time.ParseDuration(rc.MaxDelay)
	return NewPolicy(config.NormalizeRetryBackoff(string(rc.Backoff)), initial, maxDelay, rc.MaxRetries)
}

// Delay is the wait before retry n (1-based).
func (p Policy) Delay(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Backoff {
	case config.RetryBackoffFixed:
		d = p.Initial
	case config.RetryBackoffExponential:
		if n > 30 {
			return p.Max
		}
		d = p.Initial << (n - 1)
	default:
		d = p.Initial * time.Duration(n)
	}
	if d <= 0 || d > p.Max {
		return p.Max
	}
	return d
}

type options struct {
	stop    []func(error) bool
	onRetry func(int, error)
}

// Option adjusts a single Do call.
type Option func(*options)

// StopOn adds a rule that makes an error final. Errors from canceled contexts
// and classified errors not marked retryable are always final.
func StopOn(rule func(error) bool) Option {
	return func(o *options) { o.stop = append(o.stop, rule) }
}

// OnRetry is called before each retry with its 1-based number and the error
// that caused it.
func OnRetry(fn func(n int, err error)) Option {
	return func(o *options) { o.onRetry = fn }
}

// Final reports whether err should end retrying regardless of remaining budget.
func Final(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if _, ok := ferrors.AsClassified(err); ok {
		return !ferrors.IsRetryable(err)
	}
	return false
}

// Do runs op until it succeeds, fails finally, or the retry budget is spent.
func (p Policy) Do(ctx context.Context, op func(context.Context) error, opts ...Option) error {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	final := func(err error) bool {
		if Final(err) {
			return true
		}
		for _, rule := range o.stop {
			if rule(err) {
				return true
			}
		}
		return false
	}

	var err error
	for n := 0; ; n++ {
		if n > 0 {
			if o.onRetry != nil {
				o.onRetry(n, err)
			}
			t := time.NewTimer(p.Delay(n))
			select {
			case <-ctx.Done():
				t.Stop()
				return errors.Join(err, ctx.Err())
			case <-t.C:
			}
		}
		if err = op(ctx); err == nil || final(err) {
			return err
		}
		if n >= p.Retries {
			return fmt.Errorf("gave up after %d attempts: %w", n+1, err)
		}
	}
}
