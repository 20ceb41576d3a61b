package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"git.home.luguber.info/inful/recreate-skps/internal/config"
	ferrors "git.home.luguber.info/inful/recreate-skps/internal/foundation/errors"
)

func fast(retries int) Policy {
	return NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, retries)
}

func TestNewPolicy(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, 5*time.Second, 2*time.Second, 5)
	if p.Initial != 2*time.Second || p.Backoff != config.RetryBackoffFixed || p.Retries != 5 {
		t.Fatalf("unexpected policy %+v", p)
	}

	p = NewPolicy("bogus", 0, 0, -1)
	if p != Default() {
		t.Fatalf("zero values should fall back to defaults, got %+v", p)
	}
}

func TestFromConfig(t *testing.T) {
	p := FromConfig(config.RetryConfig{MaxRetries: 4, Backoff: "Exponential", InitialDelay: "200ms", MaxDelay: "1s"})
	if p.Backoff != config.RetryBackoffExponential || p.Initial != 200*time.Millisecond || p.Max != time.Second || p.Retries != 4 {
		t.Fatalf("unexpected policy %+v", p)
	}

	p = FromConfig(config.RetryConfig{MaxRetries: 1, Backoff: "bogus", InitialDelay: "nope"})
	if p.Backoff != config.RetryBackoffLinear || p.Initial != time.Second {
		t.Fatalf("invalid fields should fall back to defaults, got %+v", p)
	}
}

func TestDelay(t *testing.T) {
	ms := time.Millisecond
	cases := []struct {
		name   string
		policy Policy
		want   []time.Duration
	}{
		{"fixed", NewPolicy(config.RetryBackoffFixed, 100*ms, 500*ms, 3), []time.Duration{0, 100 * ms, 100 * ms, 100 * ms}},
		{"linear", NewPolicy(config.RetryBackoffLinear, 100*ms, 250*ms, 5), []time.Duration{0, 100 * ms, 200 * ms, 250 * ms}},
		{"exponential", NewPolicy(config.RetryBackoffExponential, 50*ms, 160*ms, 5), []time.Duration{0, 50 * ms, 100 * ms, 160 * ms}},
	}
	for _, tc := range cases {
		for n, want := range tc.want {
			if got := tc.policy.Delay(n); got != want {
				t.Errorf("%s retry %d: want %v got %v", tc.name, n, want, got)
			}
		}
	}
	if got := Default().Delay(-1); got != 0 {
		t.Errorf("negative retry: got %v", got)
	}
	exp := NewPolicy(config.RetryBackoffExponential, time.Second, time.Minute, 100)
	if got := exp.Delay(80); got != time.Minute {
		t.Errorf("large exponent should cap at max, got %v", got)
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	var retried []int
	err := fast(3).Do(t.Context(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	}, OnRetry(func(n int, _ error) { retried = append(retried, n) }))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 || fmt.Sprint(retried) != "[1 2]" {
		t.Fatalf("calls=%d retries=%v", calls, retried)
	}
}

func TestDoStops(t *testing.T) {
	denied := errors.New("permission denied")
	cases := []struct {
		name string
		err  error
		opts []Option
	}{
		{"stop rule", denied, []Option{StopOn(func(err error) bool { return errors.Is(err, denied) })}},
		{"classified not retryable", ferrors.CredentialError("metadata 403").Build(), nil},
		{"canceled", fmt.Errorf("clone: %w", context.Canceled), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			err := fast(5).Do(t.Context(), func(context.Context) error { calls++; return tc.err }, tc.opts...)
			if !errors.Is(err, tc.err) || calls != 1 {
				t.Fatalf("calls=%d err=%v", calls, err)
			}
		})
	}
}

func TestDoRetriesRetryableClassifiedErrors(t *testing.T) {
	calls := 0
	err := fast(2).Do(t.Context(), func(context.Context) error {
		calls++
		return ferrors.NetworkError("metadata unavailable").Build()
	})
	if calls != 3 || !ferrors.HasCategory(err, ferrors.CategoryNetwork) {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}

func TestDoHonorsCancellation(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Hour, time.Hour, 2)
	ctx, cancel := context.WithCancel(t.Context())
	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}
