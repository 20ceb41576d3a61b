package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("builder", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		err := WrapError(cause, CategoryNetwork, "metadata request failed").
			Retryable().
			WithContext("url", "http://metadata/computeMetadata").
			WithContext("attempt", 2).
			Build()

		if err.Category() != CategoryNetwork || err.Message() != "metadata request failed" {
			t.Errorf("unexpected error %+v", err)
		}
		if !err.Retryable() || err.NeedsUserAction() {
			t.Error("expected a retryable error that needs no user action")
		}
		if !errors.Is(err, cause) {
			t.Error("expected error to wrap its cause")
		}
		if v, ok := err.Field("attempt"); !ok || v != 2 {
			t.Errorf("attempt field = %v, %v", v, ok)
		}
	})

	t.Run("user action clears retryable", func(t *testing.T) {
		err := CheckoutError("authentication failed").UserAction().Build()
		if err.Retryable() || !err.NeedsUserAction() {
			t.Errorf("retryable=%t userAction=%t", err.Retryable(), err.NeedsUserAction())
		}
	})

	t.Run("detection through wrapping", func(t *testing.T) {
		inner := CredentialError("fetch gitcookies").Build()
		wrapped := fmt.Errorf("upload stage: %w", inner)

		if !HasCategory(wrapped, CategoryCredential) {
			t.Error("expected wrapped error to keep credential category")
		}
		if CategoryOf(wrapped) != CategoryCredential {
			t.Errorf("CategoryOf() = %s", CategoryOf(wrapped))
		}
		if CategoryOf(errors.New("plain")) != CategoryInternal {
			t.Error("expected unclassified errors to map to internal")
		}
		if IsRetryable(errors.New("plain")) || IsRetryable(wrapped) {
			t.Error("only errors marked retryable are retryable")
		}
		if !IsRetryable(fmt.Errorf("x: %w", NetworkError("timeout").Build())) {
			t.Error("network errors are retryable by default")
		}
	})
}

func TestErrorMessageFormat(t *testing.T) {
	plain := BuildError("ninja failed").Build()
	if got, want := plain.Error(), "[build] ninja failed"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := WrapError(errors.New("exit status 1"), CategoryUpload, "upload SKPs").Build()
	if got, want := wrapped.Error(), "[upload] upload SKPs: exit status 1"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestSentinelMatching(t *testing.T) {
	sentinel := CaptureError("capture tool failed").Build()
	derived := sentinel.WithContext("target_dir", "/tmp/skp_output")

	if !errors.Is(derived, sentinel) {
		t.Error("expected context-derived error to match its sentinel")
	}
	if _, ok := sentinel.Field("target_dir"); ok {
		t.Error("WithContext must not mutate the sentinel")
	}
	if errors.Is(derived, CaptureError("other").Build()) {
		t.Error("different message should not match")
	}
}

func TestLogAttrs(t *testing.T) {
	err := WrapError(errors.New("403"), CategoryCredential, "metadata denied").
		WithContext("url", "u").
		WithContext("status", 403).
		Build()

	var keys []string
	for _, a := range err.LogAttrs() {
		keys = append(keys, a.Key)
	}
	want := []string{"category", "cause", "status", "url"}
	if fmt.Sprint(keys) != fmt.Sprint(want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}
	if got := err.LogAttrs()[0]; !got.Equal(slog.String("category", "credential")) {
		t.Errorf("first attr = %v", got)
	}
}

func TestExitCodes(t *testing.T) {
	cases := map[ErrorCategory]int{
		CategoryValidation: 2,
		CategoryCredential: 5,
		CategoryConfig:     7,
		CategoryCheckout:   8,
		CategoryBuild:      11,
		CategoryUpload:     13,
		CategoryHistory:    12,
		CategoryCanceled:   130,
		ErrorCategory("x"): 1,
	}
	for cat, want := range cases {
		if got := cat.ExitCode(); got != want {
			t.Errorf("%s.ExitCode() = %d, want %d", cat, got, want)
		}
	}
}
