package errors

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation", err: ValidationError("bad --kind").Build(), expected: 2},
		{name: "credential", err: CredentialError("metadata 403").Build(), expected: 5},
		{name: "config", err: ConfigError("bad config").Build(), expected: 7},
		{name: "checkout", err: CheckoutError("clone failed").Build(), expected: 8},
		{name: "build", err: BuildError("ninja failed").Build(), expected: 11},
		{name: "capture", err: CaptureError("create.py failed").Build(), expected: 11},
		{name: "upload", err: UploadError("upload_skps.py failed").Build(), expected: 13},
		{name: "wrapped upload", err: fmt.Errorf("stage: %w", UploadError("x").Build()), expected: 13},
		{name: "canceled", err: NewError(CategoryCanceled, "interrupted").Build(), expected: 130},
		{name: "unclassified", err: errors.New("unknown error"), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	err := WrapError(errors.New("exit status 1"), CategoryBuild, "Build Chrome failed").Build()

	quiet := NewCLIErrorAdapter(false, nil)
	if got := quiet.FormatError(err); got != "Error: Build Chrome failed (use -v for details)" {
		t.Errorf("quiet FormatError() = %q", got)
	}

	verbose := NewCLIErrorAdapter(true, nil)
	if got := verbose.FormatError(err); !strings.Contains(got, "exit status 1") {
		t.Errorf("verbose FormatError() should include the cause, got %q", got)
	}

	needsFix := ConfigError("configuration file not found").UserAction().Build()
	if got := quiet.FormatError(needsFix); got != "Error: configuration file not found" {
		t.Errorf("user action FormatError() = %q", got)
	}

	if got := quiet.FormatError(nil); got != "" {
		t.Errorf("nil error should format empty, got %q", got)
	}
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var logBuf, errBuf bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logBuf, nil)))
	adapter.stderr = &errBuf
	code := -1
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(UploadError("upload failed").Build())

	if code != 13 {
		t.Errorf("expected exit code 13, got %d", code)
	}
	if !strings.Contains(errBuf.String(), "upload failed") {
		t.Errorf("expected message on stderr, got %q", errBuf.String())
	}
	if !strings.Contains(logBuf.String(), "category=upload") {
		t.Errorf("expected category in log output, got %q", logBuf.String())
	}

	logBuf.Reset()
	adapter.HandleError(NewError(CategoryCanceled, "interrupted").Build())
	if code != 130 || !strings.Contains(logBuf.String(), "level=WARN") {
		t.Errorf("canceled: code %d, log %q", code, logBuf.String())
	}

	code = -1
	adapter.HandleError(nil)
	if code != -1 {
		t.Error("nil error must not exit")
	}
}
