// Package browsercheck launches a freshly built browser headless and confirms
// that it answers on the DevTools protocol before any capture runs against it.
package browsercheck

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"

	ferrors "git.home.luguber.info/inful/recreate-skps/internal/foundation/errors"
	"git.home.luguber.info/inful/recreate-skps/internal/logfields"
)

// DefaultTimeout bounds a single smoke check.
const DefaultTimeout = 60 * time.Second

// Checker verifies that the browser at binary starts. It returns the
// product string the browser reports.
type Checker interface {
	Check(ctx context.Context, binary string) (string, error)
}

// RodChecker drives the browser through go-rod's launcher.
type RodChecker struct {
	Timeout time.Duration
	// Flags are extra command-line switches; "no-sandbox" is always set.
	Flags []string
}

// New returns a RodChecker with the default timeout.
func New() *RodChecker { return &RodChecker{Timeout: DefaultTimeout} }

func (r *RodChecker) Check(ctx context.Context, binary string) (string, error) {
	info, err := os.Stat(binary)
	if err != nil {
		return "", ferrors.BuildError("browser binary not found").
			WithCause(err).
			WithContext("path", binary).
			Build()
	}
	if info.IsDir() || info.Mode()&0o111 == 0 {
		return "", ferrors.BuildError("browser binary is not executable").
			WithContext("path", binary).
			Build()
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	l := launcher.New().
		Context(ctx).
		Bin(binary).
		Headless(true).
		Set("no-sandbox").
		Set("disable-gpu")
	for _, f := range r.Flags {
		l = l.Set(flags.Flag(f))
	}
	defer l.Kill()

	url, err := l.Launch()
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryBuild, "failed to launch browser").
			WithContext("path", binary).
			Build()
	}

	browser := rod.New().ControlURL(url).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryBuild, "failed to connect to browser").
			WithContext("path", binary).
			Build()
	}
	defer func() { _ = browser.Close() }()

	ver, err := browser.Version()
	if err != nil {
		return "", fmt.Errorf("browser version: %w", err)
	}
	slog.Info("Browser smoke check passed",
		logfields.Path(binary),
		slog.String("product", ver.Product),
		slog.String("protocol", ver.ProtocolVersion))
	return ver.Product, nil
}

var _ Checker = (*RodChecker)(nil)

// DryRun reports success without launching anything.
type DryRun struct{}

func (DryRun) Check(_ context.Context, binary string) (string, error) {
	slog.Info("Dry run: skipping browser smoke check", logfields.Path(binary))
	return "", nil
}
