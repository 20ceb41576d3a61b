package step

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/recreate-skps/internal/logfields"
)

const stderrTail = 4096

// ExecRunner runs steps as child processes.
type ExecRunner struct {
	Stdout io.Writer // defaults to os.Stdout
	Stderr io.Writer // defaults to os.Stderr
	// Environ returns the base environment; defaults to os.Environ.
	Environ func() []string
}

// NewExecRunner returns a runner streaming child output to the process stdio.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr, Environ: os.Environ}
}

func (r *ExecRunner) Run(ctx context.Context, s Step) (Result, error) {
	if len(s.Args) == 0 || s.Args[0] == "" {
		return Result{}, fmt.Errorf("%w: %s", ErrEmptyCommand, s.Name)
	}
	environ := r.Environ
	if environ == nil {
		environ = os.Environ
	}
	env := MergeEnv(environ(), s.Env)
	bin, err := lookPath(s.Args[0], envValue(env, "PATH"))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrBinaryNotFound, s.Args[0], err)
	}
	stdout, stderr := r.Stdout, r.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	tail := &tailBuffer{max: stderrTail}
	// #nosec G204 -- argv comes from the recipe, not from untrusted input
	cmd := exec.CommandContext(ctx, bin, s.Args[1:]...)
	cmd.Dir = s.Dir
	cmd.Env = env
	cmd.Stdout = stdout
	cmd.Stderr = io.MultiWriter(stderr, tail)

	slog.Info("Running step", logfields.Step(s.Name), logfields.Command(s.Args), logfields.Dir(s.Dir))
	start := time.Now()
	err = cmd.Run()
	res := Result{Duration: time.Since(start)}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("step %q interrupted: %w", s.Name, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			slog.Error("Step failed", logfields.Step(s.Name), logfields.ExitCode(res.ExitCode), logfields.DurationMS(float64(res.Duration.Milliseconds())))
			return res, &ExitError{Step: s.Name, Args: s.Args, Code: res.ExitCode, Output: strings.TrimSpace(tail.String())}
		}
		return res, fmt.Errorf("step %q: %w", s.Name, err)
	}
	slog.Debug("Step finished", logfields.Step(s.Name), logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return res, nil
}

// lookPath resolves name against the child's PATH rather than the parent's.
// Names containing a path separator are used as given.
func lookPath(name, pathList string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		return exec.LookPath(name)
	}
	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if bin, err := exec.LookPath(abs); err == nil {
			return bin, nil
		}
	}
	return "", fmt.Errorf("executable file not found in step PATH %q", pathList)
}

// envValue returns the last value of key in a KEY=VALUE list.
func envValue(env []string, key string) string {
	val := ""
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			val = v
		}
	}
	return val
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
