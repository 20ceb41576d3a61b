// Package step runs the external programs of a recipe run as named steps.
package step

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"
)

var (
	// ErrEmptyCommand is returned for a step without argv.
	ErrEmptyCommand = errors.New("step has no command")
	// ErrBinaryNotFound is returned when the step's program cannot be located.
	ErrBinaryNotFound = errors.New("step binary not found")
)

// Step is a single process invocation.
type Step struct {
	Name string
	Args []string          // argv; Args[0] is the program
	Dir  string            // working directory; empty means the current one
	Env  map[string]string // overrides merged over the process environment
}

// Result describes a finished step.
type Result struct {
	ExitCode int
	Duration time.Duration
}

// Runner executes steps.
type Runner interface {
	Run(ctx context.Context, s Step) (Result, error)
}

// ExitError reports a step that ran but exited nonzero.
type ExitError struct {
	Step   string
	Args   []string
	Code   int
	Output string // tail of stderr
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("step %q (%s) exited with code %d", e.Step, strings.Join(e.Args, " "), e.Code)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

// AsExitError unwraps err into an *ExitError.
func AsExitError(err error) (*ExitError, bool) {
	var ee *ExitError
	ok := errors.As(err, &ee)
	return ee, ok
}

// MergeEnv returns base with overrides applied. Override values are expanded
// with ${VAR} and $VAR against base before being set, so "PATH=/x:${PATH}"
// prepends to the inherited PATH.
func MergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return slices.Clone(base)
	}
	lookup := make(map[string]string, len(base))
	order := make([]string, 0, len(base))
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if _, seen := lookup[k]; !seen {
			order = append(order, k)
		}
		lookup[k] = v
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	expanded := make(map[string]string, len(keys))
	for _, k := range keys {
		expanded[k] = os.Expand(overrides[k], func(name string) string { return lookup[name] })
	}
	for _, k := range keys {
		if _, seen := lookup[k]; !seen {
			order = append(order, k)
		}
		lookup[k] = expanded[k]
	}

	out := make([]string, 0, len(order))
	for _, k := range order {
		out = append(out, k+"="+lookup[k])
	}
	return out
}

// Merge combines env override maps; later maps win.
func Merge(envs ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, e := range envs {
		for k, v := range e {
			out[k] = v
		}
	}
	return out
}
