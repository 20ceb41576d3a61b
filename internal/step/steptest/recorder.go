// Package steptest provides a recording step.Runner for tests.
package steptest

import (
	"context"
	"slices"
	"sync"

	"git.home.luguber.info/inful/recreate-skps/internal/step"
)

// Recorder records every step it is asked to run. Steps succeed unless a
// failure was registered with FailOn or OnRun returns an error.
type Recorder struct {
	mu    sync.Mutex
	steps []step.Step
	fail  map[string]int

	// OnRun, if set, is called for every step before the failure table is consulted.
	OnRun func(step.Step) error
}

// New returns an empty recorder.
func New() *Recorder {
	return &Recorder{fail: make(map[string]int)}
}

// FailOn makes the step with the given name exit with code.
func (r *Recorder) FailOn(name string, code int) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail == nil {
		r.fail = make(map[string]int)
	}
	r.fail[name] = code
	return r
}

func (r *Recorder) Run(_ context.Context, s step.Step) (step.Result, error) {
	r.mu.Lock()
	r.steps = append(r.steps, s)
	code, failing := r.fail[s.Name]
	hook := r.OnRun
	r.mu.Unlock()

	if hook != nil {
		if err := hook(s); err != nil {
			return step.Result{ExitCode: 1}, err
		}
	}
	if failing {
		return step.Result{ExitCode: code}, &step.ExitError{Step: s.Name, Args: s.Args, Code: code}
	}
	return step.Result{}, nil
}

// Steps returns a copy of the recorded steps in order.
func (r *Recorder) Steps() []step.Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.steps)
}

// Names returns the recorded step names in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.steps))
	for i, s := range r.steps {
		names[i] = s.Name
	}
	return names
}

// Find returns the first recorded step with the given name.
func (r *Recorder) Find(name string) (step.Step, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.steps {
		if s.Name == name {
			return s, true
		}
	}
	return step.Step{}, false
}

var _ step.Runner = (*Recorder)(nil)
