package models

import (
	"context"
	"errors"
	"fmt"

	ferrors "git.home.luguber.info/inful/recreate-skps/internal/foundation/errors"
)

// Stage is a discrete unit of work in a recipe run.
type Stage func(ctx context.Context, rs *RunState) error

// StageName is a strongly-typed identifier for a recipe stage.
type StageName string

// Canonical stage names, in execution order.
const (
	StageCheckout      StageName = "checkout"
	StageGNGen         StageName = "gn_gen"
	StageCompile       StageName = "compile"
	StageBrowserCheck  StageName = "browser_check"
	StagePrepareOutput StageName = "prepare_output"
	StageCapture       StageName = "capture"
	StageUpdateDeps    StageName = "update_deps"
	StageUpload        StageName = "upload"
)

// StageErrorKind classifies the outcome of a stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Run must abort.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying the failing stage and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Category returns the error category used for exit codes. A classified
// cause wins; otherwise the stage decides.
func (e *StageError) Category() ferrors.ErrorCategory {
	if e == nil {
		return ferrors.CategoryInternal
	}
	if e.Kind == StageErrorCanceled {
		return ferrors.CategoryCanceled
	}
	if ce, ok := ferrors.AsClassified(e.Err); ok {
		return ce.Category()
	}
	switch e.Stage {
	case StageCheckout:
		return ferrors.CategoryCheckout
	case StageGNGen, StageCompile, StageBrowserCheck:
		return ferrors.CategoryBuild
	case StagePrepareOutput:
		return ferrors.CategoryFileSystem
	case StageCapture:
		return ferrors.CategoryCapture
	case StageUpdateDeps, StageUpload:
		return ferrors.CategoryUpload
	}
	return ferrors.CategoryInternal
}

// StageResult captures the high-level outcome of a stage.
type StageResult string

const (
	StageResultSuccess  StageResult = "success"
	StageResultFatal    StageResult = "fatal"
	StageResultCanceled StageResult = "canceled"
	StageResultSkipped  StageResult = "skipped"
)

// NewFatalStageError creates a new fatal stage error.
func NewFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func NewCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// AsStageError unwraps err into a *StageError.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	ok := errors.As(err, &se)
	return se, ok
}

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Pipeline is a fluent builder for ordered stage definitions.
type Pipeline struct{ Defs []StageDef }

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{Defs: make([]StageDef, 0, 8)} }

// Add appends a stage unconditionally.
func (p *Pipeline) Add(name StageName, fn Stage) *Pipeline {
	p.Defs = append(p.Defs, StageDef{Name: name, Fn: fn})
	return p
}

// AddIf appends a stage only if cond is true.
func (p *Pipeline) AddIf(cond bool, name StageName, fn Stage) *Pipeline {
	if cond {
		p.Add(name, fn)
	}
	return p
}

// Names lists the stage names in order.
func (p *Pipeline) Names() []StageName {
	out := make([]StageName, len(p.Defs))
	for i, d := range p.Defs {
		out[i] = d.Name
	}
	return out
}

// Build returns a copy of the stage definitions slice.
func (p *Pipeline) Build() []StageDef {
	out := make([]StageDef, len(p.Defs))
	copy(out, p.Defs)
	return out
}
