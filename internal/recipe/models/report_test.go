package models

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/recreate-skps/internal/foundation/errors"
	"git.home.luguber.info/inful/recreate-skps/internal/metrics"
)

func TestRunReportFinish(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		r := NewRunReport("run-1", "Housekeeper-Weekly-RecreateSKPs", KindFull, false)
		r.RecordStage(StageCapture, time.Second, StageResultSuccess)
		r.RecordStage(StageUpload, 2*time.Second, StageResultSuccess)
		r.Finish(nil)

		assert.Equal(t, OutcomeSuccess, r.Outcome)
		assert.True(t, r.Uploaded)
		assert.Equal(t, []StageName{StageCapture, StageUpload}, r.Stages)
		assert.Empty(t, r.ErrorStage)
	})

	t.Run("fatal stage", func(t *testing.T) {
		r := NewRunReport("run-2", "b", KindFull, false)
		r.RecordStage(StageUpload, time.Second, StageResultFatal)
		r.Finish(NewFatalStageError(StageUpload, ErrUpload))

		assert.Equal(t, OutcomeFailed, r.Outcome)
		assert.False(t, r.Uploaded)
		assert.Equal(t, StageUpload, r.ErrorStage)
		assert.Contains(t, r.Error, "skp upload failed")
	})

	t.Run("canceled", func(t *testing.T) {
		r := NewRunReport("run-3", "b", KindCanary, false)
		r.Finish(NewCanceledStageError(StageCompile, context.Canceled))
		assert.Equal(t, OutcomeCanceled, r.Outcome)
		assert.Equal(t, StageCompile, r.ErrorStage)
	})
}

func TestRunReportSummary(t *testing.T) {
	r := NewRunReport("run-1", "b", KindCanary, true)
	r.RecordStage(StageGNGen, 1500*time.Millisecond, StageResultSuccess)
	r.Finish(nil)

	s := r.Summary()
	require.Len(t, s.Stages, 1)
	assert.Equal(t, StageGNGen, s.Stages[0].Stage)
	assert.Equal(t, int64(1500), s.Stages[0].DurationMS)
	assert.True(t, s.DryRun)
	assert.Equal(t, KindCanary, s.Kind)
}

func TestStageErrorCategory(t *testing.T) {
	tests := []struct {
		name string
		err  *StageError
		want ferrors.ErrorCategory
	}{
		{"compile", NewFatalStageError(StageCompile, ErrCompile), ferrors.CategoryBuild},
		{"capture", NewFatalStageError(StageCapture, ErrCapture), ferrors.CategoryCapture},
		{"upload", NewFatalStageError(StageUpload, ErrUpload), ferrors.CategoryUpload},
		{"canceled", NewCanceledStageError(StageUpload, context.Canceled), ferrors.CategoryCanceled},
		{"classified cause wins", NewFatalStageError(StageUpload, ferrors.CredentialError("denied").Build()), ferrors.CategoryCredential},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Category())
		})
	}

	wrapped := NewFatalStageError(StageCapture, errors.Join(ErrCapture, errors.New("exit 1")))
	assert.ErrorIs(t, wrapped, ErrCapture)
}

func TestPipelineAddIf(t *testing.T) {
	noop := func(context.Context, *RunState) error { return nil }
	p := NewPipeline().
		Add(StageGNGen, noop).
		AddIf(false, StageBrowserCheck, noop).
		Add(StageCapture, noop).
		AddIf(true, StageUpload, noop)

	assert.Equal(t, []StageName{StageGNGen, StageCapture, StageUpload}, p.Names())

	defs := p.Build()
	defs[0].Name = "mutated"
	assert.Equal(t, StageGNGen, p.Defs[0].Name)
}

type countingRecorder struct {
	metrics.NoopRecorder
	stages   map[string]metrics.ResultLabel
	outcomes []string
	uploads  []string
}

func (c *countingRecorder) IncStageResult(stage string, r metrics.ResultLabel) {
	if c.stages == nil {
		c.stages = map[string]metrics.ResultLabel{}
	}
	c.stages[stage] = r
}
func (c *countingRecorder) IncRunOutcome(o string) { c.outcomes = append(c.outcomes, o) }
func (c *countingRecorder) IncUpload(kind string)  { c.uploads = append(c.uploads, kind) }

func TestRecorderObserver(t *testing.T) {
	rec := &countingRecorder{}
	obs := Observers{NoopObserver{}, RecorderObserver{Recorder: rec}}

	r := NewRunReport("run-1", "b", KindFull, false)
	obs.OnRunStart(r)
	obs.OnStageComplete(StageCapture, time.Second, StageResultSuccess, nil)
	obs.OnStageComplete(StageUpload, time.Second, StageResultFatal, ErrUpload)
	r.Finish(NewFatalStageError(StageUpload, ErrUpload))
	obs.OnRunComplete(r)

	assert.Equal(t, metrics.ResultSuccess, rec.stages["capture"])
	assert.Equal(t, metrics.ResultFatal, rec.stages["upload"])
	assert.Equal(t, []string{"failed"}, rec.outcomes)
	assert.Empty(t, rec.uploads)
}
