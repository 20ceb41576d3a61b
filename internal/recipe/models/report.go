package models

import (
	"errors"
	"time"

	"git.home.luguber.info/inful/recreate-skps/internal/version"
)

// RunOutcome is the typed enumeration of final run states.
type RunOutcome string

const (
	OutcomeSuccess  RunOutcome = "success"
	OutcomeFailed   RunOutcome = "failed"
	OutcomeCanceled RunOutcome = "canceled"
)

// RunReport captures what a single recipe run did.
type RunReport struct {
	RunID   string
	Builder string
	Kind    RunKind
	DryRun  bool
	Version string

	Start time.Time
	End   time.Time

	Stages         []StageName // executed stages, in order
	StageDurations map[StageName]time.Duration
	StageResults   map[StageName]StageResult

	Outcome    RunOutcome
	Uploaded   bool
	ErrorStage StageName
	Error      string
}

// NewRunReport starts a report for a run.
func NewRunReport(runID, builder string, kind RunKind, dryRun bool) *RunReport {
	return &RunReport{
		RunID:          runID,
		Builder:        builder,
		Kind:           kind,
		DryRun:         dryRun,
		Version:        version.String(),
		Start:          time.Now(),
		StageDurations: make(map[StageName]time.Duration),
		StageResults:   make(map[StageName]StageResult),
	}
}

// RecordStage stores the duration and result of a finished stage.
func (r *RunReport) RecordStage(stage StageName, d time.Duration, result StageResult) {
	if _, seen := r.StageResults[stage]; !seen {
		r.Stages = append(r.Stages, stage)
	}
	r.StageDurations[stage] = d
	r.StageResults[stage] = result
	if stage == StageUpload && result == StageResultSuccess {
		r.Uploaded = true
	}
}

// Finish stamps the end time and derives the outcome from the run error.
func (r *RunReport) Finish(err error) {
	r.End = time.Now()
	if err == nil {
		r.Outcome = OutcomeSuccess
		return
	}
	r.Error = err.Error()
	r.Outcome = OutcomeFailed
	var se *StageError
	if errors.As(err, &se) {
		r.ErrorStage = se.Stage
		if se.Kind == StageErrorCanceled {
			r.Outcome = OutcomeCanceled
		}
	}
}

// Duration is the wall time of the run; zero until Finish.
func (r *RunReport) Duration() time.Duration {
	if r.End.IsZero() {
		return 0
	}
	return r.End.Sub(r.Start)
}

// StageSummary is the serialized form of one stage.
type StageSummary struct {
	Stage      StageName   `json:"stage"`
	Result     StageResult `json:"result"`
	DurationMS int64       `json:"duration_ms"`
}

// Summary is the serialized form of a report, published after each run.
type Summary struct {
	RunID      string         `json:"run_id"`
	Builder    string         `json:"builder"`
	Kind       RunKind        `json:"kind"`
	DryRun     bool           `json:"dry_run,omitempty"`
	Version    string         `json:"version"`
	Outcome    RunOutcome     `json:"outcome"`
	Uploaded   bool           `json:"uploaded"`
	ErrorStage StageName      `json:"error_stage,omitempty"`
	Error      string         `json:"error,omitempty"`
	Start      time.Time      `json:"start"`
	End        time.Time      `json:"end"`
	DurationMS int64          `json:"duration_ms"`
	Stages     []StageSummary `json:"stages"`
}

// Summary flattens the report for serialization.
func (r *RunReport) Summary() Summary {
	s := Summary{
		RunID:      r.RunID,
		Builder:    r.Builder,
		Kind:       r.Kind,
		DryRun:     r.DryRun,
		Version:    r.Version,
		Outcome:    r.Outcome,
		Uploaded:   r.Uploaded,
		ErrorStage: r.ErrorStage,
		Error:      r.Error,
		Start:      r.Start,
		End:        r.End,
		DurationMS: r.Duration().Milliseconds(),
		Stages:     make([]StageSummary, 0, len(r.Stages)),
	}
	for _, st := range r.Stages {
		s.Stages = append(s.Stages, StageSummary{
			Stage:      st,
			Result:     r.StageResults[st],
			DurationMS: r.StageDurations[st].Milliseconds(),
		})
	}
	return s
}
