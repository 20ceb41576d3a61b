package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/recreate-skps/internal/foundation/errors"
)

// Event type names.
const (
	TypeRunStarted     = "RunStarted"
	TypeStageCompleted = "StageCompleted"
	TypeRunCompleted   = "RunCompleted"
)

// RunStarted is emitted when a run begins.
type RunStarted struct {
	Builder string `json:"builder"`
	Kind    string `json:"kind"`
	DryRun  bool   `json:"dry_run,omitempty"`
}

// NewRunStarted creates a RunStarted event.
func NewRunStarted(runID, builder, kind string, dryRun bool) (Record, error) {
	return newRecord(runID, TypeRunStarted, "", RunStarted{Builder: builder, Kind: kind, DryRun: dryRun})
}

// StageCompleted is emitted after every stage, including failed and skipped ones.
type StageCompleted struct {
	Stage      string `json:"stage"`
	Result     string `json:"result"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// NewStageCompleted creates a StageCompleted event.
func NewStageCompleted(runID, stage, result string, d time.Duration, stageErr error) (Record, error) {
	e := StageCompleted{Stage: stage, Result: result, DurationMS: d.Milliseconds()}
	if stageErr != nil {
		e.Error = stageErr.Error()
	}
	return newRecord(runID, TypeStageCompleted, stage, e)
}

// RunCompleted is emitted once a run has finished, whatever the outcome.
type RunCompleted struct {
	Outcome    string `json:"outcome"`
	Uploaded   bool   `json:"uploaded"`
	DurationMS int64  `json:"duration_ms"`
	ErrorStage string `json:"error_stage,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewRunCompleted creates a RunCompleted event.
func NewRunCompleted(runID, outcome string, uploaded bool, d time.Duration, errorStage string, runErr error) (Record, error) {
	e := RunCompleted{Outcome: outcome, Uploaded: uploaded, DurationMS: d.Milliseconds(), ErrorStage: errorStage}
	if runErr != nil {
		e.Error = runErr.Error()
	}
	return newRecord(runID, TypeRunCompleted, "", e)
}

func newRecord(runID, eventType, stage string, v any) (Record, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return Record{}, errors.HistoryError("failed to marshal "+eventType+" payload").
			WithCause(err).
			WithContext("run_id", runID).
			Build()
	}
	return Record{RunID: runID, Type: eventType, Stage: stage, At: time.Now(), Payload: payload}, nil
}
