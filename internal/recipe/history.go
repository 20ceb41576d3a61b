package recipe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/recreate-skps/internal/eventstore"
	"git.home.luguber.info/inful/recreate-skps/internal/logfields"
	"git.home.luguber.info/inful/recreate-skps/internal/recipe/models"
)

// HistoryObserver appends the lifecycle of each run to an event store. Append
// failures are logged; history never fails a run.
type HistoryObserver struct {
	ctx   context.Context
	store eventstore.Store
	runID string
}

// NewHistoryObserver records into store. Appends outlive cancellation of ctx
// so that a canceled run still records its completion.
func NewHistoryObserver(ctx context.Context, store eventstore.Store) *HistoryObserver {
	return &HistoryObserver{ctx: context.WithoutCancel(ctx), store: store}
}

func (h *HistoryObserver) OnRunStart(report *models.RunReport) {
	h.runID = report.RunID
	e, err := eventstore.NewRunStarted(report.RunID, report.Builder, string(report.Kind), report.DryRun)
	h.append(e, err)
}

func (h *HistoryObserver) OnStageStart(models.StageName) {}

func (h *HistoryObserver) OnStageComplete(stage models.StageName, d time.Duration, result models.StageResult, stageErr error) {
	e, err := eventstore.NewStageCompleted(h.runID, string(stage), string(result), d, stageErr)
	h.append(e, err)
}

func (h *HistoryObserver) OnRunComplete(report *models.RunReport) {
	var runErr error
	if report.Error != "" {
		runErr = errors.New(report.Error)
	}
	e, err := eventstore.NewRunCompleted(report.RunID, string(report.Outcome), report.Uploaded,
		report.Duration(), string(report.ErrorStage), runErr)
	h.append(e, err)
}

func (h *HistoryObserver) append(rec eventstore.Record, err error) {
	if err == nil {
		_, err = h.store.Append(h.ctx, rec)
	}
	if err != nil {
		slog.Warn("Failed to record run history", logfields.RunID(h.runID), logfields.Error(err))
	}
}

var _ models.RunObserver = (*HistoryObserver)(nil)
