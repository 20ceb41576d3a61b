package stages

import (
	"context"
	"errors"

	"git.home.luguber.info/inful/recreate-skps/internal/recipe/models"
)

// StageOutcome normalized result of stage execution.
type StageOutcome struct {
	Stage  models.StageName
	Error  *models.StageError
	Result models.StageResult
	Abort  bool
}

// resultFromStageErrorKind maps a StageErrorKind to a StageResult.
func resultFromStageErrorKind(k models.StageErrorKind) models.StageResult {
	if k == models.StageErrorCanceled {
		return models.StageResultCanceled
	}
	return models.StageResultFatal
}

// ClassifyStageResult converts a raw error from a stage into a StageOutcome.
// Every error aborts the run; there are no partial-success states.
func ClassifyStageResult(ctx context.Context, stage models.StageName, err error) StageOutcome {
	if err == nil {
		return StageOutcome{Stage: stage, Result: models.StageResultSuccess}
	}

	var se *models.StageError
	if !errors.As(err, &se) {
		// A stage interrupted by the host signal reports the process kill as
		// its error; record it as a cancellation rather than a failure.
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			se = models.NewCanceledStageError(stage, err)
		} else {
			se = models.NewFatalStageError(stage, err)
		}
	}

	return StageOutcome{
		Stage:  stage,
		Error:  se,
		Result: resultFromStageErrorKind(se.Kind),
		Abort:  true,
	}
}
