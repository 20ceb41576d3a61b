// Package stages executes recipe stage pipelines.
package stages

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/recreate-skps/internal/recipe/models"
)

// RunStages executes stages in order, recording timing and stopping on the first
// fatal error. Cancellation is checked before every stage; a stage already
// running is left to observe ctx itself.
func RunStages(ctx context.Context, rs *models.RunState, stages []models.StageDef, obs models.RunObserver) error {
	if obs == nil {
		obs = models.NoopObserver{}
	}
	for _, st := range stages {
		select {
		case <-ctx.Done():
			se := models.NewCanceledStageError(st.Name, ctx.Err())
			rs.Report.RecordStage(st.Name, 0, models.StageResultCanceled)
			obs.OnStageComplete(st.Name, 0, models.StageResultCanceled, se)
			return se
		default:
		}

		obs.OnStageStart(st.Name)

		t0 := time.Now()
		err := st.Fn(ctx, rs)
		dur := time.Since(t0)

		out := ClassifyStageResult(ctx, st.Name, err)
		rs.Report.RecordStage(st.Name, dur, out.Result)

		var obsErr error
		if out.Error != nil {
			obsErr = out.Error
		}
		obs.OnStageComplete(st.Name, dur, out.Result, obsErr)

		if out.Abort {
			if out.Error != nil {
				return out.Error
			}
			return fmt.Errorf("stage %s aborted", st.Name)
		}
	}
	return nil
}
