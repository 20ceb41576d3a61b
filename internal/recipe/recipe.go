package recipe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/recreate-skps/internal/config"
	ferrors "git.home.luguber.info/inful/recreate-skps/internal/foundation/errors"
	"git.home.luguber.info/inful/recreate-skps/internal/logfields"
	"git.home.luguber.info/inful/recreate-skps/internal/recipe/models"
	"git.home.luguber.info/inful/recreate-skps/internal/recipe/stages"
	"git.home.luguber.info/inful/recreate-skps/internal/step"
)

// Options select what a single run does.
type Options struct {
	Builder string         // defaults to the configured builder
	Kind    models.RunKind // empty derives the kind from Builder
	DryRun  bool           // recorded on the report; capabilities decide the behavior
	RunID   string         // empty generates a UUID
}

// Recipe runs the capture pipeline against a set of capabilities.
type Recipe struct {
	cfg  *config.Config
	caps Capabilities
}

// New returns a recipe for cfg.
func New(cfg *config.Config, caps Capabilities) *Recipe {
	return &Recipe{cfg: cfg, caps: caps}
}

// Pipeline returns the ordered stages a run of kind executes.
func (r *Recipe) Pipeline(kind models.RunKind) *models.Pipeline {
	return models.NewPipeline().
		AddIf(!r.cfg.Checkout.Skip, models.StageCheckout, r.stageCheckout).
		Add(models.StageGNGen, r.stageGNGen).
		Add(models.StageCompile, r.stageCompile).
		AddIf(r.cfg.Capture.SmokeCheck, models.StageBrowserCheck, r.stageBrowserCheck).
		Add(models.StagePrepareOutput, r.stagePrepareOutput).
		Add(models.StageCapture, r.stageCapture).
		AddIf(kind.Uploads(), models.StageUpdateDeps, r.stageUpdateDeps).
		AddIf(kind.Uploads(), models.StageUpload, r.stageUpload)
}

// Run executes one run. The report is returned even when the run fails; the
// error is classified by the failing stage.
func (r *Recipe) Run(ctx context.Context, opts Options) (*models.RunReport, error) {
	builder := opts.Builder
	if builder == "" {
		builder = r.cfg.Builder
	}
	kind := opts.Kind
	if kind == "" {
		kind = models.ClassifyBuilder(builder)
	}
	if err := r.caps.validate(r.cfg, kind); err != nil {
		return nil, err
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	report := models.NewRunReport(runID, builder, kind, opts.DryRun)
	obs := models.Observers(r.caps.Observers)
	obs.OnRunStart(report)

	env := models.DefaultBuildEnv().With(r.cfg.Build.Env)
	rs := models.NewRunState(report, LayoutFromConfig(r.cfg), env)

	err := stages.RunStages(ctx, rs, r.Pipeline(kind).Build(), obs)
	report.Finish(err)
	obs.OnRunComplete(report)

	if err != nil {
		return report, classify(runID, err)
	}
	return report, nil
}

// classify wraps a stage failure so the CLI can map it to an exit code.
func classify(runID string, err error) error {
	se, ok := models.AsStageError(err)
	if !ok {
		return ferrors.InternalError("recipe failed").WithCause(err).WithContext("run_id", runID).Build()
	}
	b := ferrors.WrapError(err, se.Category(), fmt.Sprintf("recipe %s at stage %s", outcomeVerb(se), se.Stage)).
		WithContext("run_id", runID).
		WithContext("stage", string(se.Stage))
	if ee, ok := step.AsExitError(err); ok {
		b = b.WithContext("exit_code", ee.Code)
	}
	return b.Build()
}

func outcomeVerb(se *models.StageError) string {
	if se.Kind == models.StageErrorCanceled {
		return "canceled"
	}
	return "failed"
}

func (r *Recipe) stageCheckout(ctx context.Context, _ *models.RunState) error {
	rec := r.caps.recorder()
	for _, repo := range r.cfg.Checkout.Repositories {
		t0 := time.Now()
		path, err := r.caps.Checkout.Checkout(ctx, repo)
		rec.ObserveCheckoutDuration(repo.Name, time.Since(t0), err == nil)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", models.ErrCheckout, repo.Name, err)
		}
		slog.Debug("Repository ready", logfields.Name(repo.Name), logfields.Path(path))
	}
	return nil
}

func (r *Recipe) stageGNGen(ctx context.Context, rs *models.RunState) error {
	if _, err := r.caps.Runner.Run(ctx, gnStep(r.cfg, rs.Layout, rs.Env)); err != nil {
		return fmt.Errorf("%w: %w", models.ErrConfigure, err)
	}
	return nil
}

func (r *Recipe) stageCompile(ctx context.Context, rs *models.RunState) error {
	if _, err := r.caps.Runner.Run(ctx, compileStep(r.cfg, rs.Layout)); err != nil {
		return fmt.Errorf("%w: %w", models.ErrCompile, err)
	}
	return nil
}

func (r *Recipe) stageBrowserCheck(ctx context.Context, rs *models.RunState) error {
	if _, err := r.caps.BrowserCheck.Check(ctx, rs.Layout.BrowserBinary(r.cfg.Build.Target)); err != nil {
		return fmt.Errorf("%w: %w", models.ErrBrowserCheck, err)
	}
	return nil
}

func (r *Recipe) stagePrepareOutput(_ context.Context, rs *models.RunState) error {
	if err := r.caps.Files.ResetDir(rs.Layout.OutputDir); err != nil {
		return fmt.Errorf("%w: %w", models.ErrPrepare, err)
	}
	return nil
}

func (r *Recipe) stageCapture(ctx context.Context, rs *models.RunState) error {
	if _, err := r.caps.Runner.Run(ctx, captureStep(r.cfg, rs.Layout, rs.Kind)); err != nil {
		return fmt.Errorf("%w: %w", models.ErrCapture, err)
	}
	return nil
}

func (r *Recipe) stageUpdateDeps(ctx context.Context, _ *models.RunState) error {
	if err := r.caps.Deps.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", models.ErrDeps, err)
	}
	return nil
}

// stageUpload runs the upload script while the gitcookies credential exists.
// The scope removes the credential on every exit path.
func (r *Recipe) stageUpload(ctx context.Context, rs *models.RunState) error {
	scope := r.caps.Credentials(rs.Layout.CookiePath)
	err := scope.With(ctx, func(path string) error {
		_, runErr := r.caps.Runner.Run(ctx, uploadStep(r.cfg, rs.Layout, path, r.caps.Deps))
		return runErr
	})
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrUpload, err)
	}
	return nil
}
