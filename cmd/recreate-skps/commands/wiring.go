package commands

import (
	"context"
	"log/slog"
	"os"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/recreate-skps/internal/browsercheck"
	"git.home.luguber.info/inful/recreate-skps/internal/config"
	"git.home.luguber.info/inful/recreate-skps/internal/credential"
	"git.home.luguber.info/inful/recreate-skps/internal/eventstore"
	"git.home.luguber.info/inful/recreate-skps/internal/git"
	"git.home.luguber.info/inful/recreate-skps/internal/godeps"
	"git.home.luguber.info/inful/recreate-skps/internal/logfields"
	"git.home.luguber.info/inful/recreate-skps/internal/metrics"
	"git.home.luguber.info/inful/recreate-skps/internal/notify"
	"git.home.luguber.info/inful/recreate-skps/internal/recipe"
	"git.home.luguber.info/inful/recreate-skps/internal/recipe/models"
	"git.home.luguber.info/inful/recreate-skps/internal/step"
	"git.home.luguber.info/inful/recreate-skps/internal/workspace"
)

// runtime owns the per-run collaborators: the recipe and its observers.
type runtime struct {
	recipe   *recipe.Recipe
	exporter *metrics.Exporter
	store    *eventstore.SQLiteStore
	notifier *notify.Notifier
}

func newRuntime(ctx context.Context, cfg *config.Config, builder string, dryRun bool) (*runtime, error) {
	rt := &runtime{}
	observers := []models.RunObserver{models.NewLogObserver(nil)}

	var rec metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled() {
		reg := prom.NewRegistry()
		pr := metrics.NewPrometheusRecorder(reg)
		rec = pr
		observers = append(observers, models.RecorderObserver{Recorder: pr})
		rt.exporter = &metrics.Exporter{
			Gatherer:       reg,
			PushgatewayURL: cfg.Metrics.PushgatewayURL,
			Job:            cfg.Metrics.Job,
			Textfile:       cfg.Metrics.Textfile,
			Grouping:       map[string]string{"builder": builder},
		}
	}

	if cfg.History.Path != "" {
		store, err := eventstore.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		rt.store = store
		observers = append(observers, recipe.NewHistoryObserver(ctx, store))
	}

	if cfg.Notify.NATSURL != "" {
		pub, err := notify.Connect(cfg.Notify.NATSURL)
		if err != nil {
			slog.Warn("Run notifications disabled", logfields.URL(cfg.Notify.NATSURL), logfields.Error(err))
		} else {
			rt.notifier = notify.New(pub, cfg.Notify.Subject)
			observers = append(observers, rt.notifier)
		}
	}

	caps, err := capabilities(cfg, dryRun)
	if err != nil {
		rt.Close()
		return nil, err
	}
	caps.Recorder = rec
	caps.Observers = observers
	rt.recipe = recipe.New(cfg, caps)
	return rt, nil
}

// capabilities wires the real collaborators, or logging stand-ins for a dry run.
func capabilities(cfg *config.Config, dryRun bool) (recipe.Capabilities, error) {
	if dryRun {
		runner := &step.DryRunner{}
		return recipe.Capabilities{
			Checkout:     git.DryRun{Root: cfg.Paths.WorkDir},
			Runner:       runner,
			Files:        workspace.DryRunFS{},
			Deps:         newRefresher(cfg, runner),
			Credentials:  func(path string) recipe.CredentialScope { return credential.Skip{Path: path} },
			BrowserCheck: browsercheck.DryRun{},
		}, nil
	}

	runner := step.NewExecRunner()
	caps := recipe.Capabilities{
		Runner: runner,
		Files:  workspace.FS{},
		Deps:   newRefresher(cfg, runner),
		Credentials: func(path string) recipe.CredentialScope {
			return credential.New(path, credential.NewMetadataFetcher(cfg.MetadataEndpoint()))
		},
	}
	if !cfg.Checkout.Skip {
		if err := workspace.NewManager(cfg.Paths.WorkDir).Create(); err != nil {
			return recipe.Capabilities{}, err
		}
		caps.Checkout = git.FromConfig(cfg, os.Stderr)
	}
	if cfg.Capture.SmokeCheck {
		caps.BrowserCheck = browsercheck.New()
	}
	return caps, nil
}

func newRefresher(cfg *config.Config, runner step.Runner) *godeps.Refresher {
	return &godeps.Refresher{
		Runner:  runner,
		GoPath:  cfg.Deps.GoPath,
		GoRoot:  cfg.Deps.GoRoot,
		Command: cfg.Deps.Command,
		Dir:     cfg.SkiaDir(),
	}
}

// Run executes the recipe and exports metrics whatever the outcome.
func (rt *runtime) Run(ctx context.Context, opts recipe.Options) (*models.RunReport, error) {
	report, err := rt.recipe.Run(ctx, opts)
	if rt.exporter != nil {
		if xerr := rt.exporter.Export(context.WithoutCancel(ctx)); xerr != nil {
			slog.Warn("Metrics export failed", logfields.Error(xerr))
		}
	}
	return report, err
}

func (rt *runtime) Close() {
	if rt.notifier != nil {
		rt.notifier.Close()
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			slog.Warn("Failed to close history store", logfields.Error(err))
		}
	}
}
