package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/recreate-skps/internal/config"
	ferrors "git.home.luguber.info/inful/recreate-skps/internal/foundation/errors"
	"git.home.luguber.info/inful/recreate-skps/internal/recipe"
	"git.home.luguber.info/inful/recreate-skps/internal/recipe/models"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	Builder      string `short:"b" help:"Builder name; a name containing 'Canary' selects a canary run"`
	Kind         string `help:"Force the run kind (canary or full) instead of deriving it from the builder"`
	StartDir     string `name:"start-dir" help:"Directory that receives skp_output"`
	WorkDir      string `name:"work-dir" help:"Checkout root holding src and skia"`
	SkipCheckout bool   `name:"skip-checkout" help:"Use the existing checkouts as they are"`
	DryRun       bool   `name:"dry-run" help:"Log every step instead of running it; no credential is fetched"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(Overrides{
		Builder:      r.Builder,
		StartDir:     r.StartDir,
		WorkDir:      r.WorkDir,
		SkipCheckout: r.SkipCheckout,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := runOnce(ctx, cfg, cfg.Builder, r.Kind, r.DryRun)
	if report != nil {
		printReport(g, report)
	}
	return err
}

// runOnce runs the recipe for builder with a fresh runtime.
func runOnce(ctx context.Context, cfg *config.Config, builder, kind string, dryRun bool) (*models.RunReport, error) {
	runKind, err := models.ResolveRunKind(kind, builder)
	if err != nil {
		return nil, ferrors.ValidationError("invalid run kind").WithCause(err).UserAction().Build()
	}
	rt, err := newRuntime(ctx, cfg, builder, dryRun)
	if err != nil {
		return nil, err
	}
	defer rt.Close()
	return rt.Run(ctx, recipe.Options{Builder: builder, Kind: runKind, DryRun: dryRun})
}

func printReport(g *Global, r *models.RunReport) {
	_, _ = fmt.Fprintf(g.Stdout, "run %s: %s (builder %s, kind %s, uploaded %t, %s)\n",
		r.RunID, r.Outcome, r.Builder, r.Kind, r.Uploaded, r.Duration().Round(time.Millisecond))
	for _, st := range r.Stages {
		_, _ = fmt.Fprintf(g.Stdout, "  %-16s %-9s %s\n", st, r.StageResults[st], r.StageDurations[st].Round(time.Millisecond))
	}
}
