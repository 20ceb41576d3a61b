package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/recreate-skps/internal/eventstore"
	ferrors "git.home.luguber.info/inful/recreate-skps/internal/foundation/errors"
	"git.home.luguber.info/inful/recreate-skps/internal/logfields"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Since time.Duration `default:"720h" help:"How far back to look"`
	Limit int           `short:"n" default:"20" help:"Maximum number of runs to show"`
	JSON  bool          `help:"Print runs as JSON"`
	DB    string        `name:"db" help:"History database; defaults to history.path from the configuration"`
	Prune time.Duration `help:"Delete runs that started longer ago than this before listing"`
	RunID string        `arg:"" optional:"" name:"run-id" help:"Show the stages of a single run, whatever its age"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	path := h.DB
	if path == "" {
		cfg, err := root.loadConfig(Overrides{})
		if err != nil {
			return err
		}
		path = cfg.History.Path
	}
	if path == "" {
		return ferrors.ConfigError("run history is disabled (set history.path)").UserAction().Build()
	}

	store, err := eventstore.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if h.Prune > 0 {
		n, err := store.Prune(ctx, time.Now().Add(-h.Prune))
		if err != nil {
			return err
		}
		slog.Info("Pruned run history", logfields.Path(path), slog.Int64("records", n))
	}

	proj := eventstore.NewRunHistoryProjection(store, h.Limit)
	if h.RunID != "" {
		return h.printRun(ctx, g, proj)
	}
	if err := proj.Rebuild(ctx, time.Now().Add(-h.Since)); err != nil {
		return err
	}
	runs := proj.History()

	if h.JSON {
		enc := json.NewEncoder(g.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		_, _ = fmt.Fprintln(g.Stdout, "no runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(g.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tRUN\tBUILDER\tKIND\tSTATUS\tUPLOADED\tDURATION\tFAILED STAGE")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.RunID,
			r.Builder,
			r.Kind,
			r.Status,
			r.Uploaded,
			r.Duration.Round(time.Second),
			r.ErrorStage)
	}
	return tw.Flush()
}

func (h *HistoryCmd) printRun(ctx context.Context, g *Global, proj *eventstore.RunHistoryProjection) error {
	run, ok, err := proj.Load(ctx, h.RunID)
	if err != nil {
		return err
	}
	if !ok {
		return ferrors.ValidationError("run not found").WithContext("run_id", h.RunID).UserAction().Build()
	}
	if h.JSON {
		enc := json.NewEncoder(g.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	_, _ = fmt.Fprintf(g.Stdout, "run %s (%s, %s): %s\n", run.RunID, run.Builder, run.Kind, run.Status)
	if run.Error != "" {
		_, _ = fmt.Fprintf(g.Stdout, "error in %s: %s\n", run.ErrorStage, run.Error)
	}
	tw := tabwriter.NewWriter(g.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STAGE\tRESULT\tDURATION")
	for _, st := range run.Stages {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", st.Stage, st.Result, st.Duration.Round(time.Millisecond))
	}
	return tw.Flush()
}
