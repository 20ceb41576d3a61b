package step

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/recreate-skps/internal/logfields"
)

// DryRunner logs each step instead of running it and always succeeds.
type DryRunner struct {
	Logger *slog.Logger
}

func (d *DryRunner) Run(_ context.Context, s Step) (Result, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Dry run: skipping step",
		logfields.Step(s.Name),
		logfields.Command(s.Args),
		logfields.Dir(s.Dir),
		slog.Any("env", s.Env),
	)
	return Result{}, nil
}

var (
	_ Runner = (*DryRunner)(nil)
	_ Runner = (*ExecRunner)(nil)
)
