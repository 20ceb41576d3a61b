package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"git.home.luguber.info/inful/recreate-skps/internal/config"
	ferrors "git.home.luguber.info/inful/recreate-skps/internal/foundation/errors"
	"git.home.luguber.info/inful/recreate-skps/internal/logfields"
	"git.home.luguber.info/inful/recreate-skps/internal/schedule"
)

// ScheduleCmd implements the 'schedule' command.
type ScheduleCmd struct {
	DryRun bool     `name:"dry-run" help:"Log every step of each scheduled run instead of running it"`
	Watch  bool     `default:"true" negatable:"" help:"Reload the schedule when the configuration file changes"`
	RunNow []string `name:"run-now" help:"Jobs to start once right after the scheduler starts"`
}

func (s *ScheduleCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig(Overrides{})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var mu sync.RWMutex
	current := cfg

	sched, err := schedule.New(func(ctx context.Context, job config.ScheduledJob) error {
		mu.RLock()
		cfg := current
		mu.RUnlock()
		_, err := runOnce(ctx, cfg, job.Builder, "", s.DryRun)
		return err
	})
	if err != nil {
		return err
	}
	if err := sched.Register(cfg.Schedule.Jobs); err != nil {
		return err
	}

	if s.Watch {
		watcher, err := schedule.NewConfigWatcher(root.Config, func(_ context.Context, next *config.Config) error {
			if err := sched.Register(next.Schedule.Jobs); err != nil {
				return err
			}
			mu.Lock()
			current = next
			mu.Unlock()
			return nil
		})
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = watcher.Stop() }()
	}

	sched.Start(ctx)
	for _, name := range s.RunNow {
		if err := sched.RunNow(name); err != nil {
			_ = sched.Stop()
			return ferrors.ValidationError("cannot start job").WithCause(err).WithContext("job", name).UserAction().Build()
		}
	}
	for _, name := range sched.Jobs() {
		if next, err := sched.NextRun(name); err == nil {
			slog.Info("Next scheduled run", logfields.Job(name), slog.Time("at", next))
		}
	}

	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping scheduler...")
	return sched.Stop()
}
