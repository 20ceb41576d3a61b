// Package schedule runs the recipe on cron schedules and reloads the schedule
// when the configuration file changes.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/recreate-skps/internal/config"
	"git.home.luguber.info/inful/recreate-skps/internal/logfields"
)

// RunFunc executes one scheduled run.
type RunFunc func(ctx context.Context, job config.ScheduledJob) error

// Scheduler wraps a gocron scheduler. At most one run executes at a time:
// runs share the output directory and credential path.
type Scheduler struct {
	scheduler gocron.Scheduler
	run       RunFunc

	mu   sync.Mutex
	ctx  context.Context
	jobs map[string]uuid.UUID
}

// New creates a scheduler that calls run for every due job.
func New(run RunFunc, opts ...gocron.SchedulerOption) (*Scheduler, error) {
	opts = append([]gocron.SchedulerOption{
		gocron.WithLimitConcurrentJobs(1, gocron.LimitModeWait),
	}, opts...)
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{
		scheduler: s,
		run:       run,
		ctx:       context.Background(),
		jobs:      make(map[string]uuid.UUID),
	}, nil
}

// Register replaces the registered jobs with jobs. The new jobs are all
// created before the old ones are removed; on error the previous schedule
// stays in place.
func (s *Scheduler) Register(jobs []config.ScheduledJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := make(map[string]uuid.UUID, len(jobs))
	for _, job := range jobs {
		j, err := s.scheduler.NewJob(
			gocron.CronJob(job.Cron, false),
			gocron.NewTask(s.execute, job),
			gocron.WithName(job.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			s.remove(added)
			return fmt.Errorf("failed to schedule job %s: %w", job.Name, err)
		}
		added[job.Name] = j.ID()
	}

	s.remove(s.jobs)
	s.jobs = added
	for _, job := range jobs {
		slog.Info("Scheduled job",
			logfields.Job(job.Name),
			logfields.Schedule(job.Cron),
			logfields.Builder(job.Builder))
	}
	return nil
}

func (s *Scheduler) remove(jobs map[string]uuid.UUID) {
	for name, id := range jobs {
		if err := s.scheduler.RemoveJob(id); err != nil {
			slog.Warn("Failed to remove scheduled job", logfields.Job(name), logfields.Error(err))
		}
	}
}

// Start begins the scheduler. Runs receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	slog.Info("Starting scheduler", slog.Int("jobs", len(s.Jobs())))
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for a running job to return.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// Jobs returns the registered job names, sorted.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NextRun returns when the named job fires next.
func (s *Scheduler) NextRun(name string) (time.Time, error) {
	job, err := s.job(name)
	if err != nil {
		return time.Time{}, err
	}
	return job.NextRun()
}

// RunNow triggers the named job immediately.
func (s *Scheduler) RunNow(name string) error {
	job, err := s.job(name)
	if err != nil {
		return err
	}
	return job.RunNow()
}

func (s *Scheduler) job(name string) (gocron.Job, error) {
	s.mu.Lock()
	id, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown job %q", name)
	}
	for _, j := range s.scheduler.Jobs() {
		if j.ID() == id {
			return j, nil
		}
	}
	return nil, fmt.Errorf("job %q not registered with scheduler", name)
}

// execute is called by gocron for a due job.
func (s *Scheduler) execute(job config.ScheduledJob) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	slog.Info("Executing scheduled run", logfields.Job(job.Name), logfields.Builder(job.Builder))
	if err := s.run(ctx, job); err != nil {
		slog.Error("Scheduled run failed", logfields.Job(job.Name), logfields.Builder(job.Builder), logfields.Error(err))
	}
}
