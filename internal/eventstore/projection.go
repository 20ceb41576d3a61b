package eventstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

const runStatusRunning = "running"

// RunSummary is a read model summarizing a finished or in-progress run.
type RunSummary struct {
	RunID       string         `json:"run_id"`
	Builder     string         `json:"builder"`
	Kind        string         `json:"kind"`
	DryRun      bool           `json:"dry_run,omitempty"`
	Status      string         `json:"status"` // running, or the run outcome
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Duration    time.Duration  `json:"duration,omitempty"`
	Uploaded    bool           `json:"uploaded"`
	ErrorStage  string         `json:"error_stage,omitempty"`
	Error       string         `json:"error,omitempty"`
	Stages      []StageSummary `json:"stages,omitempty"`
}

// StageSummary is one stage of a RunSummary.
type StageSummary struct {
	Stage    string        `json:"stage"`
	Result   string        `json:"result"`
	Duration time.Duration `json:"duration"`
}

// RunHistoryProjection rebuilds run summaries from stored events.
type RunHistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	runs    map[string]*RunSummary
	maxSize int
}

// NewRunHistoryProjection creates a projection backed by store keeping at most maxSize runs.
func NewRunHistoryProjection(store Store, maxSize int) *RunHistoryProjection {
	if maxSize <= 0 {
		maxSize = 20
	}
	return &RunHistoryProjection{store: store, runs: make(map[string]*RunSummary), maxSize: maxSize}
}

// Rebuild reconstructs the projection from the runs started since the given time.
func (p *RunHistoryProjection) Rebuild(ctx context.Context, since time.Time) error {
	events, err := p.store.StartedBetween(ctx, since, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = make(map[string]*RunSummary)
	for _, e := range events {
		p.applyLocked(e)
	}
	return nil
}

func (p *RunHistoryProjection) applyLocked(e Record) {
	runID := e.RunID
	if runID == "" {
		return
	}
	s, ok := p.runs[runID]
	if !ok {
		s = &RunSummary{RunID: runID, Status: runStatusRunning, StartedAt: e.At}
		p.runs[runID] = s
	}

	switch e.Type {
	case TypeRunStarted:
		var payload RunStarted
		if err := e.Decode(&payload); err == nil {
			s.Builder, s.Kind, s.DryRun = payload.Builder, payload.Kind, payload.DryRun
		}
		s.StartedAt = e.At
	case TypeStageCompleted:
		var payload StageCompleted
		if err := e.Decode(&payload); err == nil {
			s.Stages = append(s.Stages, StageSummary{
				Stage:    payload.Stage,
				Result:   payload.Result,
				Duration: time.Duration(payload.DurationMS) * time.Millisecond,
			})
		}
	case TypeRunCompleted:
		var payload RunCompleted
		if err := e.Decode(&payload); err == nil {
			s.Status = payload.Outcome
			s.Uploaded = payload.Uploaded
			s.ErrorStage = payload.ErrorStage
			s.Error = payload.Error
			s.Duration = time.Duration(payload.DurationMS) * time.Millisecond
		}
		done := e.At
		s.CompletedAt = &done
	}
}

// History returns up to the projection's max size of runs, newest first.
func (p *RunHistoryProjection) History() []RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]RunSummary, 0, len(p.runs))
	for _, s := range p.runs {
		cp := *s
		cp.Stages = append([]StageSummary(nil), s.Stages...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if len(out) > p.maxSize {
		out = out[:p.maxSize]
	}
	return out
}

// Load reads every event of one run regardless of its age and adds the run
// to the projection. It reports false when the store has no events for it.
func (p *RunHistoryProjection) Load(ctx context.Context, runID string) (RunSummary, bool, error) {
	events, err := p.store.RunEvents(ctx, runID)
	if err != nil {
		return RunSummary{}, false, err
	}
	if len(events) == 0 {
		return RunSummary{}, false, nil
	}
	p.mu.Lock()
	delete(p.runs, runID)
	for _, e := range events {
		p.applyLocked(e)
	}
	p.mu.Unlock()
	s, ok := p.Run(runID)
	return s, ok, nil
}

// Run returns the summary of a single run.
func (p *RunHistoryProjection) Run(runID string) (RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.runs[runID]
	if !ok {
		return RunSummary{}, false
	}
	cp := *s
	cp.Stages = append([]StageSummary(nil), s.Stages...)
	return cp, true
}
