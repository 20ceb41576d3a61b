package models

import (
	"log/slog"
	"time"

	"git.home.luguber.info/inful/recreate-skps/internal/logfields"
	"git.home.luguber.info/inful/recreate-skps/internal/metrics"
)

// RunObserver receives callbacks around stage execution and the run lifecycle.
type RunObserver interface {
	OnRunStart(report *RunReport)
	OnStageStart(stage StageName)
	OnStageComplete(stage StageName, duration time.Duration, result StageResult, err error)
	OnRunComplete(report *RunReport)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(*RunReport)                                         {}
func (NoopObserver) OnStageStart(StageName)                                        {}
func (NoopObserver) OnStageComplete(StageName, time.Duration, StageResult, error) {}
func (NoopObserver) OnRunComplete(*RunReport)                                      {}

// Observers fans every callback out to each member in order.
type Observers []RunObserver

func (o Observers) OnRunStart(report *RunReport) {
	for _, ob := range o {
		ob.OnRunStart(report)
	}
}

func (o Observers) OnStageStart(stage StageName) {
	for _, ob := range o {
		ob.OnStageStart(stage)
	}
}

func (o Observers) OnStageComplete(stage StageName, d time.Duration, result StageResult, err error) {
	for _, ob := range o {
		ob.OnStageComplete(stage, d, result, err)
	}
}

func (o Observers) OnRunComplete(report *RunReport) {
	for _, ob := range o {
		ob.OnRunComplete(report)
	}
}

// RecorderObserver adapts metrics.Recorder into a RunObserver.
type RecorderObserver struct{ Recorder metrics.Recorder }

func (r RecorderObserver) OnRunStart(*RunReport)  {}
func (r RecorderObserver) OnStageStart(StageName) {}

func (r RecorderObserver) OnStageComplete(stage StageName, d time.Duration, result StageResult, _ error) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.ObserveStageDuration(string(stage), d)
	r.Recorder.IncStageResult(string(stage), resultLabel(result))
}

func (r RecorderObserver) OnRunComplete(report *RunReport) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.ObserveRunDuration(report.Duration())
	r.Recorder.IncRunOutcome(string(report.Outcome))
	if report.Uploaded {
		r.Recorder.IncUpload(string(report.Kind))
	}
}

func resultLabel(r StageResult) metrics.ResultLabel {
	switch r {
	case StageResultSuccess:
		return metrics.ResultSuccess
	case StageResultSkipped:
		return metrics.ResultSkipped
	case StageResultCanceled:
		return metrics.ResultCanceled
	default:
		return metrics.ResultFatal
	}
}

// LogObserver writes the run lifecycle to a slog logger.
type LogObserver struct {
	Logger *slog.Logger
	runID  string
}

// NewLogObserver returns a LogObserver on logger, or on slog.Default when nil.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{Logger: logger}
}

func (l *LogObserver) OnRunStart(report *RunReport) {
	l.runID = report.RunID
	l.Logger.Info("Run started",
		logfields.RunID(report.RunID),
		logfields.Builder(report.Builder),
		logfields.RunKind(string(report.Kind)),
		slog.Bool("dry_run", report.DryRun))
}

func (l *LogObserver) OnStageStart(stage StageName) {
	l.Logger.Info("Stage started", logfields.RunID(l.runID), logfields.Stage(string(stage)))
}

func (l *LogObserver) OnStageComplete(stage StageName, d time.Duration, result StageResult, err error) {
	attrs := []any{
		logfields.RunID(l.runID),
		logfields.Stage(string(stage)),
		slog.String("result", string(result)),
		logfields.DurationMS(float64(d.Milliseconds())),
	}
	if err != nil {
		l.Logger.Error("Stage failed", append(attrs, logfields.Error(err))...)
		return
	}
	l.Logger.Info("Stage completed", attrs...)
}

func (l *LogObserver) OnRunComplete(report *RunReport) {
	attrs := []any{
		logfields.RunID(report.RunID),
		logfields.Outcome(string(report.Outcome)),
		slog.Bool("uploaded", report.Uploaded),
		logfields.DurationMS(float64(report.Duration().Milliseconds())),
	}
	if report.Outcome != OutcomeSuccess {
		l.Logger.Error("Run finished", append(attrs, logfields.Stage(string(report.ErrorStage)), slog.String("error", report.Error))...)
		return
	}
	l.Logger.Info("Run finished", attrs...)
}
