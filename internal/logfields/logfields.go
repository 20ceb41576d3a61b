package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyBuilder    = "builder"
	KeyRunKind    = "run_kind"
	KeyStage      = "stage"
	KeyStep       = "step"
	KeyCommand    = "command"
	KeyExitCode   = "exit_code"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyDir        = "dir"
	KeyName       = "name"
	KeyURL        = "url"
	KeyJob        = "job"
	KeySchedule   = "schedule"
	KeyOutcome    = "outcome"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr          { return slog.String(KeyRunID, id) }
func Builder(name string) slog.Attr      { return slog.String(KeyBuilder, name) }
func RunKind(kind string) slog.Attr      { return slog.String(KeyRunKind, kind) }
func Stage(name string) slog.Attr        { return slog.String(KeyStage, name) }
func Step(name string) slog.Attr         { return slog.String(KeyStep, name) }
func Command(args []string) slog.Attr    { return slog.Any(KeyCommand, args) }
func ExitCode(code int) slog.Attr        { return slog.Int(KeyExitCode, code) }
func DurationMS(ms float64) slog.Attr    { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Dir(d string) slog.Attr             { return slog.String(KeyDir, d) }
func Name(n string) slog.Attr            { return slog.String(KeyName, n) }
func URL(u string) slog.Attr             { return slog.String(KeyURL, u) }
func Job(name string) slog.Attr          { return slog.String(KeyJob, name) }
func Schedule(expr string) slog.Attr     { return slog.String(KeySchedule, expr) }
func Outcome(outcome string) slog.Attr   { return slog.String(KeyOutcome, outcome) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
