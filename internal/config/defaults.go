package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Default values applied to omitted fields.
const (
	DefaultWorkDir        = "work"
	DefaultStartDir       = "."
	DefaultCheckoutDepth  = 1
	DefaultGN             = "buildtools/linux64/gn"
	DefaultNinja          = "ninja"
	DefaultOutDir         = "out/Release"
	DefaultTarget         = "chrome"
	DefaultPython         = "python"
	DefaultCaptureScript  = "infra/bots/assets/skp/create.py"
	DefaultUploadScript   = "infra/bots/upload_skps.py"
	DefaultMetadataURL    = "http://metadata/computeMetadata/v1/project/attributes/%s"
	DefaultMetadataKey    = "update_skps_git_cookies"
	DefaultCookieFile     = "update_skps.git_cookies"
	DefaultMetricsJob     = "recreate_skps"
	DefaultNotifySubject  = "recreate_skps.runs"
	DefaultChromiumURL    = "https://chromium.googlesource.com/chromium/src.git"
	DefaultSkiaURL        = "https://skia.googlesource.com/skia.git"
	DefaultNightlyBuilder = "Housekeeper-Nightly-RecreateSKPs_Canary"
	DefaultWeeklyBuilder  = "Housekeeper-Weekly-RecreateSKPs"
)

// DefaultDepsCommand refreshes the infra Go packages used by the upload script.
func DefaultDepsCommand() []string {
	return []string{"go", "get", "-u", "-t", "go.skia.org/infra/..."}
}

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// ApplyDefaults runs every domain applier over cfg in order.
func ApplyDefaults(cfg *Config) error {
	appliers := []DefaultApplier{
		&PathsDefaultApplier{},
		&CheckoutDefaultApplier{},
		&BuildDefaultApplier{},
		&CaptureDefaultApplier{},
		&UploadDefaultApplier{},
		&DepsDefaultApplier{},
		&ObservabilityDefaultApplier{},
		&ScheduleDefaultApplier{},
	}
	for _, a := range appliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("%s: %w", a.Domain(), err)
		}
	}
	return nil
}

// PathsDefaultApplier handles the paths section.
type PathsDefaultApplier struct{}

func (p *PathsDefaultApplier) Domain() string { return "paths" }

func (p *PathsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Paths.WorkDir == "" {
		cfg.Paths.WorkDir = DefaultWorkDir
	}
	if cfg.Paths.StartDir == "" {
		cfg.Paths.StartDir = DefaultStartDir
	}
	if cfg.Paths.DepotTools == "" {
		cfg.Paths.DepotTools = filepath.Join(cfg.Paths.WorkDir, "depot_tools")
	}
	if cfg.Paths.HomeDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.Paths.HomeDir = home
	}
	return nil
}

// CheckoutDefaultApplier handles the checkout section.
type CheckoutDefaultApplier struct{}

func (c *CheckoutDefaultApplier) Domain() string { return "checkout" }

func (c *CheckoutDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Checkout.Depth < 0 {
		cfg.Checkout.Depth = 0
	}
	if cfg.Checkout.Depth == 0 {
		cfg.Checkout.Depth = DefaultCheckoutDepth
	}
	if len(cfg.Checkout.Repositories) == 0 {
		cfg.Checkout.Repositories = []Repository{
			{Name: "src", URL: DefaultChromiumURL},
			{Name: "skia", URL: DefaultSkiaURL},
		}
	}
	for i := range cfg.Checkout.Repositories {
		if a := cfg.Checkout.Repositories[i].Auth; a != nil {
			a.Type = NormalizeAuthType(string(a.Type))
		}
	}

	r := &cfg.Checkout.Retry
	if r.MaxRetries < 0 {
		r.MaxRetries = 0
	}
	if r.MaxRetries == 0 {
		r.MaxRetries = 2
	}
	if mode := NormalizeRetryBackoff(string(r.Backoff)); mode != "" {
		r.Backoff = mode
	} else {
		r.Backoff = RetryBackoffLinear
	}
	if r.InitialDelay == "" {
		r.InitialDelay = "1s"
	}
	if r.MaxDelay == "" {
		r.MaxDelay = "30s"
	}
	return nil
}

// BuildDefaultApplier handles the build section.
type BuildDefaultApplier struct{}

func (b *BuildDefaultApplier) Domain() string { return "build" }

func (b *BuildDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Build.GN == "" {
		cfg.Build.GN = DefaultGN
	}
	if cfg.Build.Ninja == "" {
		cfg.Build.Ninja = DefaultNinja
	}
	if cfg.Build.OutDir == "" {
		cfg.Build.OutDir = DefaultOutDir
	}
	if cfg.Build.Target == "" {
		cfg.Build.Target = DefaultTarget
	}
	return nil
}

// CaptureDefaultApplier handles the capture section.
type CaptureDefaultApplier struct{}

func (c *CaptureDefaultApplier) Domain() string { return "capture" }

func (c *CaptureDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Capture.Python == "" {
		cfg.Capture.Python = DefaultPython
	}
	if cfg.Capture.Script == "" {
		cfg.Capture.Script = DefaultCaptureScript
	}
	return nil
}

// UploadDefaultApplier handles the upload section.
type UploadDefaultApplier struct{}

func (u *UploadDefaultApplier) Domain() string { return "upload" }

func (u *UploadDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Upload.Script == "" {
		cfg.Upload.Script = DefaultUploadScript
	}
	if cfg.Upload.MetadataURL == "" {
		cfg.Upload.MetadataURL = DefaultMetadataURL
	}
	if cfg.Upload.MetadataKey == "" {
		cfg.Upload.MetadataKey = DefaultMetadataKey
	}
	if cfg.Upload.CookieFile == "" {
		cfg.Upload.CookieFile = DefaultCookieFile
	}
	return nil
}

// DepsDefaultApplier handles the deps section.
type DepsDefaultApplier struct{}

func (d *DepsDefaultApplier) Domain() string { return "deps" }

func (d *DepsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Deps.GoPath == "" {
		cfg.Deps.GoPath = filepath.Join(cfg.Paths.WorkDir, "gopath")
	}
	if len(cfg.Deps.Command) == 0 {
		cfg.Deps.Command = DefaultDepsCommand()
	}
	return nil
}

// ObservabilityDefaultApplier handles the metrics, notify and logging sections.
type ObservabilityDefaultApplier struct{}

func (o *ObservabilityDefaultApplier) Domain() string { return "observability" }

func (o *ObservabilityDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = DefaultMetricsJob
	}
	if cfg.Notify.NATSURL != "" && cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	return nil
}

// ScheduleDefaultApplier handles the schedule section.
type ScheduleDefaultApplier struct{}

func (s *ScheduleDefaultApplier) Domain() string { return "schedule" }

func (s *ScheduleDefaultApplier) ApplyDefaults(cfg *Config) error {
	if len(cfg.Schedule.Jobs) > 0 {
		return nil
	}
	cfg.Schedule.Jobs = []ScheduledJob{
		{Name: "nightly-canary", Cron: "0 3 * * *", Builder: DefaultNightlyBuilder},
		{Name: "weekly", Cron: "0 5 * * 0", Builder: DefaultWeeklyBuilder},
	}
	return nil
}
