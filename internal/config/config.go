package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/recreate-skps/internal/foundation/errors"
)

// Config is the recreate-skps configuration file.
type Config struct {
	Builder  string         `yaml:"builder"`
	Paths    PathsConfig    `yaml:"paths"`
	Checkout CheckoutConfig `yaml:"checkout"`
	Build    BuildConfig    `yaml:"build"`
	Capture  CaptureConfig  `yaml:"capture"`
	Upload   UploadConfig   `yaml:"upload"`
	Deps     DepsConfig     `yaml:"deps"`
	Metrics  MetricsConfig  `yaml:"metrics,omitempty"`
	History  HistoryConfig  `yaml:"history,omitempty"`
	Notify   NotifyConfig   `yaml:"notify,omitempty"`
	Schedule ScheduleConfig `yaml:"schedule,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
}

// PathsConfig describes the directories a run works in.
type PathsConfig struct {
	WorkDir    string `yaml:"work_dir"`    // checkout root; src and skia live below it
	StartDir   string `yaml:"start_dir"`   // parent of skp_output
	DepotTools string `yaml:"depot_tools"` // prepended to PATH for capture
	HomeDir    string `yaml:"home_dir"`    // credential file location
}

// CheckoutConfig lists the repositories fetched before the build.
type CheckoutConfig struct {
	Skip         bool         `yaml:"skip,omitempty"`
	Incremental  bool         `yaml:"incremental"`
	Depth        int          `yaml:"depth"`
	Repositories []Repository `yaml:"repositories"`
	Retry        RetryConfig  `yaml:"retry"`
}

// Repository is a single git checkout below the work directory.
type Repository struct {
	Name   string      `yaml:"name"`
	URL    string      `yaml:"url"`
	Branch string      `yaml:"branch,omitempty"`
	Auth   *AuthConfig `yaml:"auth,omitempty"`
}

// BuildConfig configures the gn/ninja invocations.
type BuildConfig struct {
	GN     string            `yaml:"gn"`      // relative to the src checkout unless absolute
	Ninja  string            `yaml:"ninja"`   // looked up on PATH unless absolute
	OutDir string            `yaml:"out_dir"` // relative to the src checkout
	Target string            `yaml:"target"`
	Env    map[string]string `yaml:"env,omitempty"` // merged over the fixed build env
}

// CaptureConfig configures the SKP capture tool.
type CaptureConfig struct {
	Python     string `yaml:"python"`
	Script     string `yaml:"script"` // relative to the skia checkout
	SmokeCheck bool   `yaml:"smoke_check,omitempty"`
}

// UploadConfig configures the upload script and its credential.
type UploadConfig struct {
	Script      string `yaml:"script"`       // relative to the skia checkout
	MetadataURL string `yaml:"metadata_url"` // %s is replaced by metadata_key
	MetadataKey string `yaml:"metadata_key"`
	CookieFile  string `yaml:"cookie_file"` // file name below home_dir
}

// DepsConfig configures the Go dependency refresh before upload.
type DepsConfig struct {
	GoPath  string   `yaml:"gopath"`
	GoRoot  string   `yaml:"goroot,omitempty"`
	Command []string `yaml:"command"`
}

// MetricsConfig configures metric export at the end of a run.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url,omitempty"`
	Job            string `yaml:"job,omitempty"`
	Textfile       string `yaml:"textfile,omitempty"`
}

// Enabled reports whether any export target is configured.
func (m MetricsConfig) Enabled() bool { return m.PushgatewayURL != "" || m.Textfile != "" }

// HistoryConfig configures the run history database. Empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// NotifyConfig configures run notifications over NATS. Empty URL disables them.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// ScheduleConfig lists the jobs of the schedule command.
type ScheduleConfig struct {
	Jobs []ScheduledJob `yaml:"jobs,omitempty"`
}

// ScheduledJob runs the recipe for Builder on a cron expression.
type ScheduledJob struct {
	Name    string `yaml:"name"`
	Cron    string `yaml:"cron"`
	Builder string `yaml:"builder"`
}

// LoggingConfig configures the default slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// SrcDir returns the browser checkout directory.
func (c *Config) SrcDir() string { return filepath.Join(c.Paths.WorkDir, "src") }

// SkiaDir returns the skia checkout directory.
func (c *Config) SkiaDir() string { return filepath.Join(c.Paths.WorkDir, "skia") }

// OutDir returns the build output directory.
func (c *Config) OutDir() string { return joinUnlessAbs(c.SrcDir(), c.Build.OutDir) }

// OutputDir returns the scratch directory the capture tool writes into.
func (c *Config) OutputDir() string { return filepath.Join(c.Paths.StartDir, "skp_output") }

// CookiePath returns the credential file location.
func (c *Config) CookiePath() string { return filepath.Join(c.Paths.HomeDir, c.Upload.CookieFile) }

// MetadataEndpoint returns the metadata URL for the configured key.
func (c *Config) MetadataEndpoint() string {
	if strings.Contains(c.Upload.MetadataURL, "%s") {
		return fmt.Sprintf(c.Upload.MetadataURL, c.Upload.MetadataKey)
	}
	return c.Upload.MetadataURL
}

func joinUnlessAbs(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Load reads, expands, defaults, and validates a configuration file.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ferrors.ConfigError("configuration file not found").
				WithContext("path", configPath).
				UserAction().
				Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Build()
	}
	return Parse(data)
}

// Parse decodes YAML config data after environment expansion.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to unmarshal config").Build()
	}

	if err := ApplyDefaults(&cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to apply defaults").Build()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied. It fails when
// a default cannot be resolved, such as the home directory.
func Default() (*Config, error) {
	var cfg Config
	if err := ApplyDefaults(&cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to apply defaults").
			WithContext("hint", "set paths.home_dir or $HOME").
			UserAction().
			Build()
	}
	return &cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			UserAction().
			Build()
	}

	example := &Config{Paths: PathsConfig{HomeDir: "${HOME}"}}
	if err := ApplyDefaults(example); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "failed to apply defaults").Build()
	}
	example.Builder = "Housekeeper-Nightly-RecreateSKPs_Canary"
	example.Deps.GoPath = "${HOME}/go"
	example.Metrics.Textfile = "./recreate_skps.prom"
	example.History.Path = "./recreate-skps-history.db"
	example.Notify.Subject = DefaultNotifySubject

	data, err := yaml.Marshal(example)
	if err != nil {
		return ferrors.InternalError("failed to marshal config").WithCause(err).Build()
	}
	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return ferrors.FileSystemError("failed to create config directory").WithCause(err).Build()
		}
	}
	// #nosec G306 -- example config carries no secrets
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return ferrors.FileSystemError("failed to write config file").
			WithCause(err).
			WithContext("path", configPath).
			Build()
	}
	return nil
}
