package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/recreate-skps/internal/config"
)

// Global carries state shared by every subcommand.
type Global struct {
	Stdout io.Writer
}

// NewGlobal returns the state used by the real binary.
func NewGlobal() *Global { return &Global{Stdout: os.Stdout} }

// CLI definition & global flags.
type CLI struct {
	Config   string           `short:"c" help:"Configuration file path" default:"recreate-skps.yaml" env:"RECREATE_SKPS_CONFIG"`
	Verbose  bool             `short:"v" help:"Enable verbose logging"`
	LogLevel string           `name:"log-level" help:"Log level (debug, info, warn, error)" env:"RECREATE_SKPS_LOG_LEVEL"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run      RunCmd      `cmd:"" help:"Run the RecreateSKPs recipe once"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
	Schedule ScheduleCmd `cmd:"" help:"Run the recipe on the configured cron schedule"`
	History  HistoryCmd  `cmd:"" help:"Show recent runs from the history database"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	setupLogging(c.level(config.LogLevelInfo), config.LoggingConfig{Format: config.LogFormatText})
	return nil
}

// level resolves the log level: -v, then --log-level, then the fallback.
func (c *CLI) level(fallback config.LogLevel) slog.Level {
	switch {
	case c.Verbose:
		return slog.LevelDebug
	case c.LogLevel != "":
		return config.NormalizeLogLevel(c.LogLevel).SlogLevel()
	default:
		return fallback.SlogLevel()
	}
}

// applyLogging reconfigures logging from the loaded file; flags still win.
func (c *CLI) applyLogging(cfg *config.Config) {
	setupLogging(c.level(cfg.Logging.Level), cfg.Logging)
}

var logLevel = new(slog.LevelVar)

func setupLogging(level slog.Level, lc config.LoggingConfig) {
	logLevel.Set(level)
	slog.SetDefault(slog.New(lc.NewHandler(os.Stderr, logLevel)))
}

// Overrides are command-line values that take precedence over the file.
type Overrides struct {
	Builder      string
	StartDir     string
	WorkDir      string
	SkipCheckout bool
}

// loadConfig reads the configuration file and applies overrides.
func (c *CLI) loadConfig(o Overrides) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, o)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c.applyLogging(cfg)
	return cfg, nil
}

func applyOverrides(cfg *config.Config, o Overrides) {
	if o.Builder != "" {
		cfg.Builder = o.Builder
	}
	if o.StartDir != "" {
		cfg.Paths.StartDir = o.StartDir
	}
	if o.WorkDir != "" && o.WorkDir != cfg.Paths.WorkDir {
		old := cfg.Paths.WorkDir
		cfg.Paths.WorkDir = o.WorkDir
		// Locations derived from the old work dir follow it.
		if cfg.Paths.DepotTools == filepath.Join(old, "depot_tools") {
			cfg.Paths.DepotTools = filepath.Join(o.WorkDir, "depot_tools")
		}
		if cfg.Deps.GoPath == filepath.Join(old, "gopath") {
			cfg.Deps.GoPath = filepath.Join(o.WorkDir, "gopath")
		}
	}
	if o.SkipCheckout {
		cfg.Checkout.Skip = true
	}
}
