package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	ferrors "git.home.luguber.info/inful/recreate-skps/internal/foundation/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	p := writeConfig(t, "builder: Housekeeper-Weekly-RecreateSKPs\npaths:\n  home_dir: /home/bot\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Builder != DefaultWeeklyBuilder {
		t.Errorf("builder = %q", cfg.Builder)
	}
	if cfg.Paths.WorkDir != DefaultWorkDir || cfg.Paths.StartDir != DefaultStartDir {
		t.Errorf("paths not defaulted: %+v", cfg.Paths)
	}
	if cfg.Paths.DepotTools != filepath.Join(DefaultWorkDir, "depot_tools") {
		t.Errorf("depot_tools = %q", cfg.Paths.DepotTools)
	}
	if len(cfg.Checkout.Repositories) != 2 || cfg.Checkout.Repositories[0].Name != "src" || cfg.Checkout.Repositories[1].Name != "skia" {
		t.Errorf("default repositories = %+v", cfg.Checkout.Repositories)
	}
	if cfg.Checkout.Depth != 1 || cfg.Checkout.Retry.Backoff != RetryBackoffLinear || cfg.Checkout.Retry.MaxRetries != 2 {
		t.Errorf("checkout defaults = %+v", cfg.Checkout)
	}
	if cfg.Build.Target != "chrome" || cfg.Build.OutDir != "out/Release" || cfg.Build.GN != DefaultGN {
		t.Errorf("build defaults = %+v", cfg.Build)
	}
	if !reflect.DeepEqual(cfg.Deps.Command, DefaultDepsCommand()) {
		t.Errorf("deps command = %v", cfg.Deps.Command)
	}
	if cfg.Logging.Level != LogLevelInfo || cfg.Logging.Format != LogFormatText {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if len(cfg.Schedule.Jobs) != 2 {
		t.Errorf("expected default schedule jobs, got %+v", cfg.Schedule.Jobs)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("SKP_TEST_HOME", "/srv/bot")
	t.Setenv("SKP_TEST_TOKEN", "s3cret")
	p := writeConfig(t, `
paths:
  home_dir: ${SKP_TEST_HOME}
checkout:
  repositories:
    - name: src
      url: https://example.com/src.git
      auth:
        type: TOKEN
        token: ${SKP_TEST_TOKEN}
    - name: skia
      url: https://example.com/skia.git
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.HomeDir != "/srv/bot" {
		t.Errorf("home_dir = %q", cfg.Paths.HomeDir)
	}
	auth := cfg.Checkout.Repositories[0].Auth
	if auth == nil || auth.Type != AuthTypeToken || auth.Token != "s3cret" {
		t.Errorf("auth = %+v", auth)
	}
	if cfg.CookiePath() != filepath.Join("/srv/bot", DefaultCookieFile) {
		t.Errorf("cookie path = %q", cfg.CookiePath())
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !ferrors.HasCategory(err, ferrors.CategoryConfig) {
		t.Errorf("expected config category, got %v", err)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	p := writeConfig(t, "paths:\n  home_dir: /h\nbogus: true\n")
	if _, err := Load(p); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestParseEmptyDocument(t *testing.T) {
	t.Setenv("HOME", "/home/empty")
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil): %v", err)
	}
	if cfg.Upload.MetadataKey != DefaultMetadataKey {
		t.Errorf("metadata key = %q", cfg.Upload.MetadataKey)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := &Config{}
	cfg.Paths = PathsConfig{WorkDir: "/w", StartDir: "/start", HomeDir: "/home/bot"}
	if err := ApplyDefaults(cfg); err != nil {
		t.Fatal(err)
	}
	cases := map[string]string{
		"src":    cfg.SrcDir(),
		"skia":   cfg.SkiaDir(),
		"out":    cfg.OutDir(),
		"output": cfg.OutputDir(),
		"cookie": cfg.CookiePath(),
	}
	want := map[string]string{
		"src":    "/w/src",
		"skia":   "/w/skia",
		"out":    "/w/src/out/Release",
		"output": "/start/skp_output",
		"cookie": "/home/bot/update_skps.git_cookies",
	}
	if !reflect.DeepEqual(cases, want) {
		t.Errorf("derived paths = %v, want %v", cases, want)
	}
	if got := cfg.MetadataEndpoint(); got != "http://metadata/computeMetadata/v1/project/attributes/update_skps_git_cookies" {
		t.Errorf("metadata endpoint = %q", got)
	}
}

func TestDefaultReportsUnresolvableHome(t *testing.T) {
	t.Setenv("HOME", "/home/bot")
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if cfg.Paths.HomeDir != "/home/bot" || cfg.CookiePath() != filepath.Join("/home/bot", DefaultCookieFile) {
		t.Errorf("home_dir = %q, cookie path = %q", cfg.Paths.HomeDir, cfg.CookiePath())
	}

	t.Setenv("HOME", "")
	if _, err := Default(); !ferrors.HasCategory(err, ferrors.CategoryConfig) {
		t.Fatalf("expected config error without a home directory, got %v", err)
	}

	p := filepath.Join(t.TempDir(), "recreate-skps.yaml")
	if err := Init(p, false); err != nil {
		t.Fatalf("Init without HOME: %v", err)
	}
}

func TestInitWritesLoadableExample(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "recreate-skps.yaml")
	if err := Init(p, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := Init(p, false); err == nil {
		t.Fatal("expected Init to refuse overwriting without force")
	}
	if err := Init(p, true); err != nil {
		t.Fatalf("Init(force): %v", err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), DefaultNightlyBuilder) {
		t.Errorf("example config missing builder:\n%s", data)
	}
	t.Setenv("HOME", "/home/example")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load(example): %v", err)
	}
	if cfg.Paths.HomeDir != "/home/example" {
		t.Errorf("home_dir = %q", cfg.Paths.HomeDir)
	}
}
