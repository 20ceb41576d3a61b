package recipe

import (
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/recreate-skps/internal/config"
	"git.home.luguber.info/inful/recreate-skps/internal/recipe/models"
	"git.home.luguber.info/inful/recreate-skps/internal/step"
)

// Step names as they appear in logs and history.
const (
	StepGN      = "GN"
	StepCompile = "Build Chrome"
	StepCapture = "Recreate SKPs"
	StepUpload  = "Upload SKPs"
)

// PartnerBucketFlag asks the capture tool to also target the partner bucket.
const PartnerBucketFlag = "--upload_to_partner_bucket"

// LayoutFromConfig resolves the directories of a run.
func LayoutFromConfig(cfg *config.Config) models.Layout {
	return models.Layout{
		WorkDir:    cfg.Paths.WorkDir,
		SrcDir:     cfg.SrcDir(),
		SkiaDir:    cfg.SkiaDir(),
		OutDir:     cfg.OutDir(),
		OutputDir:  cfg.OutputDir(),
		DepotTools: cfg.Paths.DepotTools,
		HomeDir:    cfg.Paths.HomeDir,
		CookiePath: cfg.CookiePath(),
	}
}

func gnStep(cfg *config.Config, l models.Layout, env models.BuildEnv) step.Step {
	return step.Step{
		Name: StepGN,
		Args: []string{joinUnlessAbs(l.SrcDir, cfg.Build.GN), "gen", l.OutDir},
		Dir:  l.SrcDir,
		Env:  env.Map(),
	}
}

func compileStep(cfg *config.Config, l models.Layout) step.Step {
	return step.Step{
		Name: StepCompile,
		Args: []string{cfg.Build.Ninja, "-C", l.OutDir, cfg.Build.Target},
		Dir:  l.SrcDir,
	}
}

func captureStep(cfg *config.Config, l models.Layout, kind models.RunKind) step.Step {
	args := []string{
		cfg.Capture.Python,
		joinUnlessAbs(l.SkiaDir, cfg.Capture.Script),
		"--chrome_src_path", l.SrcDir,
		"--browser_executable", l.BrowserBinary(cfg.Build.Target),
		"--target_dir", l.OutputDir,
	}
	if kind.Uploads() {
		args = append(args, PartnerBucketFlag)
	}
	return step.Step{
		Name: StepCapture,
		Args: args,
		Dir:  l.SkiaDir,
		Env:  captureEnv(l),
	}
}

func uploadStep(cfg *config.Config, l models.Layout, cookiePath string, deps DepsRefresher) step.Step {
	return step.Step{
		Name: StepUpload,
		Args: []string{
			cfg.Capture.Python,
			joinUnlessAbs(l.SkiaDir, cfg.Upload.Script),
			"--target_dir", l.OutputDir,
			"--gitcookies", cookiePath,
		},
		Dir: l.SkiaDir,
		Env: uploadEnv(l, deps),
	}
}

// captureEnv runs the capture tool headless with depot_tools ahead of PATH.
func captureEnv(l models.Layout) map[string]string {
	return map[string]string{
		"CHROME_HEADLESS": "1",
		"PATH":            prependPath(l.DepotTools),
	}
}

// uploadEnv is the capture env merged with the Go dependency env. PATH keeps
// both the Go bin directories and depot_tools.
func uploadEnv(l models.Layout, deps DepsRefresher) map[string]string {
	env := step.Merge(captureEnv(l), deps.Env())
	dirs := append(deps.PathDirs(), l.DepotTools)
	env["PATH"] = prependPath(dirs...)
	return env
}

func prependPath(dirs ...string) string {
	parts := make([]string, 0, len(dirs)+1)
	for _, d := range dirs {
		if d != "" {
			parts = append(parts, d)
		}
	}
	parts = append(parts, "${PATH}")
	return strings.Join(parts, string(os.PathListSeparator))
}

func joinUnlessAbs(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
