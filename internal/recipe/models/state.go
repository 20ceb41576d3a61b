package models

import "path/filepath"

// Layout holds the resolved filesystem locations of a run.
type Layout struct {
	WorkDir    string // checkout root
	SrcDir     string // <work>/src
	SkiaDir    string // <work>/skia
	OutDir     string // <src>/out/Release
	OutputDir  string // <start>/skp_output
	DepotTools string
	HomeDir    string
	CookiePath string // <home>/update_skps.git_cookies
}

// BrowserBinary is the browser executable the compile stage produces.
func (l Layout) BrowserBinary(target string) string {
	return filepath.Join(l.OutDir, target)
}

// RunState carries per-run data shared between stages.
type RunState struct {
	Report *RunReport
	Kind   RunKind
	Layout Layout
	Env    BuildEnv
}

// NewRunState assembles the state for a single run.
func NewRunState(report *RunReport, layout Layout, env BuildEnv) *RunState {
	return &RunState{Report: report, Kind: report.Kind, Layout: layout, Env: env}
}
