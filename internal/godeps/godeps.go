// Package godeps refreshes the Go packages the upload script depends on and
// describes the environment those packages are installed into.
package godeps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"git.home.luguber.info/inful/recreate-skps/internal/step"
)

// StepName is the step name of the dependency refresh.
const StepName = "update go deps"

// Refresher runs the dependency refresh command with a dedicated GOPATH.
type Refresher struct {
	Runner  step.Runner
	GoPath  string
	GoRoot  string   // optional; its bin directory is added to PATH
	Command []string // argv, e.g. go get -u -t go.skia.org/infra/...
	Dir     string
}

// Env returns the variables the upload step needs to find the refreshed
// packages: GOPATH, and PATH extended with the GOPATH and toolchain bin dirs.
func (r *Refresher) Env() map[string]string {
	path := ""
	for _, p := range r.PathDirs() {
		path += p + string(os.PathListSeparator)
	}
	env := map[string]string{
		"GOPATH": r.GoPath,
		"PATH":   path + "${PATH}",
	}
	if r.GoRoot != "" {
		env["GOROOT"] = r.GoRoot
	}
	return env
}

// PathDirs returns the directories prepended to PATH, in order.
func (r *Refresher) PathDirs() []string {
	dirs := []string{filepath.Join(r.GoPath, "bin")}
	if r.GoRoot != "" {
		dirs = append(dirs, filepath.Join(r.GoRoot, "bin"))
	}
	return dirs
}

// Refresh runs the refresh command.
func (r *Refresher) Refresh(ctx context.Context) error {
	if len(r.Command) == 0 {
		return fmt.Errorf("%w: %s", step.ErrEmptyCommand, StepName)
	}
	if r.GoPath == "" {
		return fmt.Errorf("go deps: GOPATH not set")
	}
	if err := os.MkdirAll(r.GoPath, 0o750); err != nil {
		return fmt.Errorf("go deps: create GOPATH: %w", err)
	}
	_, err := r.Runner.Run(ctx, step.Step{
		Name: StepName,
		Args: slices.Clone(r.Command),
		Dir:  r.Dir,
		Env:  r.Env(),
	})
	return err
}
