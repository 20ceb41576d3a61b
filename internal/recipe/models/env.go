package models

import "maps"

// BuildEnv is the set of environment overrides applied to the build-config step.
// Values are fixed for the lifetime of a run; Map hands out copies.
type BuildEnv struct {
	vars map[string]string
}

// DefaultBuildEnv returns the overrides the gn step always runs with.
func DefaultBuildEnv() BuildEnv {
	return NewBuildEnv(map[string]string{
		"CPPFLAGS":       "-DSK_ALLOW_CROSSPROCESS_PICTUREIMAGEFILTERS=1",
		"GYP_GENERATORS": "ninja",
	})
}

// NewBuildEnv copies vars into a BuildEnv.
func NewBuildEnv(vars map[string]string) BuildEnv {
	return BuildEnv{vars: maps.Clone(vars)}
}

// With returns a new BuildEnv with extra layered over e. e is left untouched.
func (e BuildEnv) With(extra map[string]string) BuildEnv {
	out := maps.Clone(e.vars)
	if out == nil {
		out = make(map[string]string, len(extra))
	}
	maps.Copy(out, extra)
	return BuildEnv{vars: out}
}

// Map returns a copy of the overrides.
func (e BuildEnv) Map() map[string]string { return maps.Clone(e.vars) }

// Get returns a single override.
func (e BuildEnv) Get(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}
