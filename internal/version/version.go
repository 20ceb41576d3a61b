// Package version reports the build of the running binary.
package version

import (
	"runtime/debug"
	"sync"
)

// Set with -ldflags "-X git.home.luguber.info/inful/recreate-skps/internal/version.Version=v1.2.3".
// Empty commit and build time fall back to the VCS stamp of the Go toolchain.
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info is the resolved build metadata.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	Modified  bool   `json:"modified,omitempty"`
}

var resolve = sync.OnceValue(func() Info {
	info := Info{Version: Version, Commit: GitCommit, BuildTime: BuildTime}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildTime == "" {
					info.BuildTime = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}
	if len(info.Commit) > 12 {
		info.Commit = info.Commit[:12]
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.BuildTime == "" {
		info.BuildTime = "unknown"
	}
	return info
})

// Get returns the build metadata.
func Get() Info { return resolve() }

// String is the line printed by --version.
func String() string {
	i := Get()
	s := i.Version + " (commit " + i.Commit
	if i.Modified {
		s += "+dirty"
	}
	return s + ", built " + i.BuildTime + ")"
}
