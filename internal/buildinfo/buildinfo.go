package buildinfo

import (
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X cacheplan/internal/buildinfo.Version=..."
var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

// Info describes the running binary. Commit falls back to the VCS revision
// stamped by the Go toolchain.
func Info() map[string]string {
	commit := Commit
	if commit == "" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" {
					commit = s.Value
				}
			}
		}
	}
	return map[string]string{
		"version":   Version,
		"commit":    commit,
		"builtAt":   BuiltAt,
		"goVersion": runtime.Version(),
	}
}
