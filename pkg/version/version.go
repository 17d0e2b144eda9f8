// Package version holds build metadata injected with -ldflags.
package version

import "runtime/debug"

// Build metadata, overridden at link time:
//
//	-X github.com/Sumatoshi-tech/hourglass/pkg/version.Version=v1.0.0
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Init fills metadata left at its defaults from the module build info, so
// that `go install` builds still report something useful.
func Init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == "unknown" {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = setting.Value
			}
		}
	}
}

// String formats the metadata for display.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}
