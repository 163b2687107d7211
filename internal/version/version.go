// Package version exposes build metadata for the mirrorbox binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	// AppName of the application
	AppName = "MirrorBox"

	// Version of the application
	Version = "0.1.0-dev"

	// Revision is the git commit hash the binary was built from
	Revision = "HEAD"
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	// Prefer module version when set by release builds.
	if Version == "0.1.0-dev" || Version == "" {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			Version = strings.TrimPrefix(v, "v")
		}
	}

	// Prefer VCS revision for local/dev builds.
	if Revision == "HEAD" || Revision == "" {
		settings := make(map[string]string, len(info.Settings))
		for _, s := range info.Settings {
			settings[s.Key] = s.Value
		}
		if r := settings["vcs.revision"]; r != "" {
			if settings["vcs.modified"] == "true" {
				r += "-dirty"
			}
			Revision = r
		}
	}
}

func Short() string {
	return fmt.Sprintf("%s v%s", AppName, Version)
}

func Detailed() string {
	rev := Revision
	if len(rev) > 12 {
		rev = rev[:12]
	}
	return fmt.Sprintf("%s (%s; %s/%s; %s)", Version, rev, runtime.GOOS, runtime.GOARCH, runtime.Version())
}
