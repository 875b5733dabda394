package version

import (
	"runtime/debug"
)

// Version is set at link time with -ldflags "-X .../version.Version=v1.2.3",
// otherwise it is read from the build information
var Version = ""

func init() {
	if Version != "" {
		return
	}
	Version = "unable to get version"
	inf, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if inf.Main.Version != "" && inf.Main.Version != "(devel)" {
		Version = inf.Main.Version
		return
	}
	var rev, modified string
	for _, s := range inf.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			if s.Value == "true" {
				modified = "-dirty"
			}
		}
	}
	if rev != "" {
		Version = "devel-" + rev + modified
	}
}
