// Package version reports the build of the godal binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is set with -ldflags "-X .../version.Version=v1.2.3". Without it
// the module version from the build info is used.
var Version = ""

// Info describes one build.
type Info struct {
	Version   string
	Revision  string
	BuildTime string
	Modified  bool
	GoVersion string
	Platform  string
}

// Get collects the build information of the running binary.
func Get() Info {
	info := Info{
		Version:   Version,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		if info.Version == "" {
			info.Version = "devel"
		}
		return info
	}
	if info.Version == "" {
		info.Version = bi.Main.Version
	}
	if info.Version == "" || info.Version == "(devel)" {
		info.Version = "devel"
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Revision = s.Value
		case "vcs.time":
			info.BuildTime = s.Value
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

func (i Info) String() string {
	return fmt.Sprintf("godal version %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// FullString lists every known field, one per line.
func (i Info) FullString() string {
	s := i.String()
	if i.Revision != "" {
		rev := i.Revision
		if i.Modified {
			rev += " (modified)"
		}
		s += "\nRevision: " + rev
	}
	if i.BuildTime != "" {
		s += "\nBuilt: " + i.BuildTime
	}
	return s
}
