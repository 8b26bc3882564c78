// Package version reports build metadata injected with -ldflags, falling
// back to what the Go toolchain embedded in the binary.
package version

import "runtime/debug"

// set via -ldflags "-X github.com/heriman22/blog-main/internal/version.Version=..."
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified,omitempty"`
}

func Get() Info {
	return fromBuildInfo(Info{Version: Version, Commit: Commit, BuildDate: BuildDate}, readBuildInfo)
}

var readBuildInfo = debug.ReadBuildInfo

func fromBuildInfo(out Info, read func() (*debug.BuildInfo, bool)) Info {
	bi, ok := read()
	if !ok {
		return out
	}
	out.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if out.Commit == "" {
				out.Commit = s.Value
			}
		case "vcs.time":
			if out.BuildDate == "" {
				out.BuildDate = s.Value
			}
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}
	return out
}
