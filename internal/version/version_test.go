package version

import (
	"runtime/debug"
	"testing"
)

func TestFromBuildInfo_FillsGaps(t *testing.T) {
	read := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			GoVersion: "go1.24.11",
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "abc123"},
				{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
				{Key: "vcs.modified", Value: "true"},
			},
		}, true
	}
	got := fromBuildInfo(Info{Version: "v1.0.0"}, read)
	if got.Commit != "abc123" || got.BuildDate != "2026-01-02T03:04:05Z" || !got.Modified || got.GoVersion != "go1.24.11" {
		t.Fatalf("unexpected info: %+v", got)
	}
}

func TestFromBuildInfo_LdflagsWin(t *testing.T) {
	read := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc123"}}}, true
	}
	got := fromBuildInfo(Info{Version: "v1.0.0", Commit: "release"}, read)
	if got.Commit != "release" {
		t.Fatalf("Commit = %q, want ldflags value", got.Commit)
	}
}

func TestFromBuildInfo_NoBuildInfo(t *testing.T) {
	got := fromBuildInfo(Info{Version: "dev"}, func() (*debug.BuildInfo, bool) { return nil, false })
	if got.Version != "dev" || got.GoVersion != "" {
		t.Fatalf("unexpected info: %+v", got)
	}
}
