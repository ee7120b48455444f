package buildinfo

import (
	"runtime/debug"
	"testing"
)

func withBuildInfo(t *testing.T, settings ...debug.BuildSetting) {
	t.Helper()
	oldRead := readBuildInfo
	oldVersion, oldCommit, oldDate := Version, Commit, Date
	t.Cleanup(func() {
		readBuildInfo = oldRead
		Version, Commit, Date = oldVersion, oldCommit, oldDate
	})
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: settings}, true
	}
	Version, Commit, Date = "dev", "", ""
}

func TestSummary(t *testing.T) {
	withBuildInfo(t)
	if got := Summary(); got != "dev" {
		t.Fatalf("unexpected summary: %q", got)
	}

	Version, Commit, Date = "1.0.0", "0123456789abcdef", "2026-01-02"
	if got, want := Summary(), "1.0.0 (commit=0123456, date=2026-01-02)"; got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestSummary_VCSFallback(t *testing.T) {
	withBuildInfo(t,
		debug.BuildSetting{Key: "vcs.revision", Value: "abcdef0123"},
		debug.BuildSetting{Key: "vcs.time", Value: "2026-03-04T05:06:07Z"},
	)
	Version = ""
	if got, want := Summary(), "dev (commit=abcdef0, date=2026-03-04T05:06:07Z)"; got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}
