// Package buildinfo exposes version metadata for the CLI. Values can be set
// at build time with -ldflags "-X github.com/flarebyte/smelter/internal/buildinfo.Version=1.2.3".
package buildinfo

import (
	"runtime/debug"
	"strings"
)

var (
	// Version is the semantic version or custom string.
	Version = "dev"
	// Commit is the VCS commit hash. Falls back to the embedded vcs.revision.
	Commit = ""
	// Date is the build time. Falls back to the embedded vcs.time.
	Date = ""
	// BuiltBy is an optional builder identifier.
	BuiltBy = ""
)

var readBuildInfo = debug.ReadBuildInfo

// Summary returns a concise single-line version string.
func Summary() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	commit, date := Commit, Date
	if commit == "" || date == "" {
		c, d := vcsSettings()
		if commit == "" {
			commit = c
		}
		if date == "" {
			date = d
		}
	}

	parts := make([]string, 0, 2)
	if commit != "" {
		if len(commit) > 7 {
			commit = commit[:7]
		}
		parts = append(parts, "commit="+commit)
	}
	if date != "" {
		parts = append(parts, "date="+date)
	}
	if len(parts) > 0 {
		v += " (" + strings.Join(parts, ", ") + ")"
	}
	return v
}

func vcsSettings() (revision, at string) {
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return "", ""
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.time":
			at = s.Value
		}
	}
	return revision, at
}
