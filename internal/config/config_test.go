package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/flarebyte/smelter/internal/engine"
	"github.com/flarebyte/smelter/internal/record"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "smelter.cue")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{ configVersion: "1" }`))
	require.NoError(t, err)
	require.Equal(t, DefaultDirectory, cfg.Directory)
	require.Equal(t, DefaultSource, cfg.Source)
	require.Equal(t, "yaml", cfg.Output.Format)
	require.Equal(t, "warn", cfg.Log.Level)
	require.NotNil(t, cfg.Metadata)
	require.Empty(t, cfg.Steps)
}

func TestLoad_FullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
  configVersion: "1"
  directory: "site"
  source: "content"
  metadata: { title: "Demo", year: 2024 }
  discovery: { noGitignore: true }
  steps: [
    { kind: "frontmatter" },
    { kind: "ignore", patterns: ["*.tmp"] },
    { kind: "stream", stages: [
      { kind: "rename", from: ".md", to: ".html" },
      { kind: "lua", inline: "return nil", timeoutMs: 100, workers: 2 },
    ] },
    { kind: "lua", inline: "return nil" },
    { kind: "git", optional: true },
  ]
  output: { format: "JSON" }
  log: { level: "DEBUG" }
}`))
	require.NoError(t, err)
	require.Equal(t, "site", cfg.Directory)
	require.Equal(t, "content", cfg.Source)
	require.Equal(t, "Demo", cfg.Metadata["title"])
	require.Equal(t, int64(2024), cfg.Metadata["year"])
	require.True(t, cfg.Discovery.NoGitignore)
	require.Len(t, cfg.Steps, 5)
	require.True(t, cfg.Steps[4].Optional)
	require.Equal(t, []string{"*.tmp"}, cfg.Steps[1].Patterns)
	require.Equal(t, 100, cfg.Steps[2].Stages[1].TimeoutMs)
	require.Equal(t, 2, cfg.Steps[2].Stages[1].Workers)
	require.Equal(t, "json", cfg.Output.Format)
	require.Equal(t, "debug", cfg.Log.Level)

	built, err := BuildSteps(cfg)
	require.NoError(t, err)
	names := make([]string, 0, len(built))
	for _, s := range built {
		names = append(names, engine.StepName(s))
	}
	require.Equal(t, []string{"frontmatter", "ignore", "pipe(rename,lua-map)", "lua", "git"}, names)
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"missing version", `{ source: "x" }`, "missing required field: configVersion"},
		{"version type", `{ configVersion: 1 }`, "invalid type for field: configVersion (expected string)"},
		{"syntax", `{ configVersion: `, "invalid config:"},
		{"bad step kind", `{ configVersion: "1", steps: [{ kind: "shell" }] }`, "Config.Steps[0].Kind: validation failed on 'oneof' tag"},
		{"lua without code", `{ configVersion: "1", steps: [{ kind: "lua" }] }`, "Config.Steps[0].Inline: validation failed on 'required_if' tag"},
		{"rename without from", `{ configVersion: "1", steps: [{ kind: "stream", stages: [{ kind: "rename" }] }] }`, "Config.Steps[0].Stages[0].From: validation failed on 'required_if' tag"},
		{"empty stream", `{ configVersion: "1", steps: [{ kind: "stream", stages: [] }] }`, "steps[0]: stream needs at least one stage"},
		{"bad format", `{ configVersion: "1", output: { format: "xml" } }`, "Config.Output.Format: validation failed on 'oneof' tag"},
		{"bad level", `{ configVersion: "1", log: { level: "loud" } }`, "Config.Log.Level: validation failed on 'oneof' tag"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_FileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "c.yaml"))
	require.EqualError(t, err, "unsupported config format: expected .cue")

	_, err = Load(filepath.Join(t.TempDir(), "missing.cue"))
	require.ErrorContains(t, err, "failed to read config:")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuildSteps_RunsInEngine(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
  configVersion: "1"
  steps: [
    { kind: "frontmatter" },
    { kind: "stream", stages: [{ kind: "rename", from: ".md", to: ".html" }] },
  ]
}`))
	require.NoError(t, err)
	built, err := BuildSteps(cfg)
	require.NoError(t, err)

	e := engine.New(t.TempDir())
	for _, s := range built {
		e.Use(s)
	}
	out, err := e.Run(context.Background(), record.FileTree{
		"a.md": {Contents: []byte("---\ntitle: A\n---\nbody"), Mode: "0644"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a.html"}, out.Keys())
	require.Equal(t, "body", string(out["a.html"].Contents))
	require.Equal(t, "A", out["a.html"].Meta["title"])
}
