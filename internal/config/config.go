// Package config loads smelter run configuration from CUE files.
package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
)

// CurrentConfigVersion is the configVersion new files should declare.
const CurrentConfigVersion = "1"

// SupportedConfigVersions lists every configVersion Load accepts.
var SupportedConfigVersions = []string{CurrentConfigVersion}

const (
	DefaultDirectory = "."
	DefaultSource    = "src"
	DefaultFormat    = "yaml"
	DefaultLogLevel  = "warn"
)

// Config is a decoded run configuration.
type Config struct {
	ConfigVersion string         `json:"configVersion" validate:"required"`
	Directory     string         `json:"directory"`
	Source        string         `json:"source"`
	Metadata      map[string]any `json:"metadata"`
	Discovery     Discovery      `json:"discovery"`
	Steps         []StepConfig   `json:"steps" validate:"dive"`
	Output        Output         `json:"output"`
	Log           Log            `json:"log"`
}

type Discovery struct {
	NoGitignore bool `json:"noGitignore"`
}

// StepConfig describes one batch step.
type StepConfig struct {
	Kind      string        `json:"kind" validate:"required,oneof=frontmatter lua ignore stream git"`
	Inline    string        `json:"inline,omitempty" validate:"required_if=Kind lua"`
	TimeoutMs int           `json:"timeoutMs,omitempty" validate:"gte=0"`
	Patterns  []string      `json:"patterns,omitempty" validate:"required_if=Kind ignore"`
	Stages    []StageConfig `json:"stages,omitempty" validate:"required_if=Kind stream,dive"`
	Optional  bool          `json:"optional,omitempty"`
}

// StageConfig describes one streaming stage inside a stream step.
type StageConfig struct {
	Kind      string `json:"kind" validate:"required,oneof=rename lua"`
	From      string `json:"from,omitempty" validate:"required_if=Kind rename"`
	To        string `json:"to,omitempty"`
	Inline    string `json:"inline,omitempty" validate:"required_if=Kind lua"`
	TimeoutMs int    `json:"timeoutMs,omitempty" validate:"gte=0"`
	Workers   int    `json:"workers,omitempty" validate:"gte=0"`
}

type Output struct {
	Format string `json:"format" validate:"oneof=yaml json"`
}

type Log struct {
	Level string `json:"level" validate:"oneof=debug info warn error"`
}

// Load reads, decodes, defaults and validates the CUE config at path.
func Load(path string) (*Config, error) {
	v, err := compileCUE(path)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// Decode turns a compiled CUE value into a validated Config.
func Decode(v cue.Value) (*Config, error) {
	if err := requireStringField(v, "configVersion"); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %v", err)
	}
	if err := checkVersion(cfg.ConfigVersion); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsSupportedConfigVersion reports whether v is a known configVersion.
func IsSupportedConfigVersion(v string) bool {
	return slices.Contains(SupportedConfigVersions, v)
}

func checkVersion(v string) error {
	if IsSupportedConfigVersion(v) {
		return nil
	}
	return fmt.Errorf("unsupported configVersion: %s (supported: %s)",
		strconv.Quote(v), strings.Join(SupportedConfigVersions, ", "))
}

// ApplyDefaults fills unset fields and normalizes case.
func ApplyDefaults(cfg *Config) {
	if cfg.Directory == "" {
		cfg.Directory = DefaultDirectory
	}
	if cfg.Source == "" {
		cfg.Source = DefaultSource
	}
	if cfg.Metadata == nil {
		cfg.Metadata = map[string]any{}
	}
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
	if cfg.Output.Format == "" {
		cfg.Output.Format = DefaultFormat
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}
