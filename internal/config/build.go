package config

import (
	"fmt"
	"time"

	"github.com/flarebyte/smelter/internal/bridge"
	"github.com/flarebyte/smelter/internal/engine"
	"github.com/flarebyte/smelter/internal/steps"
	"github.com/flarebyte/smelter/internal/stream"
)

// BuildSteps turns the configured step list into engine steps.
func BuildSteps(cfg *Config) ([]engine.Step, error) {
	out := make([]engine.Step, 0, len(cfg.Steps))
	for i, s := range cfg.Steps {
		step, err := buildStep(s)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		out = append(out, step)
	}
	return out, nil
}

func buildStep(s StepConfig) (engine.Step, error) {
	switch s.Kind {
	case "frontmatter":
		return steps.FrontMatter(), nil
	case "lua":
		return steps.Lua(s.Inline, luaOptions(s.TimeoutMs)), nil
	case "ignore":
		return steps.Ignore(s.Patterns...), nil
	case "git":
		return steps.Git(steps.GitOptions{Optional: s.Optional}), nil
	case "stream":
		stages := make([]stream.Stage, 0, len(s.Stages))
		for j, st := range s.Stages {
			stage, err := buildStage(st)
			if err != nil {
				return nil, fmt.Errorf("stages[%d]: %w", j, err)
			}
			stages = append(stages, stage)
		}
		return bridge.Pipe(stages...), nil
	default:
		return nil, fmt.Errorf("unknown step kind %q", s.Kind)
	}
}

func buildStage(s StageConfig) (stream.Stage, error) {
	switch s.Kind {
	case "rename":
		return steps.Rename(s.From, s.To), nil
	case "lua":
		opts := luaOptions(s.TimeoutMs)
		opts.Workers = s.Workers
		return steps.LuaMap(s.Inline, opts), nil
	default:
		return nil, fmt.Errorf("unknown stage kind %q", s.Kind)
	}
}

func luaOptions(ms int) steps.LuaOptions {
	return steps.LuaOptions{Timeout: time.Duration(ms) * time.Millisecond}
}
