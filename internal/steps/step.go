// Package steps holds the batch steps and streaming stages smelter ships.
package steps

import (
	"context"

	"github.com/flarebyte/smelter/internal/engine"
	"github.com/flarebyte/smelter/internal/record"
)

type namedStep struct {
	name string
	fn   engine.StepFunc
}

func (s namedStep) Name() string { return s.name }

func (s namedStep) Apply(ctx context.Context, files record.FileTree, e *engine.Engine) error {
	return s.fn(ctx, files, e)
}
