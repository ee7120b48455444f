// Package engine runs batch steps over a whole file tree.
//
// An Engine owns global metadata and an ordered list of steps. Run hands
// the tree to each step in turn; steps mutate the tree in place.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"github.com/flarebyte/smelter/internal/logger"
	"github.com/flarebyte/smelter/internal/record"
)

// DefaultSource is the source directory used until SetSource is called.
const DefaultSource = "src"

// Step is one unit of batch processing.
type Step interface {
	Apply(ctx context.Context, files record.FileTree, e *Engine) error
}

// StepFunc adapts a function to Step.
type StepFunc func(ctx context.Context, files record.FileTree, e *Engine) error

// Apply implements Step.
func (f StepFunc) Apply(ctx context.Context, files record.FileTree, e *Engine) error {
	return f(ctx, files, e)
}

// Named is implemented by steps that want a readable name in logs.
type Named interface {
	Name() string
}

// Engine holds the batch configuration for one project directory.
type Engine struct {
	mu       sync.RWMutex
	dir      string
	source   string
	metadata map[string]any
	steps    []Step
}

// New creates an engine rooted at dir. An empty dir means the process
// working directory.
func New(dir string) *Engine {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	return &Engine{
		dir:      abs,
		source:   DefaultSource,
		metadata: map[string]any{},
	}
}

// Directory returns the absolute engine root.
func (e *Engine) Directory() string {
	return e.dir
}

// Join resolves parts against the engine root.
func (e *Engine) Join(parts ...string) string {
	return filepath.Join(append([]string{e.dir}, parts...)...)
}

// Source returns the absolute source directory.
func (e *Engine) Source() string {
	e.mu.RLock()
	src := e.source
	e.mu.RUnlock()
	if filepath.IsAbs(src) {
		return filepath.Clean(src)
	}
	return e.Join(src)
}

// SetSource changes the source directory, relative to the engine root
// unless absolute.
func (e *Engine) SetSource(dir string) *Engine {
	e.mu.Lock()
	e.source = dir
	e.mu.Unlock()
	return e
}

// Metadata returns the global metadata map.
func (e *Engine) Metadata() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.metadata
}

// SetMetadata replaces the global metadata.
func (e *Engine) SetMetadata(m map[string]any) *Engine {
	if m == nil {
		m = map[string]any{}
	}
	e.mu.Lock()
	e.metadata = m
	e.mu.Unlock()
	return e
}

// Use appends step to the engine.
func (e *Engine) Use(step Step) *Engine {
	if step == nil {
		panic("engine.Use: nil step")
	}
	e.mu.Lock()
	e.steps = append(e.steps, step)
	e.mu.Unlock()
	return e
}

// Steps returns a copy of the registered steps.
func (e *Engine) Steps() []Step {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.steps)
}

// Run applies every step to files in registration order and returns the
// resulting tree. The first failing step stops the run; its error is
// returned unchanged.
func (e *Engine) Run(ctx context.Context, files record.FileTree) (record.FileTree, error) {
	if files == nil {
		files = record.FileTree{}
	}
	for i, step := range e.Steps() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := StepName(step)
		logger.Debug("engine: step %d/%s on %d files", i+1, name, len(files))
		if err := step.Apply(ctx, files, e); err != nil {
			logger.Debug("engine: step %s failed: %v", name, err)
			return nil, err
		}
	}
	return files, nil
}

// StepName returns a readable name for step.
func StepName(step Step) string {
	if n, ok := step.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", step)
}
