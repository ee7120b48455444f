package bridge

import (
	"context"

	"github.com/flarebyte/smelter/internal/engine"
	"github.com/flarebyte/smelter/internal/record"
	"github.com/flarebyte/smelter/internal/stream"
)

// Pipeline is a stream.Stage backed by its own batch engine.
//
//	p := bridge.New(".").Src("content").Use(steps.FrontMatter())
//	out, err := p.Process(ctx, files)
type Pipeline struct {
	engine  *engine.Engine
	adapter *Adapter
}

// New creates a Pipeline with a fresh engine rooted at dir. An empty dir
// means the process working directory.
func New(dir string) *Pipeline {
	e := engine.New(dir)
	return &Pipeline{engine: e, adapter: NewAdapter(e)}
}

// Src sets the engine source directory.
func (p *Pipeline) Src(dir string) *Pipeline {
	p.engine.SetSource(dir)
	return p
}

// Use registers a batch step on the engine.
func (p *Pipeline) Use(step engine.Step) *Pipeline {
	p.engine.Use(step)
	return p
}

// Metadata returns the engine global metadata.
func (p *Pipeline) Metadata() map[string]any {
	return p.engine.Metadata()
}

// SetMetadata replaces the engine global metadata.
func (p *Pipeline) SetMetadata(m map[string]any) *Pipeline {
	p.engine.SetMetadata(m)
	return p
}

// Engine returns the engine behind the pipeline.
func (p *Pipeline) Engine() *engine.Engine { return p.engine }

// Adapter returns the adapter behind the pipeline.
func (p *Pipeline) Adapter() *Adapter { return p.adapter }

// Name implements stream.Stage.
func (p *Pipeline) Name() string { return p.adapter.Name() }

// Run implements stream.Stage.
func (p *Pipeline) Run(ctx context.Context, in <-chan *record.File, out chan<- *record.File) error {
	return p.adapter.Run(ctx, in, out)
}

// Process pushes files through the pipeline and collects the output.
func (p *Pipeline) Process(ctx context.Context, files []*record.File) ([]*record.File, error) {
	return stream.Drain(ctx, p, files)
}

// Close releases the adapter resources.
func (p *Pipeline) Close() error {
	return p.adapter.Close()
}
