package stream

import (
	"context"
	"slices"
	"sync"

	"github.com/flarebyte/smelter/internal/record"
)

// Chain runs stages in order, each one feeding the next.
type Chain struct {
	name   string
	stages []Stage
}

// NewChain creates a chain over a copy of stages.
func NewChain(name string, stages ...Stage) *Chain {
	return &Chain{name: name, stages: slices.Clone(stages)}
}

// Name returns the chain name.
func (c *Chain) Name() string { return c.name }

// Stages returns a copy of the chained stages.
func (c *Chain) Stages() []Stage { return slices.Clone(c.stages) }

// Run implements Stage. Each stage runs in its own goroutine; the first
// error cancels the others and is returned.
func (c *Chain) Run(ctx context.Context, in <-chan *record.File, out chan<- *record.File) error {
	if len(c.stages) == 0 {
		for f := range in {
			if err := Send(ctx, out, f); err != nil {
				Discard(in)
				return err
			}
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		latch Latch
		wg    sync.WaitGroup
	)
	src := in
	for i, st := range c.stages {
		var (
			next chan *record.File
			sink chan<- *record.File = out
		)
		if i < len(c.stages)-1 {
			next = make(chan *record.File)
			sink = next
		}
		wg.Add(1)
		go func(st Stage, src <-chan *record.File, sink chan<- *record.File, next chan *record.File) {
			defer wg.Done()
			if next != nil {
				defer close(next)
			}
			if err := st.Run(ctx, src, sink); err != nil {
				if latch.Fail(err) {
					cancel()
				}
			}
			Discard(src)
		}(st, src, sink, next)
		if next != nil {
			src = next
		}
	}
	wg.Wait()
	return latch.Err()
}

// Drain writes files into st, closes its input and collects everything it
// emits. On failure no files are returned.
func Drain(ctx context.Context, st Stage, files []*record.File) ([]*record.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan *record.File)
	out := make(chan *record.File)
	go func() {
		defer close(in)
		_ = Emit(ctx, files, in)
	}()

	collected := make(chan []*record.File, 1)
	go func() { collected <- Collect(out) }()

	err := st.Run(ctx, in, out)
	if err != nil {
		cancel()
	}
	close(out)
	got := <-collected
	Discard(in)
	if err != nil {
		return nil, err
	}
	return got, nil
}
