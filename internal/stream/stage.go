package stream

import (
	"context"

	"github.com/flarebyte/smelter/internal/record"
)

// Stage is a streaming transform over files.
//
// Run consumes in until it is closed and pushes results to out. It must not
// close out. Returning an error fails the whole run.
type Stage interface {
	Name() string
	Run(ctx context.Context, in <-chan *record.File, out chan<- *record.File) error
}

// RunFunc is the body of a Stage.
type RunFunc func(ctx context.Context, in <-chan *record.File, out chan<- *record.File) error

type funcStage struct {
	name string
	fn   RunFunc
}

func (s funcStage) Name() string { return s.name }

func (s funcStage) Run(ctx context.Context, in <-chan *record.File, out chan<- *record.File) error {
	return s.fn(ctx, in, out)
}

// New wraps fn as a named Stage.
func New(name string, fn RunFunc) Stage {
	return funcStage{name: name, fn: fn}
}

// Map returns a stage applying fn to every file.
func Map(name string, fn func(*record.File) *record.File) Stage {
	return New(name, func(ctx context.Context, in <-chan *record.File, out chan<- *record.File) error {
		for f := range in {
			if err := Send(ctx, out, fn(f)); err != nil {
				return err
			}
		}
		return nil
	})
}

// TryMap returns a stage applying fn to every file. The first error fn
// returns fails the stage.
func TryMap(name string, fn func(*record.File) (*record.File, error)) Stage {
	return New(name, func(ctx context.Context, in <-chan *record.File, out chan<- *record.File) error {
		for f := range in {
			res, err := fn(f)
			if err != nil {
				return err
			}
			if err := Send(ctx, out, res); err != nil {
				return err
			}
		}
		return nil
	})
}

// Filter returns a stage forwarding only the files keep accepts.
func Filter(name string, keep func(*record.File) bool) Stage {
	return New(name, func(ctx context.Context, in <-chan *record.File, out chan<- *record.File) error {
		for f := range in {
			if !keep(f) {
				continue
			}
			if err := Send(ctx, out, f); err != nil {
				return err
			}
		}
		return nil
	})
}

// Send pushes f to out unless ctx is done first.
func Send(ctx context.Context, out chan<- *record.File, f *record.File) error {
	select {
	case out <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Emit pushes every file to out in order. It does not close out.
func Emit(ctx context.Context, files []*record.File, out chan<- *record.File) error {
	for _, f := range files {
		if err := Send(ctx, out, f); err != nil {
			return err
		}
	}
	return nil
}

// Collect reads in until it is closed.
func Collect(in <-chan *record.File) []*record.File {
	var files []*record.File
	for f := range in {
		files = append(files, f)
	}
	return files
}

// Discard empties in so its producer can finish.
func Discard(in <-chan *record.File) {
	for range in {
	}
}
