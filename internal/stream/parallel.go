package stream

import (
	"context"
	"runtime"
	"sync"

	"github.com/flarebyte/smelter/internal/record"
)

// MapFunc transforms one file. keep=false drops it.
type MapFunc func(ctx context.Context, f *record.File) (out *record.File, keep bool, err error)

// Workers returns n, or the CPU count when n is not positive.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	if c := runtime.NumCPU(); c > 0 {
		return c
	}
	return 1
}

// ParallelMap returns a stage running fn on up to workers files at once.
// Files leave in the order they arrived. The first error fn returns fails
// the stage and cancels the remaining work.
func ParallelMap(name string, workers int, fn MapFunc) Stage {
	workers = Workers(workers)
	return New(name, func(parent context.Context, in <-chan *record.File, out chan<- *record.File) error {
		ctx, cancel := context.WithCancel(parent)
		defer cancel()

		type job struct {
			idx int
			f   *record.File
		}
		type result struct {
			idx  int
			f    *record.File
			keep bool
		}
		var (
			latch   Latch
			wg      sync.WaitGroup
			jobs    = make(chan job)
			results = make(chan result)
		)
		fail := func(err error) {
			if latch.Fail(err) {
				cancel()
			}
		}

		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range jobs {
					f, keep, err := fn(ctx, j.f)
					if err != nil {
						fail(err)
						continue
					}
					select {
					case results <- result{idx: j.idx, f: f, keep: keep}:
					case <-ctx.Done():
					}
				}
			}()
		}
		go func() {
			defer close(jobs)
			idx := 0
			for f := range in {
				select {
				case jobs <- job{idx: idx, f: f}:
					idx++
				case <-ctx.Done():
					Discard(in)
					return
				}
			}
		}()
		go func() {
			wg.Wait()
			close(results)
		}()

		// Reorder buffer keyed by arrival index.
		pending := map[int]result{}
		next := 0
		for r := range results {
			pending[r.idx] = r
			for {
				p, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				if !p.keep || latch.Failed() {
					continue
				}
				if err := Send(ctx, out, p.f); err != nil {
					fail(err)
				}
			}
		}
		if err := latch.Err(); err != nil {
			return err
		}
		return parent.Err()
	})
}
