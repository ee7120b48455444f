package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/flarebyte/smelter/internal/logger"
	"github.com/flarebyte/smelter/internal/record"
	"github.com/flarebyte/smelter/internal/stream"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for the Adapter.
const (
	// Metrics.
	AdapterRunsTotal     = metricz.Key("adapter.runs.total")
	AdapterFailuresTotal = metricz.Key("adapter.failures.total")
	AdapterFilesIn       = metricz.Key("adapter.files.in")
	AdapterFilesOut      = metricz.Key("adapter.files.out")
	AdapterFilesDeleted  = metricz.Key("adapter.files.deleted")
	AdapterDurationMs    = metricz.Key("adapter.duration.ms")

	// Spans.
	AdapterRunSpan    = tracez.Key("adapter.run")
	AdapterEngineSpan = tracez.Key("adapter.engine")

	// Tags.
	AdapterTagFiles   = tracez.Tag("adapter.files")
	AdapterTagSuccess = tracez.Tag("adapter.success")
	AdapterTagError   = tracez.Tag("adapter.error")

	// Hook event keys.
	AdapterEventFileDeleted = hookz.Key("adapter.file_deleted")
)

// Runner is the batch engine contract the Adapter consumes.
type Runner interface {
	record.Root
	Run(ctx context.Context, files record.FileTree) (record.FileTree, error)
}

// DeleteEvent describes a file the batch run removed from the tree.
type DeleteEvent struct {
	Name      string
	Relative  string
	Timestamp time.Time
}

// Adapter runs a whole stream through one batch engine invocation.
type Adapter struct {
	name    string
	runner  Runner
	clock   clockz.Clock
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[DeleteEvent]
}

// NewAdapter creates an Adapter bound to runner.
func NewAdapter(runner Runner) *Adapter {
	metrics := metricz.New()
	metrics.Counter(AdapterRunsTotal)
	metrics.Counter(AdapterFailuresTotal)
	metrics.Counter(AdapterFilesIn)
	metrics.Counter(AdapterFilesOut)
	metrics.Counter(AdapterFilesDeleted)
	metrics.Gauge(AdapterDurationMs)

	return &Adapter{
		name:    "batch-adapter",
		runner:  runner,
		clock:   clockz.RealClock,
		metrics: metrics,
		tracer:  tracez.New(),
		hooks:   hookz.New[DeleteEvent](),
	}
}

// WithClock sets the clock used for durations and event timestamps.
func (a *Adapter) WithClock(clock clockz.Clock) *Adapter {
	a.clock = clock
	return a
}

// Name implements stream.Stage.
func (a *Adapter) Name() string { return a.name }

// Metrics returns the metrics registry of this adapter.
func (a *Adapter) Metrics() *metricz.Registry { return a.metrics }

// Tracer returns the tracer of this adapter.
func (a *Adapter) Tracer() *tracez.Tracer { return a.tracer }

// OnDelete registers a handler called for every file the batch run
// removed. Handlers may run asynchronously.
func (a *Adapter) OnDelete(handler func(context.Context, DeleteEvent) error) error {
	_, err := a.hooks.Hook(AdapterEventFileDeleted, handler)
	return err
}

// Close shuts down the observability components.
func (a *Adapter) Close() error {
	if a.tracer != nil {
		a.tracer.Close()
	}
	a.hooks.Close()
	return nil
}

// Run implements stream.Stage. The engine runs exactly once, after in is
// closed, and only if every input file converted cleanly.
func (a *Adapter) Run(ctx context.Context, in <-chan *record.File, out chan<- *record.File) (err error) {
	a.metrics.Counter(AdapterRunsTotal).Inc()
	start := a.clock.Now()

	ctx, span := a.tracer.StartSpan(ctx, AdapterRunSpan)
	defer func() {
		a.metrics.Gauge(AdapterDurationMs).Set(float64(a.clock.Now().Sub(start).Milliseconds()))
		if err == nil {
			span.SetTag(AdapterTagSuccess, "true")
		} else {
			span.SetTag(AdapterTagSuccess, "false")
			span.SetTag(AdapterTagError, err.Error())
			a.metrics.Counter(AdapterFailuresTotal).Inc()
		}
		span.Finish()
	}()

	files, err := a.buffer(ctx, in)
	if err != nil {
		stream.Discard(in)
		return err
	}
	span.SetTag(AdapterTagFiles, fmt.Sprintf("%d", len(files)))
	before := files.KeySet()

	engineCtx, engineSpan := a.tracer.StartSpan(ctx, AdapterEngineSpan)
	result, err := a.runner.Run(engineCtx, files)
	engineSpan.Finish()
	if err != nil {
		return err
	}
	if result == nil {
		result = record.FileTree{}
	}

	a.reportDeleted(ctx, before, result)

	for _, rel := range result.Keys() {
		f, err := record.ToStream(rel, result[rel], a.runner)
		if err != nil {
			return err
		}
		if err := stream.Send(ctx, out, f); err != nil {
			return err
		}
		a.metrics.Counter(AdapterFilesOut).Inc()
	}
	return nil
}

// buffer converts every non directory input file into a tree entry.
func (a *Adapter) buffer(ctx context.Context, in <-chan *record.File) (record.FileTree, error) {
	files := record.FileTree{}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case f, ok := <-in:
			if !ok {
				return files, nil
			}
			if f.IsDirectory() {
				continue
			}
			e, err := record.ToBatch(f)
			if err != nil {
				return nil, err
			}
			files[f.Relative()] = e
			a.metrics.Counter(AdapterFilesIn).Inc()
		}
	}
}

func (a *Adapter) reportDeleted(ctx context.Context, before map[string]struct{}, result record.FileTree) {
	for _, rel := range sortedKeys(before) {
		if _, ok := result[rel]; ok {
			continue
		}
		a.metrics.Counter(AdapterFilesDeleted).Inc()
		logger.Debug("adapter: %s removed by batch run", rel)
		if err := a.hooks.Emit(ctx, AdapterEventFileDeleted, DeleteEvent{
			Name:      a.name,
			Relative:  rel,
			Timestamp: a.clock.Now(),
		}); err != nil {
			logger.Debug("adapter: delete hook for %s: %v", rel, err)
		}
	}
}
