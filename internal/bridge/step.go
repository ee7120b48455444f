package bridge

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/flarebyte/smelter/internal/engine"
	"github.com/flarebyte/smelter/internal/record"
	"github.com/flarebyte/smelter/internal/stream"
	"github.com/zoobzio/metricz"
)

// Metrics for StreamStep.
const (
	StepRunsTotal     = metricz.Key("step.runs.total")
	StepFailuresTotal = metricz.Key("step.failures.total")
	StepFilesDeleted  = metricz.Key("step.files.deleted")
)

// StreamStep runs an ordered list of streaming stages as one batch step.
// It is immutable; Extend returns a new step.
type StreamStep struct {
	stages  []stream.Stage
	metrics *metricz.Registry
}

// Pipe returns a StreamStep over stages.
func Pipe(stages ...stream.Stage) *StreamStep {
	metrics := metricz.New()
	metrics.Counter(StepRunsTotal)
	metrics.Counter(StepFailuresTotal)
	metrics.Counter(StepFilesDeleted)
	return &StreamStep{stages: slices.Clone(stages), metrics: metrics}
}

// Extend returns a new StreamStep running s's stages followed by more.
// s is left unchanged.
func (s *StreamStep) Extend(more ...stream.Stage) *StreamStep {
	return Pipe(append(slices.Clone(s.stages), more...)...)
}

// Stages returns a copy of the stage list.
func (s *StreamStep) Stages() []stream.Stage { return slices.Clone(s.stages) }

// Metrics returns the metrics registry of this step.
func (s *StreamStep) Metrics() *metricz.Registry { return s.metrics }

// Name implements engine.Named.
func (s *StreamStep) Name() string {
	names := make([]string, 0, len(s.stages))
	for _, st := range s.stages {
		names = append(names, st.Name())
	}
	return "pipe(" + strings.Join(names, ",") + ")"
}

// Apply implements engine.Step. Every tree entry is pushed through the
// stages; the output replaces the tree. On failure the tree is untouched.
func (s *StreamStep) Apply(ctx context.Context, files record.FileTree, e *engine.Engine) error {
	s.metrics.Counter(StepRunsTotal).Inc()
	outTree, err := s.run(ctx, files, e)
	if err != nil {
		s.metrics.Counter(StepFailuresTotal).Inc()
		return err
	}
	for rel := range files {
		if _, ok := outTree[rel]; !ok {
			delete(files, rel)
			s.metrics.Counter(StepFilesDeleted).Inc()
		}
	}
	for rel, entry := range outTree {
		files[rel] = entry
	}
	return nil
}

func (s *StreamStep) run(ctx context.Context, files record.FileTree, e *engine.Engine) (record.FileTree, error) {
	var root record.Root
	if e != nil {
		root = e
	}
	in := make([]*record.File, 0, len(files))
	for _, rel := range files.Keys() {
		f, err := record.ToStream(rel, files[rel], root)
		if err != nil {
			return nil, err
		}
		in = append(in, f)
	}

	// The collector runs inside the chain so its conversion errors share
	// the chain's first-error latch.
	outTree := record.FileTree{}
	collect := stream.New("to-batch", func(_ context.Context, src <-chan *record.File, _ chan<- *record.File) error {
		for f := range src {
			entry, err := record.ToBatch(f)
			if err != nil {
				return err
			}
			outTree[f.Relative()] = entry
		}
		return nil
	})
	chain := stream.NewChain(s.Name(), append(slices.Clone(s.stages), collect)...)
	if _, err := stream.Drain(ctx, chain, in); err != nil {
		return nil, err
	}
	return outTree, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
