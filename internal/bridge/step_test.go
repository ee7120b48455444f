package bridge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/flarebyte/smelter/internal/engine"
	"github.com/flarebyte/smelter/internal/record"
	"github.com/flarebyte/smelter/internal/stream"
	"github.com/stretchr/testify/require"
)

func runStep(t *testing.T, step engine.Step, files record.FileTree) error {
	t.Helper()
	return step.Apply(context.Background(), files, engine.New(t.TempDir()))
}

func TestPipe_ExtendComposes(t *testing.T) {
	first := Pipe(upperStage())
	both := first.Extend(bangStage())

	tree := record.FileTree{"x.txt": {Contents: []byte("x"), Mode: "0644"}}
	require.NoError(t, runStep(t, both, tree))
	require.Equal(t, "X!", string(tree["x.txt"].Contents))
	require.Equal(t, "0644", tree["x.txt"].Mode)

	tree = record.FileTree{"x.txt": {Contents: []byte("x")}}
	require.NoError(t, runStep(t, first, tree))
	require.Equal(t, "X", string(tree["x.txt"].Contents))
	require.Len(t, first.Stages(), 1)
	require.Len(t, both.Stages(), 2)
	require.Equal(t, "pipe(upper,bang)", both.Name())
}

func TestPipe_ExtendIsAssociative(t *testing.T) {
	a := Pipe(upperStage()).Extend(bangStage()).Extend(bangStage())
	b := Pipe(upperStage()).Extend(bangStage(), bangStage())

	for _, step := range []*StreamStep{a, b} {
		tree := record.FileTree{"f": {Contents: []byte("q")}}
		require.NoError(t, runStep(t, step, tree))
		require.Equal(t, "Q!!", string(tree["f"].Contents))
	}
}

func TestStreamStep_DeletesAndAdds(t *testing.T) {
	dropB := stream.Filter("drop-b", func(f *record.File) bool { return f.Relative() != "b.md" })
	rename := stream.Map("html", func(f *record.File) *record.File {
		f.SetRelative(strings.TrimSuffix(f.Relative(), ".md") + ".html")
		return f
	})
	step := Pipe(dropB, rename)

	tree := record.FileTree{
		"a.md": {Contents: []byte("a"), Meta: map[string]any{"title": "A"}},
		"b.md": {Contents: []byte("b")},
	}
	require.NoError(t, runStep(t, step, tree))
	require.Equal(t, []string{"a.html"}, tree.Keys())
	require.Equal(t, "A", tree["a.html"].Meta["title"])
	require.Equal(t, float64(2), step.Metrics().Counter(StepFilesDeleted).Value())
}

func TestStreamStep_StageErrorLeavesTreeUntouched(t *testing.T) {
	boom := errors.New("boom")
	fail := stream.TryMap("fail", func(f *record.File) (*record.File, error) {
		if f.Relative() == "b" {
			return nil, boom
		}
		return f, nil
	})
	step := Pipe(upperStage(), fail)
	tree := record.FileTree{"a": {Contents: []byte("a")}, "b": {Contents: []byte("b")}}

	err := runStep(t, step, tree)
	require.ErrorIs(t, err, boom)
	require.Equal(t, "a", string(tree["a"].Contents))
	require.Equal(t, []string{"a", "b"}, tree.Keys())
	require.Equal(t, float64(1), step.Metrics().Counter(StepFailuresTotal).Value())
}

func TestStreamStep_InPlaceEditLeavesTreeUntouchedOnError(t *testing.T) {
	boom := errors.New("boom")
	inPlace := stream.Map("in-place", func(f *record.File) *record.File {
		f.Contents[0] = 'Z'
		return f
	})
	fail := stream.TryMap("fail", func(f *record.File) (*record.File, error) {
		if f.Relative() == "b" {
			return nil, boom
		}
		return f, nil
	})
	tree := record.FileTree{"a": {Contents: []byte("a")}, "b": {Contents: []byte("b")}}

	err := runStep(t, Pipe(inPlace, fail), tree)
	require.ErrorIs(t, err, boom)
	require.Equal(t, "a", string(tree["a"].Contents))
	require.Equal(t, "b", string(tree["b"].Contents))
}

func TestStreamStep_NilEntryFails(t *testing.T) {
	tree := record.FileTree{"a": {Contents: []byte("a")}, "new": nil}

	err := runStep(t, Pipe(upperStage()), tree)
	var ce *record.ConversionError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "new", ce.Path)
	require.Equal(t, "a", string(tree["a"].Contents))
}

func TestStreamStep_UnbufferedOutputFails(t *testing.T) {
	lazy := stream.Map("lazy", func(f *record.File) *record.File {
		f.Reader = strings.NewReader(string(f.Contents))
		return f
	})
	tree := record.FileTree{"a": {Contents: []byte("a")}}

	err := runStep(t, Pipe(lazy), tree)
	var ue *record.UnbufferedContentError
	require.ErrorAs(t, err, &ue)
	require.Equal(t, "a", string(tree["a"].Contents))
}

func TestStreamStep_FirstErrorWins(t *testing.T) {
	first := errors.New("first")
	failing := stream.New("fail", func(ctx context.Context, in <-chan *record.File, out chan<- *record.File) error {
		<-in
		return first
	})
	lazy := stream.Map("lazy", func(f *record.File) *record.File {
		f.Reader = strings.NewReader("")
		return f
	})
	tree := record.FileTree{"a": {}, "b": {}, "c": {}}

	err := runStep(t, Pipe(failing, lazy), tree)
	require.Same(t, first, err)
	require.Len(t, tree, 3)
}

func TestStreamStep_BadModeFailsBeforeRunning(t *testing.T) {
	called := false
	spy := stream.Map("spy", func(f *record.File) *record.File {
		called = true
		return f
	})
	tree := record.FileTree{"a": {Mode: "9"}}

	err := runStep(t, Pipe(spy), tree)
	var ce *record.ConversionError
	require.ErrorAs(t, err, &ce)
	require.False(t, called)
}

func TestStreamStep_InsideEngine(t *testing.T) {
	p := New(t.TempDir()).Use(Pipe(upperStage())).Use(deleteStep("skip"))
	defer p.Close()
	base := p.Engine().Source()

	out, err := p.Process(context.Background(), []*record.File{srcFile(base, "keep", "k"), srcFile(base, "skip", "s")})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "K", string(out[0].Contents))
}
