package bridge

import (
	"bytes"
	"context"
	"path/filepath"
	"sort"

	"github.com/flarebyte/smelter/internal/engine"
	"github.com/flarebyte/smelter/internal/record"
	"github.com/flarebyte/smelter/internal/stream"
)

func srcFile(base, rel, content string) *record.File {
	return &record.File{
		Cwd:      filepath.Dir(base),
		Base:     base,
		Path:     filepath.Join(base, filepath.FromSlash(rel)),
		Contents: []byte(content),
		Stat:     &record.Stat{Mode: 0o644},
	}
}

func relatives(files []*record.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Relative())
	}
	sort.Strings(out)
	return out
}

func upperStage() stream.Stage {
	return stream.Map("upper", func(f *record.File) *record.File {
		f.Contents = bytes.ToUpper(f.Contents)
		return f
	})
}

func bangStage() stream.Stage {
	return stream.Map("bang", func(f *record.File) *record.File {
		f.Contents = append(append([]byte(nil), f.Contents...), '!')
		return f
	})
}

func deleteStep(keys ...string) engine.Step {
	return engine.StepFunc(func(_ context.Context, files record.FileTree, _ *engine.Engine) error {
		for _, k := range keys {
			delete(files, k)
		}
		return nil
	})
}
