package steps

import (
	"context"
	"strings"

	"github.com/flarebyte/smelter/internal/engine"
	"github.com/flarebyte/smelter/internal/record"
	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

const ignoreStep = "ignore"

// Ignore returns a step removing every entry matched by the gitignore
// style patterns. Negated patterns re-include files.
func Ignore(patterns ...string) engine.Step {
	ps := make([]gitignore.Pattern, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(p, nil))
	}
	m := gitignore.NewMatcher(ps)
	return namedStep{name: ignoreStep, fn: func(_ context.Context, files record.FileTree, _ *engine.Engine) error {
		for rel := range files {
			if m.Match(strings.Split(rel, "/"), false) {
				delete(files, rel)
			}
		}
		return nil
	}}
}
