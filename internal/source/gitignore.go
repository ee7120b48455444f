package source

import (
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// ignoreSet caches the .gitignore patterns of each directory seen during a
// walk. Patterns from a directory apply to everything below it.
type ignoreSet struct {
	root  string
	byDir map[string][]gitignore.Pattern
}

func newIgnoreSet(root string) *ignoreSet {
	return &ignoreSet{root: root, byDir: map[string][]gitignore.Pattern{}}
}

// match reports whether rel is ignored by the .gitignore files from the
// root down to rel's parent directory.
func (s *ignoreSet) match(rel string, isDir bool) bool {
	var patterns []gitignore.Pattern
	for _, d := range dirsForRel(rel) {
		patterns = append(patterns, s.patterns(d)...)
	}
	if len(patterns) == 0 {
		return false
	}
	return gitignore.NewMatcher(patterns).Match(relComponents(rel), isDir)
}

func (s *ignoreSet) patterns(dir string) []gitignore.Pattern {
	if ps, ok := s.byDir[dir]; ok {
		return ps
	}
	ps := readPatterns(s.root, dir)
	s.byDir[dir] = ps
	return ps
}

func readPatterns(root, dir string) []gitignore.Pattern {
	b, err := os.ReadFile(filepath.Join(root, dir, gitignoreName))
	if err != nil {
		return nil
	}
	domain := relComponents(dir)
	var ps []gitignore.Pattern
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(line, domain))
	}
	return ps
}

// dirsForRel returns "." followed by every ancestor directory of rel,
// outermost first.
func dirsForRel(rel string) []string {
	dirs := []string{"."}
	parent := filepath.Dir(rel)
	if parent == "." {
		return dirs
	}
	cur := ""
	for _, part := range relComponents(parent) {
		cur = filepath.Join(cur, part)
		dirs = append(dirs, cur)
	}
	return dirs
}
