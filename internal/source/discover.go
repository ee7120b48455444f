// Package source reads a directory tree into buffered files.
package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/flarebyte/smelter/internal/logger"
	"github.com/flarebyte/smelter/internal/record"
)

const gitignoreName = ".gitignore"

// Options controls discovery.
type Options struct {
	// NoGitignore disables .gitignore handling.
	NoGitignore bool
}

// Discover walks root and returns every regular file below it as a buffered
// record.File whose Base is root. Files matched by a .gitignore along the
// way are skipped, as are the .gitignore files themselves. The result is
// sorted by relative path.
func Discover(ctx context.Context, root string, opts Options) ([]*record.File, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("discover: %s is not a directory", absRoot)
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = filepath.Dir(absRoot)
	}

	ignores := newIgnoreSet(absRoot)
	var files []*record.File
	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == absRoot {
			return nil
		}
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return err
		}
		isDir := d.IsDir()
		if !opts.NoGitignore && ignores.match(rel, isDir) {
			logger.Debug("discover: ignored %s", filepath.ToSlash(rel))
			if isDir {
				return fs.SkipDir
			}
			return nil
		}
		if isDir || d.Name() == gitignoreName || !d.Type().IsRegular() {
			return nil
		}
		f, err := readFile(cwd, absRoot, p)
		if err != nil {
			return fmt.Errorf("discover: %s: %w", filepath.ToSlash(rel), err)
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Relative() < files[j].Relative() })
	return files, nil
}

func readFile(cwd, base, p string) (*record.File, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	return &record.File{
		Cwd:      cwd,
		Base:     base,
		Path:     p,
		Contents: b,
		Stat: &record.Stat{
			Mode:    info.Mode(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		},
	}, nil
}

// relComponents splits an OS relative path into slash components.
func relComponents(rel string) []string {
	if rel == "." || rel == "" {
		return nil
	}
	return strings.Split(filepath.ToSlash(rel), "/")
}
