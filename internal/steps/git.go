package steps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/flarebyte/smelter/internal/engine"
	"github.com/flarebyte/smelter/internal/logger"
	"github.com/flarebyte/smelter/internal/record"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

const (
	gitStep = "git"
	gitKey  = "git"
)

var errGitRepoNotFound = errors.New("git repo not found")

// GitOptions tunes the Git step.
type GitOptions struct {
	// Optional turns a missing repository into a no-op.
	Optional bool
}

// Git returns a step adding the last commit that touched each entry to its
// metadata under "git":
//
//	git:
//	  tracked: true
//	  lastCommit: {hash: ..., author: "Name <email>", time: RFC3339}
//
// Paths are resolved against the engine source directory.
func Git(opts GitOptions) engine.Step {
	return namedStep{name: gitStep, fn: func(ctx context.Context, files record.FileTree, e *engine.Engine) error {
		if e == nil || len(files) == 0 {
			return nil
		}
		g, err := openGit(e.Source())
		if errors.Is(err, errGitRepoNotFound) && opts.Optional {
			logger.Debug("%s: no repository above %s", gitStep, e.Source())
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", gitStep, err)
		}
		for _, rel := range files.Keys() {
			if err := ctx.Err(); err != nil {
				return err
			}
			info, err := g.lastCommit(rel)
			if err != nil {
				return fmt.Errorf("%s: %s: %w", gitStep, rel, err)
			}
			entry := files[rel]
			if entry.Meta == nil {
				entry.Meta = map[string]any{}
			}
			entry.Meta[gitKey] = info
		}
		return nil
	}}
}

type gitRepo struct {
	repo   *git.Repository
	head   plumbing.Hash
	prefix string
}

func openGit(source string) (*gitRepo, error) {
	repo, err := git.PlainOpenWithOptions(source, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, errGitRepoNotFound
	}
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	prefix, err := relUnder(wt.Filesystem.Root(), source)
	if err != nil {
		return nil, err
	}
	g := &gitRepo{repo: repo, prefix: prefix}
	ref, err := repo.Head()
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		// No commits yet.
	case err != nil:
		return nil, err
	default:
		g.head = ref.Hash()
	}
	return g, nil
}

// relUnder returns the slash path of dir relative to root, following
// symlinks on both sides.
func relUnder(root, dir string) (string, error) {
	if r, err := filepath.EvalSymlinks(root); err == nil {
		root = r
	}
	if d, err := filepath.EvalSymlinks(dir); err == nil {
		dir = d
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "", nil
	}
	if strings.HasPrefix(rel, "../") || rel == ".." {
		return "", fmt.Errorf("%s is outside the repository", dir)
	}
	return rel + "/", nil
}

func (g *gitRepo) lastCommit(rel string) (map[string]any, error) {
	if g.head.IsZero() {
		return map[string]any{"tracked": false}, nil
	}
	name := g.prefix + rel
	iter, err := g.repo.Log(&git.LogOptions{From: g.head, FileName: &name})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	c, err := iter.Next()
	if errors.Is(err, io.EOF) {
		return map[string]any{"tracked": false}, nil
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"tracked": true,
		"lastCommit": map[string]any{
			"hash":   c.Hash.String(),
			"author": normalizeAuthor(c.Author.Name, c.Author.Email),
			"time":   c.Author.When.UTC().Truncate(time.Second).Format(time.RFC3339),
		},
	}, nil
}

func normalizeAuthor(name, email string) string {
	n := strings.TrimSpace(name)
	e := strings.TrimSpace(email)
	switch {
	case n == "" && e == "":
		return ""
	case n == "":
		return "<" + e + ">"
	case e == "":
		return n
	}
	return n + " <" + e + ">"
}
