// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package git commits bound files and undoes filebind commits.
package git

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// OperationTrailer marks commits created by filebind. Its value is the
// operation ID of the binding run.
const OperationTrailer = "Filebind-Operation"

// ErrNotFilebindCommit is returned when undo targets a commit filebind did not make.
var ErrNotFilebindCommit = errors.New("not a filebind commit")

// ErrNoGit is returned when the directory is not inside a git repository.
var ErrNoGit = errors.New("not a git repository")

// Config configures git integration.
type Config struct {
	WorkDir     string // Any directory inside the repository
	AuthorName  string // Commit author (default "filebind")
	AuthorEmail string // Commit author email (default "noreply@filebind")
}

// Repo wraps a go-git repository for the operations we need.
type Repo struct {
	repo *gogit.Repository
	root string
	cfg  Config
}

// Open opens the repository containing cfg.WorkDir, searching parent
// directories for .git. Returns ErrNoGit if there is none.
func Open(cfg Config) (*Repo, error) {
	r, err := gogit.PlainOpenWithOptions(cfg.WorkDir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoGit, err)
	}
	wt, err := r.Worktree()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoGit, err)
	}
	if cfg.AuthorName == "" {
		cfg.AuthorName = "filebind"
	}
	if cfg.AuthorEmail == "" {
		cfg.AuthorEmail = "noreply@filebind"
	}
	return &Repo{repo: r, root: canonical(wt.Filesystem.Root()), cfg: cfg}, nil
}

// Root returns the worktree root.
func (r *Repo) Root() string {
	return r.root
}

// IsFilebindCommit reports whether HEAD carries the operation trailer and
// returns the operation ID it names.
func (r *Repo) IsFilebindCommit() (bool, string, error) {
	commit, err := r.headCommit()
	if err != nil {
		return false, "", err
	}
	op, ok := operationID(commit.Message)
	return ok, op, nil
}

// relPath converts path to a slash-separated path relative to the
// worktree root.
func (r *Repo) relPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(r.root, canonical(abs))
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the repository at %s", path, r.root)
	}
	return filepath.ToSlash(rel), nil
}

// canonical resolves symlinks where possible so paths compare reliably.
func canonical(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return filepath.Clean(path)
}

func (r *Repo) headCommit() (*object.Commit, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("getting HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("getting commit: %w", err)
	}
	return commit, nil
}

// lastCommitMessage returns the message of the HEAD commit.
func (r *Repo) lastCommitMessage() (string, error) {
	commit, err := r.headCommit()
	if err != nil {
		return "", err
	}
	return commit.Message, nil
}

// commitCount returns the total number of commits reachable from HEAD.
func (r *Repo) commitCount() (int, error) {
	iter, err := r.repo.Log(&gogit.LogOptions{})
	if err != nil {
		return 0, err
	}
	count := 0
	err = iter.ForEach(func(c *object.Commit) error {
		count++
		return nil
	})
	return count, err
}
