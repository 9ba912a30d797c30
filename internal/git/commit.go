// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package git

import (
	"errors"
	"fmt"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNothingToCommit is returned when none of the bound files changed.
var ErrNothingToCommit = errors.New("nothing to commit")

// Commit stages exactly the given files and commits them with a message
// built from changes. Other dirty files in the worktree are left alone.
// Returns the new commit hash.
func (r *Repo) Commit(operationID string, changes []FileChange) (string, error) {
	if len(changes) == 0 {
		return "", ErrNothingToCommit
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}

	staged := make([]FileChange, 0, len(changes))
	for _, c := range changes {
		rel, err := r.relPath(c.Path)
		if err != nil {
			return "", fmt.Errorf("staging %s: %w", c.Path, err)
		}
		if _, err := wt.Add(rel); err != nil {
			return "", fmt.Errorf("staging %s: %w", rel, err)
		}
		c.Path = rel
		staged = append(staged, c)
	}

	msg := GenerateMessage(operationID, staged)
	hash, err := wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  r.cfg.AuthorName,
			Email: r.cfg.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}

	return hash.String(), nil
}

// Undo reverts HEAD if filebind made it, using a soft reset so the bound
// content stays staged. Returns the operation ID that was undone.
func (r *Repo) Undo() (string, error) {
	commit, err := r.headCommit()
	if err != nil {
		return "", err
	}

	op, ok := operationID(commit.Message)
	if !ok {
		return "", ErrNotFilebindCommit
	}
	if commit.NumParents() == 0 {
		return "", fmt.Errorf("cannot undo: HEAD is the initial commit")
	}

	parent, err := commit.Parent(0)
	if err != nil {
		return "", fmt.Errorf("getting parent commit: %w", err)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}

	err = wt.Reset(&gogit.ResetOptions{
		Commit: parent.Hash,
		Mode:   gogit.SoftReset,
	})
	if err != nil {
		return "", fmt.Errorf("resetting to parent: %w", err)
	}

	return op, nil
}
