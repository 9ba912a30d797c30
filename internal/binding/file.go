// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package binding

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/petar-djukic/filebind/internal/editor"
	"github.com/petar-djukic/filebind/internal/lock"
)

// FileResult is the outcome of binding a patch onto a file on disk.
type FileResult struct {
	Path    string
	Result  *Result
	Written bool // False on rejection, dry run, or when content is unchanged
}

// FileBinder binds patches onto files under an exclusive per-file lock.
type FileBinder struct {
	Service *Service
	Locks   *lock.Manager
	DryRun  bool
}

// NewFileBinder creates a FileBinder. A nil locks uses lock defaults.
func NewFileBinder(svc *Service, locks *lock.Manager, dryRun bool) *FileBinder {
	if locks == nil {
		locks = &lock.Manager{}
	}
	return &FileBinder{Service: svc, Locks: locks, DryRun: dryRun}
}

// BindFile reads path, binds patch onto it and atomically writes the result.
// A missing file binds against empty content and is created on success.
// The file is left untouched when the binding is rejected.
func (b *FileBinder) BindFile(ctx context.Context, path, patch string) (*FileResult, error) {
	fl, err := b.Locks.Acquire(ctx, path)
	if err != nil {
		return nil, err
	}
	defer fl.Release()

	var original string
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		original = string(data)
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	res, err := b.Service.ProcessPath(ctx, path, original, patch)
	fr := &FileResult{Path: path, Result: res}
	if err != nil {
		return fr, err
	}
	if b.DryRun || res.Content == original {
		return fr, nil
	}

	if err := editor.WriteFileAtomic(path, []byte(res.Content)); err != nil {
		return fr, err
	}
	fr.Written = true
	return fr, nil
}
