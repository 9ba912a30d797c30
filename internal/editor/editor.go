// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package editor applies parsed edits to file content: line-addressed
// operations through the line patcher and content-addressed blocks through
// the fuzzy patcher. It also owns the line model and atomic file writes.
package editor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Lines is file content split into lines. TrailingNewline records whether
// the content ended with "\n" so Join reproduces it exactly.
type Lines struct {
	Lines           []string
	TrailingNewline bool
}

// SplitLines splits content into lines without producing a phantom empty
// line for a terminal newline. Empty content has zero lines.
func SplitLines(content string) Lines {
	if content == "" {
		return Lines{}
	}
	trailing := strings.HasSuffix(content, "\n")
	if trailing {
		content = content[:len(content)-1]
	}
	return Lines{Lines: strings.Split(content, "\n"), TrailingNewline: trailing}
}

// Join reassembles the content.
func (l Lines) Join() string {
	s := strings.Join(l.Lines, "\n")
	if l.TrailingNewline && len(l.Lines) > 0 {
		s += "\n"
	}
	return s
}

// WriteFileAtomic writes data to a temp file in the same directory, then
// renames it over path. The original file's permissions are preserved.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	f, err := os.CreateTemp(dir, ".filebind-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
