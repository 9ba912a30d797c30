// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package types defines shared types used across filebind packages.
package types

import "fmt"

// EditAction identifies the kind of line mutation an edit block describes.
type EditAction string

const (
	ActionReplace EditAction = "REPLACE"
	ActionInsert  EditAction = "INSERT"
	ActionDelete  EditAction = "DELETE"
)

// ParseEditAction converts a tag keyword into an EditAction.
func ParseEditAction(s string) (EditAction, bool) {
	switch EditAction(s) {
	case ActionReplace, ActionInsert, ActionDelete:
		return EditAction(s), true
	default:
		return "", false
	}
}

// EditOperation is a single line-addressed mutation parsed from a patch.
// For INSERT, StartLine == EndLine and the content goes after that line
// (0 means before the first line).
type EditOperation struct {
	Action    EditAction
	StartLine int      // 1-based; 0 is only valid for INSERT
	EndLine   int      // 1-based, inclusive
	Content   []string // New lines, one entry per line (nil for DELETE)
	Context   string   // Optional [CONTEXT] description, never applied
}

// Range returns the normalized line span of the operation.
func (o EditOperation) Range() EditRange {
	return EditRange{Start: o.StartLine, End: o.EndLine}
}

func (o EditOperation) String() string {
	if o.Action == ActionInsert {
		return fmt.Sprintf("%s:after_line=%d", o.Action, o.StartLine)
	}
	return fmt.Sprintf("%s:%d-%d", o.Action, o.StartLine, o.EndLine)
}

// EditRange is a 1-based inclusive line span.
type EditRange struct {
	Start int
	End   int
}

// FuzzyBlock is an [OLD]/[NEW] edit with no line numbers. OldContent is
// the text to locate; NewContent holds the replacement lines and is nil for
// DELETE.
type FuzzyBlock struct {
	Action     EditAction
	OldContent string
	NewContent []string
}

// FuzzyMatch records where a FuzzyBlock landed in the file.
type FuzzyMatch struct {
	StartLine int     // 1-based, inclusive
	EndLine   int     // 1-based, inclusive
	Score     float64 // Jaro-Winkler similarity of the chosen window
}
