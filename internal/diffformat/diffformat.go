// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package diffformat renders the line-numbered diff shown to users after a
// binding is applied.
package diffformat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/petar-djukic/filebind/internal/editor"
)

const contextLines = 3

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// DeltaType classifies one changed region.
type DeltaType string

const (
	DeltaChange DeltaType = "CHANGE"
	DeltaInsert DeltaType = "INSERT"
	DeltaDelete DeltaType = "DELETE"
)

// Delta is a changed region. Starts are 1-based; a zero-length side
// reports the line it follows.
type Delta struct {
	Type          DeltaType
	OriginalStart int
	OriginalLines int
	RevisedStart  int
	RevisedLines  int
}

// Summary counts the lines a change adds and removes.
type Summary struct {
	Added   int
	Removed int
	Deltas  []Delta
}

// Header renders the "Changes: +N -M lines" summary line.
func (s Summary) Header() string {
	return fmt.Sprintf("Changes: +%d -%d lines", s.Added, s.Removed)
}

// Summarize diffs original against modified line by line. A replaced run of
// lines is one CHANGE delta, not a DELETE plus an INSERT.
func Summarize(original, modified string) Summary {
	a, b := diffLines(original), diffLines(modified)

	var s Summary
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		d := Delta{
			OriginalStart: op.I1 + 1,
			OriginalLines: op.I2 - op.I1,
			RevisedStart:  op.J1 + 1,
			RevisedLines:  op.J2 - op.J1,
		}
		switch op.Tag {
		case 'r':
			d.Type = DeltaChange
		case 'i':
			d.Type = DeltaInsert
			d.OriginalStart = op.I1
		case 'd':
			d.Type = DeltaDelete
			d.RevisedStart = op.J1
		default:
			continue
		}
		s.Added += d.RevisedLines
		s.Removed += d.OriginalLines
		s.Deltas = append(s.Deltas, d)
	}
	return s
}

// Format renders the summary header followed by a unified diff with three
// lines of context, each body line prefixed by its sign and a zero-padded
// line number:
//
//	Changes: +1 -1 lines
//	@@ -1,2 +1,2 @@
//	 0001|a
//	-0002|b
//	+0002|c
//
// Removed lines carry their original line number; added and context lines
// carry their line number in the modified content.
func Format(original, modified string) string {
	header := Summarize(original, modified).Header()

	raw, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:       diffLines(original),
		B:       diffLines(modified),
		Context: contextLines,
	})
	if err != nil || raw == "" {
		return header
	}

	body := numberLines(raw)
	if body == "" {
		return header
	}
	return header + "\n" + body
}

// numberLines rewrites the body of a unified diff with line numbers taken
// from its hunk headers.
func numberLines(raw string) string {
	lines := strings.Split(strings.TrimSuffix(raw, "\n"), "\n")
	out := make([]string, 0, len(lines))

	inHunk := false
	origLine, modLine := 0, 0
	for _, line := range lines {
		if m := hunkHeaderRe.FindStringSubmatch(line); m != nil {
			origLine, _ = strconv.Atoi(m[1])
			modLine, _ = strconv.Atoi(m[3])
			inHunk = true
			out = append(out, line)
			continue
		}
		if !inHunk || line == "" {
			// File headers precede the first hunk.
			continue
		}

		sign, text := line[0], line[1:]
		switch sign {
		case '-':
			out = append(out, fmt.Sprintf("-%04d|%s", origLine, text))
			origLine++
		case '+':
			out = append(out, fmt.Sprintf("+%04d|%s", modLine, text))
			modLine++
		case ' ':
			out = append(out, fmt.Sprintf(" %04d|%s", modLine, text))
			origLine++
			modLine++
		default:
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// diffLines splits content the way the patchers count lines, with each
// line newline-terminated as difflib expects.
func diffLines(content string) []string {
	lines := editor.SplitLines(content).Lines
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l + "\n"
	}
	return out
}
