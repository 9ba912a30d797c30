// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package snippet extracts numbered context windows from a file around the
// line ranges a patch claims to touch.
package snippet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/petar-djukic/filebind/pkg/types"
)

const (
	// DefaultPadding is the number of lines kept on each side of a range.
	DefaultPadding = 100

	// OmissionMarker separates merged ranges that are not adjacent.
	OmissionMarker = "// ... [Code omitted for brevity] ..."
)

// Builder renders context snippets.
type Builder struct {
	Padding int // Lines of context above/below each range (default 100)
}

// Build renders the lines of fileLines covered by ranges, each expanded by
// the padding. With no ranges the whole file is rendered.
func (b Builder) Build(fileLines []string, ranges []types.EditRange) string {
	n := len(fileLines)
	if n == 0 {
		return ""
	}
	if len(ranges) == 0 {
		return render(fileLines, types.EditRange{Start: 1, End: n})
	}

	merged := MergeRanges(ranges, b.padding(), n)
	if len(merged) == 0 {
		return render(fileLines, types.EditRange{Start: 1, End: n})
	}

	var buf strings.Builder
	for i, r := range merged {
		if i > 0 {
			buf.WriteString(OmissionMarker)
			buf.WriteString("\n")
		}
		buf.WriteString(render(fileLines, r))
	}
	return buf.String()
}

func (b Builder) padding() int {
	if b.Padding > 0 {
		return b.Padding
	}
	return DefaultPadding
}

// MergeRanges expands each range by padding, clamps it to [1, lineCount],
// and merges the results when they overlap or touch. The output is sorted
// by start line. Ranges that fall entirely outside the file are dropped.
func MergeRanges(ranges []types.EditRange, padding, lineCount int) []types.EditRange {
	expanded := make([]types.EditRange, 0, len(ranges))
	for _, r := range ranges {
		start, end := r.Start, r.End
		if end < start {
			start, end = end, start
		}
		start = max(1, start-padding)
		end = min(lineCount, end+padding)
		if start > end {
			continue
		}
		expanded = append(expanded, types.EditRange{Start: start, End: end})
	}
	if len(expanded) == 0 {
		return nil
	}

	sort.Slice(expanded, func(i, j int) bool { return expanded[i].Start < expanded[j].Start })

	merged := []types.EditRange{expanded[0]}
	for _, r := range expanded[1:] {
		cur := &merged[len(merged)-1]
		if r.Start <= cur.End+1 {
			cur.End = max(cur.End, r.End)
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// render writes lines r.Start..r.End with their 1-based numbers.
func render(lines []string, r types.EditRange) string {
	var buf strings.Builder
	for i := r.Start; i <= r.End; i++ {
		buf.WriteString(fmt.Sprintf("%4d │ %s\n", i, lines[i-1]))
	}
	return buf.String()
}
