// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package editor

import (
	"fmt"
	"sort"

	"github.com/petar-djukic/filebind/pkg/types"
)

// BoundsError reports an operation whose line numbers do not fit the file.
type BoundsError struct {
	Op        types.EditOperation
	LineCount int
}

func (e *BoundsError) Error() string {
	if e.Op.Action == types.ActionInsert {
		return fmt.Sprintf("%s out of bounds: insert position must be between 0 and %d", e.Op, e.LineCount)
	}
	return fmt.Sprintf("%s out of bounds: file has %d lines (need 1 <= start <= end <= %d)",
		e.Op, e.LineCount, e.LineCount)
}

// OverlapError reports two operations that touch the same lines.
type OverlapError struct {
	First  types.EditOperation
	Second types.EditOperation
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("overlapping edits: %s and %s", e.First, e.Second)
}

// ApplyOperations applies ops to lines and returns the new lines. The
// input slice is never modified. Operations run in descending start-line
// order, so every operation addresses positions that no earlier-applied
// operation has shifted. Any invalid operation rejects the whole batch.
func ApplyOperations(lines []string, ops []types.EditOperation) ([]string, error) {
	n := len(lines)
	for _, op := range ops {
		if err := checkBounds(op, n); err != nil {
			return lines, err
		}
	}
	if err := checkOverlap(ops); err != nil {
		return lines, err
	}

	out := make([]string, n)
	copy(out, lines)

	for _, op := range descending(ops) {
		// Re-check against the current length; descending order keeps
		// this a no-op for validated input.
		if err := checkBounds(op, len(out)); err != nil {
			return lines, err
		}
		out = applyOne(out, op)
	}
	return out, nil
}

// checkBounds validates op against a file of n lines.
func checkBounds(op types.EditOperation, n int) error {
	switch op.Action {
	case types.ActionInsert:
		if op.StartLine < 0 || op.StartLine > n {
			return &BoundsError{Op: op, LineCount: n}
		}
	case types.ActionReplace, types.ActionDelete:
		if op.StartLine < 1 || op.StartLine > n || op.EndLine < op.StartLine || op.EndLine > n {
			return &BoundsError{Op: op, LineCount: n}
		}
	default:
		return fmt.Errorf("unknown edit action %q", op.Action)
	}
	return nil
}

// checkOverlap rejects ranged operations sharing a line, and inserts whose
// position falls strictly inside a ranged operation. An insert right after
// a range's last line is allowed.
func checkOverlap(ops []types.EditOperation) error {
	var ranged []types.EditOperation
	var inserts []types.EditOperation
	for _, op := range ops {
		if op.Action == types.ActionInsert {
			inserts = append(inserts, op)
		} else {
			ranged = append(ranged, op)
		}
	}

	sort.SliceStable(ranged, func(i, j int) bool { return ranged[i].StartLine < ranged[j].StartLine })
	for i := 1; i < len(ranged); i++ {
		if ranged[i].StartLine <= ranged[i-1].EndLine {
			return &OverlapError{First: ranged[i-1], Second: ranged[i]}
		}
	}

	for _, ins := range inserts {
		for _, r := range ranged {
			if ins.StartLine >= r.StartLine && ins.StartLine < r.EndLine {
				return &OverlapError{First: r, Second: ins}
			}
		}
	}
	return nil
}

// descending orders operations by start line, highest first. On equal
// start lines inserts go before ranged operations (the insert sits after
// that line, above the range) and inserts at the same position run in
// reverse input order so they end up in input order.
func descending(ops []types.EditOperation) []types.EditOperation {
	type indexed struct {
		op  types.EditOperation
		idx int
	}
	items := make([]indexed, len(ops))
	for i, op := range ops {
		items[i] = indexed{op: op, idx: i}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.op.StartLine != b.op.StartLine {
			return a.op.StartLine > b.op.StartLine
		}
		aIns := a.op.Action == types.ActionInsert
		bIns := b.op.Action == types.ActionInsert
		if aIns != bIns {
			return aIns
		}
		return a.idx > b.idx
	})

	ordered := make([]types.EditOperation, len(items))
	for i, it := range items {
		ordered[i] = it.op
	}
	return ordered
}

// applyOne performs a single validated operation.
func applyOne(lines []string, op types.EditOperation) []string {
	switch op.Action {
	case types.ActionInsert:
		return splice(lines, op.StartLine, op.StartLine, op.Content)
	case types.ActionDelete:
		return splice(lines, op.StartLine-1, op.EndLine, nil)
	default:
		return splice(lines, op.StartLine-1, op.EndLine, op.Content)
	}
}

// splice replaces lines[from:to] with repl, returning a fresh slice.
func splice(lines []string, from, to int, repl []string) []string {
	out := make([]string, 0, len(lines)-(to-from)+len(repl))
	out = append(out, lines[:from]...)
	out = append(out, repl...)
	out = append(out, lines[to:]...)
	return out
}
