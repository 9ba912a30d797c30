// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package editor

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/petar-djukic/filebind/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lettersN(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line%d", i+1)
	}
	return lines
}

func TestApplyOperations(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		ops   []types.EditOperation
		want  []string
	}{
		{
			name:  "replace middle range",
			lines: []string{"a", "b", "c", "d", "e"},
			ops:   []types.EditOperation{{Action: types.ActionReplace, StartLine: 2, EndLine: 3, Content: []string{"X", "Y"}}},
			want:  []string{"a", "X", "Y", "d", "e"},
		},
		{
			name:  "insert at zero prepends",
			lines: []string{"a", "b"},
			ops:   []types.EditOperation{{Action: types.ActionInsert, StartLine: 0, EndLine: 0, Content: []string{"Z"}}},
			want:  []string{"Z", "a", "b"},
		},
		{
			name:  "insert at line count appends",
			lines: []string{"a", "b"},
			ops:   []types.EditOperation{{Action: types.ActionInsert, StartLine: 2, EndLine: 2, Content: []string{"Z"}}},
			want:  []string{"a", "b", "Z"},
		},
		{
			name:  "delete range",
			lines: []string{"a", "b", "c", "d"},
			ops:   []types.EditOperation{{Action: types.ActionDelete, StartLine: 2, EndLine: 3}},
			want:  []string{"a", "d"},
		},
		{
			name:  "replace with empty body removes lines",
			lines: []string{"a", "b", "c"},
			ops:   []types.EditOperation{{Action: types.ActionReplace, StartLine: 2, EndLine: 2}},
			want:  []string{"a", "c"},
		},
		{
			name:  "replace with a single blank line keeps one line",
			lines: []string{"a", "b", "c"},
			ops:   []types.EditOperation{{Action: types.ActionReplace, StartLine: 2, EndLine: 2, Content: []string{""}}},
			want:  []string{"a", "", "c"},
		},
		{
			name:  "replace body with trailing blank line",
			lines: []string{"a", "b", "c", "d", "e"},
			ops:   []types.EditOperation{{Action: types.ActionReplace, StartLine: 2, EndLine: 3, Content: []string{"X", ""}}},
			want:  []string{"a", "X", "", "d", "e"},
		},
		{
			name:  "insert a blank line",
			lines: []string{"a", "b"},
			ops:   []types.EditOperation{{Action: types.ActionInsert, StartLine: 1, EndLine: 1, Content: []string{""}}},
			want:  []string{"a", "", "b"},
		},
		{
			name:  "multiple operations use original coordinates",
			lines: []string{"a", "b", "c", "d", "e", "f"},
			ops: []types.EditOperation{
				{Action: types.ActionReplace, StartLine: 1, EndLine: 1, Content: []string{"A1", "A2", "A3"}},
				{Action: types.ActionDelete, StartLine: 3, EndLine: 4},
				{Action: types.ActionInsert, StartLine: 6, EndLine: 6, Content: []string{"tail"}},
			},
			want: []string{"A1", "A2", "A3", "b", "e", "f", "tail"},
		},
		{
			name:  "insert after a replaced single line",
			lines: []string{"a", "b", "c"},
			ops: []types.EditOperation{
				{Action: types.ActionReplace, StartLine: 2, EndLine: 2, Content: []string{"B"}},
				{Action: types.ActionInsert, StartLine: 2, EndLine: 2, Content: []string{"after-b"}},
			},
			want: []string{"a", "B", "after-b", "c"},
		},
		{
			name:  "inserts at the same position keep input order",
			lines: []string{"a"},
			ops: []types.EditOperation{
				{Action: types.ActionInsert, StartLine: 1, EndLine: 1, Content: []string{"first"}},
				{Action: types.ActionInsert, StartLine: 1, EndLine: 1, Content: []string{"second"}},
			},
			want: []string{"a", "first", "second"},
		},
		{
			name:  "insert into empty file",
			lines: nil,
			ops:   []types.EditOperation{{Action: types.ActionInsert, StartLine: 0, EndLine: 0, Content: []string{"only"}}},
			want:  []string{"only"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyOperations(tt.lines, tt.ops)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyOperations_BoundsRejectWholeBatch(t *testing.T) {
	tests := []struct {
		name string
		op   types.EditOperation
	}{
		{"replace start zero", types.EditOperation{Action: types.ActionReplace, StartLine: 0, EndLine: 1}},
		{"replace past end", types.EditOperation{Action: types.ActionReplace, StartLine: 3, EndLine: 4}},
		{"replace end before start", types.EditOperation{Action: types.ActionReplace, StartLine: 2, EndLine: 1}},
		{"delete past end", types.EditOperation{Action: types.ActionDelete, StartLine: 4, EndLine: 4}},
		{"insert negative", types.EditOperation{Action: types.ActionInsert, StartLine: -1, EndLine: -1}},
		{"insert past end", types.EditOperation{Action: types.ActionInsert, StartLine: 4, EndLine: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := []string{"a", "b", "c"}
			ops := []types.EditOperation{
				{Action: types.ActionReplace, StartLine: 1, EndLine: 1, Content: []string{"valid"}},
				tt.op,
			}

			got, err := ApplyOperations(lines, ops)
			var be *BoundsError
			require.True(t, errors.As(err, &be), "got %v", err)
			assert.Equal(t, 3, be.LineCount)
			assert.Equal(t, []string{"a", "b", "c"}, got)
			assert.Equal(t, []string{"a", "b", "c"}, lines)
		})
	}
}

func TestApplyOperations_Overlap(t *testing.T) {
	lines := lettersN(10)

	_, err := ApplyOperations(lines, []types.EditOperation{
		{Action: types.ActionReplace, StartLine: 2, EndLine: 5, Content: []string{"x"}},
		{Action: types.ActionDelete, StartLine: 5, EndLine: 6},
	})
	var oe *OverlapError
	require.True(t, errors.As(err, &oe))

	_, err = ApplyOperations(lines, []types.EditOperation{
		{Action: types.ActionReplace, StartLine: 2, EndLine: 5, Content: []string{"x"}},
		{Action: types.ActionInsert, StartLine: 3, EndLine: 3, Content: []string{"y"}},
	})
	require.True(t, errors.As(err, &oe))
	assert.Contains(t, err.Error(), "INSERT:after_line=3")
}

func TestApplyOperations_UnknownAction(t *testing.T) {
	_, err := ApplyOperations([]string{"a"}, []types.EditOperation{{Action: "MOVE", StartLine: 1, EndLine: 1}})
	assert.Error(t, err)
}

func TestApplyOperations_ReplaceLineCount(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(30) + 1
		start := rng.Intn(n) + 1
		end := start + rng.Intn(n-start+1)
		newCount := rng.Intn(6)

		var body []string
		for k := 0; k < newCount; k++ {
			// Every third line is blank; blank lines count like any other.
			if k%3 == 2 {
				body = append(body, "")
				continue
			}
			body = append(body, fmt.Sprintf("new%d", k))
		}

		got, err := ApplyOperations(lettersN(n), []types.EditOperation{
			{Action: types.ActionReplace, StartLine: start, EndLine: end, Content: body},
		})
		require.NoError(t, err)
		assert.Equal(t, n-(end-start+1)+newCount, len(got))
	}
}

// applyAscendingWithOffset is the alternative strategy: ascending order with
// a running line offset. It is the oracle for the descending implementation.
func applyAscendingWithOffset(lines []string, ops []types.EditOperation) []string {
	ordered := make([]types.EditOperation, len(ops))
	copy(ordered, ops)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].StartLine < ordered[j].StartLine })

	out := append([]string(nil), lines...)
	offset := 0
	for _, op := range ordered {
		newLines := op.Content
		switch op.Action {
		case types.ActionInsert:
			out = splice(out, op.StartLine+offset, op.StartLine+offset, newLines)
			offset += len(newLines)
		case types.ActionDelete:
			out = splice(out, op.StartLine-1+offset, op.EndLine+offset, nil)
			offset -= op.EndLine - op.StartLine + 1
		default:
			out = splice(out, op.StartLine-1+offset, op.EndLine+offset, newLines)
			offset += len(newLines) - (op.EndLine - op.StartLine + 1)
		}
	}
	return out
}

// randomDisjointOps builds non-overlapping operations with distinct start
// lines over a file of n lines.
func randomDisjointOps(rng *rand.Rand, n int) []types.EditOperation {
	var ops []types.EditOperation
	line := 1
	for line <= n {
		gap := rng.Intn(3)
		line += gap
		if line > n {
			break
		}
		switch rng.Intn(3) {
		case 0:
			ops = append(ops, types.EditOperation{Action: types.ActionInsert, StartLine: line, EndLine: line,
				Content: []string{fmt.Sprintf("ins@%d", line)}})
			line++
		case 1:
			end := min(n, line+rng.Intn(3))
			ops = append(ops, types.EditOperation{Action: types.ActionDelete, StartLine: line, EndLine: end})
			line = end + 2
		default:
			end := min(n, line+rng.Intn(3))
			ops = append(ops, types.EditOperation{Action: types.ActionReplace, StartLine: line, EndLine: end,
				Content: []string{fmt.Sprintf("rep@%d", line), ""}})
			line = end + 2
		}
	}
	rng.Shuffle(len(ops), func(i, j int) { ops[i], ops[j] = ops[j], ops[i] })
	return ops
}

func TestApplyOperations_MatchesAscendingWithOffset(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 300; iter++ {
		n := rng.Intn(25) + 1
		lines := lettersN(n)
		ops := randomDisjointOps(rng, n)

		got, err := ApplyOperations(lines, ops)
		require.NoError(t, err, "ops: %v", ops)
		assert.Equal(t, applyAscendingWithOffset(lines, ops), got, "ops: %v", ops)
	}
}
