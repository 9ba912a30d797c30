// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package binding

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petar-djukic/filebind/internal/editformat"
	"github.com/petar-djukic/filebind/internal/editor"
	"github.com/petar-djukic/filebind/pkg/types"
)

// mockCorrector implements CorrectionService for testing.
type mockCorrector struct {
	result    types.CorrectionResult
	callCount int
	lastPatch string
}

func (m *mockCorrector) Correct(ctx context.Context, originalContent, patch string) types.CorrectionResult {
	m.callCount++
	m.lastPatch = patch
	return m.result
}

func TestProcess_ReplaceBlock(t *testing.T) {
	svc := NewService(Config{})

	res, err := svc.Process(context.Background(), "a\nb\nc\nd\ne",
		"// [START-REPLACE:2-3]\nX\nY\n// [END-REPLACE]")
	require.NoError(t, err)
	assert.Equal(t, "a\nX\nY\nd\ne", res.Content)
	assert.Equal(t, StrategyLine, res.Strategy)
	assert.Len(t, res.Operations, 1)
	assert.NotEmpty(t, res.OperationID)
	assert.Contains(t, res.Diff, "Changes: +2 -2 lines")
	assert.Contains(t, res.Diff, "-0002|b")
	assert.Contains(t, res.Diff, "+0002|X")
}

func TestProcess_InsertAtZero(t *testing.T) {
	svc := NewService(Config{})

	res, err := svc.Process(context.Background(), "a\nb", "// [START-INSERT:0]\nZ\n// [END-INSERT]")
	require.NoError(t, err)
	assert.Equal(t, "Z\na\nb", res.Content)
}

func TestProcess_PreservesTrailingNewline(t *testing.T) {
	svc := NewService(Config{})

	res, err := svc.Process(context.Background(), "one\ntwo\n",
		"// [START-INSERT:after_line=2]\nthree\n// [END-INSERT]")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\n", res.Content)
}

func TestProcess_MarkerWithoutValidBlockIsRejected(t *testing.T) {
	svc := NewService(Config{})
	original := "a\nb\nc"

	res, err := svc.Process(context.Background(), original, "// [START-REPLACE:2-x]\nX\n// [END-REPLACE]")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPatchRejected)
	var ne *editformat.NoEditsFoundError
	assert.True(t, errors.As(err, &ne))
	assert.Equal(t, original, res.Content)
	assert.Empty(t, res.Diff)
}

func TestProcess_SkipsMalformedBlocks(t *testing.T) {
	svc := NewService(Config{})

	ai := "// [START-REPLACE:1-1]\nA\n// [END-DELETE]\n" +
		"// [START-REPLACE:3-3]\nC\n// [END-REPLACE]"
	res, err := svc.Process(context.Background(), "a\nb\nc", ai)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nC", res.Content)
	require.Len(t, res.ParseErrors, 1)
	assert.Contains(t, res.ParseErrors[0].Message, "mismatched")
}

func TestProcess_OutOfBoundsReturnsOriginal(t *testing.T) {
	svc := NewService(Config{})
	original := "a\nb\nc"

	ai := "// [START-REPLACE:1-1]\nA\n// [END-REPLACE]\n" +
		"// [START-DELETE:3-9]\n// [END-DELETE]"
	res, err := svc.Process(context.Background(), original, ai)
	require.Error(t, err)
	var be *editor.BoundsError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, original, res.Content)
	assert.Empty(t, res.Diff)
	assert.Equal(t, StrategyLine, res.Strategy)
}

func TestProcess_WholeFileReplacement(t *testing.T) {
	svc := NewService(Config{})

	res, err := svc.Process(context.Background(), "old\n", "brand new\ncontent\n")
	require.NoError(t, err)
	assert.Equal(t, StrategyReplace, res.Strategy)
	assert.Equal(t, "brand new\ncontent\n", res.Content)
	assert.Equal(t, 2, res.Summary.Added)
	assert.Equal(t, 1, res.Summary.Removed)
}

func TestProcess_BlankLinesInBody(t *testing.T) {
	tests := []struct {
		name     string
		original string
		patch    string
		want     string
	}{
		{
			name:     "trailing blank line in replace body",
			original: "a\nb\nc\nd\ne",
			patch:    "// [START-REPLACE:2-3]\nX\n\n// [END-REPLACE]",
			want:     "a\nX\n\nd\ne",
		},
		{
			name:     "replace with a single blank line",
			original: "a\nb\nc",
			patch:    "// [START-REPLACE:2-2]\n\n// [END-REPLACE]",
			want:     "a\n\nc",
		},
		{
			name:     "insert a blank line",
			original: "a\nb",
			patch:    "// [START-INSERT:1]\n\n// [END-INSERT]",
			want:     "a\n\nb",
		},
		{
			name:     "blank line between body lines",
			original: "a\nb\nc",
			patch:    "// [START-REPLACE:2-2]\nX\n\nY\n// [END-REPLACE]",
			want:     "a\nX\n\nY\nc",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewService(Config{}).Process(context.Background(), tt.original, tt.patch)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Content)
		})
	}
}

func TestProcess_CRLFPatch(t *testing.T) {
	svc := NewService(Config{})

	res, err := svc.Process(context.Background(), "a\nb\nc\nd\ne",
		"// [START-REPLACE:2-3]\r\nX\r\nY\r\n// [END-REPLACE]\r\n")
	require.NoError(t, err)
	assert.Equal(t, StrategyLine, res.Strategy)
	assert.Equal(t, "a\nX\nY\nd\ne", res.Content)
}

func TestProcess_BlankOutputRejected(t *testing.T) {
	svc := NewService(Config{})

	for _, ai := range []string{"", "   \n\t\n"} {
		res, err := svc.Process(context.Background(), "keep\nme\n", ai)
		require.ErrorIs(t, err, ErrPatchRejected)
		require.ErrorIs(t, err, ErrEmptyOutput)
		assert.Equal(t, "keep\nme\n", res.Content)
		assert.Empty(t, res.Diff)
	}

	res, err := svc.Process(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "", res.Content)
}

const fuzzyPatch = `[START-REPLACE]
[OLD]
func a() {
    return 1
}
[/OLD]
[NEW]
func a() {
	return 2
}
[/NEW]
[END-REPLACE]`

func TestProcess_FuzzyDisabledRejects(t *testing.T) {
	svc := NewService(Config{})
	original := "func a() {\n\treturn 1\n}\n"

	res, err := svc.Process(context.Background(), original, fuzzyPatch)
	require.ErrorIs(t, err, ErrPatchRejected)
	assert.Equal(t, StrategyFuzzy, res.Strategy)
	assert.Equal(t, original, res.Content)
}

func TestProcess_FuzzyEnabled(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	svc := NewService(Config{Fuzzy: true, Metrics: metrics})

	res, err := svc.Process(context.Background(), "func a() {\n\treturn 1\n}\n", fuzzyPatch)
	require.NoError(t, err)
	assert.Equal(t, "func a() {\n\treturn 2\n}\n", res.Content)
	require.Len(t, res.FuzzyMatches, 1)
	assert.Equal(t, 1, res.FuzzyMatches[0].StartLine)
	assert.Equal(t, 3, res.FuzzyMatches[0].EndLine)
	assert.InDelta(t, 1.0, res.FuzzyMatches[0].Score, 1e-9)

	assert.Equal(t, 1, testutil.CollectAndCount(metrics.fuzzyScores))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.bindings.WithLabelValues("fuzzy", "applied")))
}

func TestProcess_FuzzyWithCommentPrefix(t *testing.T) {
	svc := NewService(Config{Fuzzy: true})

	ai := "// [START-DELETE]\n[OLD]\nremove me\n[/OLD]\n// [END-DELETE]"
	res, err := svc.Process(context.Background(), "keep\nremove me\nkeep too", ai)
	require.NoError(t, err)
	assert.Equal(t, StrategyFuzzy, res.Strategy)
	assert.Equal(t, "keep\nkeep too", res.Content)
}

func TestProcess_FuzzyNoMatch(t *testing.T) {
	svc := NewService(Config{Fuzzy: true})
	original := "alpha\nbeta\ngamma"

	ai := "[START-DELETE]\n[OLD]\nsomething entirely unrelated to this file\n[/OLD]\n[END-DELETE]"
	res, err := svc.Process(context.Background(), original, ai)
	require.Error(t, err)
	var nm *editor.NoMatchError
	assert.True(t, errors.As(err, &nm))
	assert.Equal(t, original, res.Content)
}

func TestProcess_CorrectionSuccess(t *testing.T) {
	mc := &mockCorrector{result: types.CorrectionResult{
		Kind:           types.CorrectionSuccess,
		CorrectedPatch: "// [START-REPLACE:3-3]\nC\n// [END-REPLACE]",
		Applied:        1,
	}}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	svc := NewService(Config{Corrector: mc, Metrics: metrics})

	stale := "// [START-REPLACE:2-2]\nC\n// [END-REPLACE]"
	res, err := svc.Process(context.Background(), "a\nb\nc", stale)
	require.NoError(t, err)
	assert.Equal(t, 1, mc.callCount)
	assert.Equal(t, stale, mc.lastPatch)
	assert.Equal(t, "a\nb\nC", res.Content)
	require.NotNil(t, res.Correction)
	assert.True(t, res.Correction.OK())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.corrections.WithLabelValues("success")))
}

func TestProcess_CorrectionFailures(t *testing.T) {
	tests := []struct {
		name   string
		result types.CorrectionResult
		want   string
	}{
		{"mapping failed", types.CorrectionResult{Kind: types.CorrectionMappingFailed, Detail: "code moved"}, "code moved"},
		{"syntax error", types.CorrectionResult{Kind: types.CorrectionSyntaxError, Detail: "missing END"}, "grammar"},
		{"transport error", types.CorrectionResult{Kind: types.CorrectionError, Detail: "timeout"}, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(Config{Corrector: &mockCorrector{result: tt.result}})
			original := "a\nb\nc"

			res, err := svc.Process(context.Background(), original, "// [START-DELETE:2-2]\n// [END-DELETE]")
			require.ErrorIs(t, err, ErrPatchRejected)

			var ce *CorrectionError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.result.Kind, ce.Kind)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "re-read the file")
			assert.Equal(t, original, res.Content)
		})
	}
}

func TestProcess_CorrectionNotUsedForReplaceTier(t *testing.T) {
	mc := &mockCorrector{}
	svc := NewService(Config{Corrector: mc})

	_, err := svc.Process(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Zero(t, mc.callCount)
}

func TestProcess_CancelledContext(t *testing.T) {
	svc := NewService(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.Process(ctx, "a", "b")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "a", res.Content)
}

func TestProcessPath_SyntaxIssuesAreWarnings(t *testing.T) {
	svc := NewService(Config{SyntaxCheck: true})

	res, err := svc.ProcessPath(context.Background(), "main.go", "package main\n",
		"package main\n\nfunc main( {\n")
	require.NoError(t, err)
	assert.Equal(t, "package main\n\nfunc main( {\n", res.Content)
	assert.NotEmpty(t, res.SyntaxIssues)
}

func TestProcess_ReportsProgress(t *testing.T) {
	var stages []float64
	svc := NewService(Config{Progress: func(p float64, _ string) { stages = append(stages, p) }})

	_, err := svc.Process(context.Background(), "a\nb", "// [START-DELETE:1-1]\n// [END-DELETE]")
	require.NoError(t, err)
	require.NotEmpty(t, stages)
	assert.Equal(t, 1.0, stages[len(stages)-1])
	for i := 1; i < len(stages); i++ {
		assert.GreaterOrEqual(t, stages[i], stages[i-1])
	}
}

func TestMetrics_RecordsRejections(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	svc := NewService(Config{Metrics: metrics})

	_, err := svc.Process(context.Background(), "a", "// [START-DELETE:5-5]\n// [END-DELETE]")
	require.Error(t, err)
	_, err = svc.Process(context.Background(), "a", "b")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.bindings.WithLabelValues("line", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.bindings.WithLabelValues("replace", "applied")))

	count, err := testutil.GatherAndCount(reg, "filebind_bindings_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeBinding(StrategyLine, nil, 0)
		m.observeCorrection(types.CorrectionSuccess)
		m.observeFuzzyScore(0.5)
	})
}
