// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package editor

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/petar-djukic/filebind/pkg/types"
	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	// DefaultFuzzyThreshold is the score a window must exceed to be used.
	DefaultFuzzyThreshold = 0.9

	// windowSlack bounds how far a window's line count may drift from the
	// target's once the target is longer than windowSlack lines.
	windowSlack = 5
)

// NoMatchError reports a fuzzy block whose best window scored at or below
// the threshold.
type NoMatchError struct {
	Block        int     // Index of the failing block
	Threshold    float64 // Score the window needed to exceed
	Closest      string  // Text of the best window (empty if none)
	Best         types.FuzzyMatch
	EditDistance int // Levenshtein distance between Closest and the block's [OLD]
}

func (e *NoMatchError) Error() string {
	if e.Closest == "" {
		return fmt.Sprintf("block %d: no candidate window found", e.Block+1)
	}
	return fmt.Sprintf("block %d: best match at lines %d-%d scored %.3f (need > %.2f, %d edits away)",
		e.Block+1, e.Best.StartLine, e.Best.EndLine, e.Best.Score, e.Threshold, e.EditDistance)
}

// FuzzyPatcher locates [OLD] content by Jaro-Winkler similarity over
// whitespace-stripped line windows.
//
// The scan visits every (i, j) line window, so a file of n lines costs
// O(n²) windows, each scored in time quadratic in the window length. This
// is acceptable for source files, not for large generated blobs. At the
// default threshold, windows whose stripped length is at least twice (or at
// most half) the target's are pruned: Jaro is then at most 5/6 and the
// prefix bonus cannot lift it above 0.9.
type FuzzyPatcher struct {
	// Threshold is the score a window must exceed. Defaults to
	// DefaultFuzzyThreshold if zero.
	Threshold float64
	Logger    *slog.Logger
}

// Apply applies blocks in order, each located against the content produced
// by the previous block. If any block fails to match, the original content
// is returned with a NoMatchError.
func (p *FuzzyPatcher) Apply(content string, blocks []types.FuzzyBlock) (string, []types.FuzzyMatch, error) {
	threshold := p.threshold()
	current := SplitLines(content)
	matches := make([]types.FuzzyMatch, 0, len(blocks))

	for i, block := range blocks {
		m, ok := bestWindow(current.Lines, block.OldContent, threshold >= DefaultFuzzyThreshold)
		if !ok || m.Score <= threshold {
			return content, nil, p.noMatch(i, threshold, current.Lines, block.OldContent, m, ok)
		}

		p.logger().Debug("fuzzy block matched",
			"block", i+1,
			"action", block.Action,
			"start_line", m.StartLine,
			"end_line", m.EndLine,
			"score", m.Score,
		)

		var repl []string
		if block.Action == types.ActionReplace {
			repl = block.NewContent
		}
		current.Lines = splice(current.Lines, m.StartLine-1, m.EndLine, repl)
		matches = append(matches, m)
	}

	return current.Join(), matches, nil
}

// bestWindow scans all line windows for the one most similar to target.
// On equal scores the window whose line count is closest to the target's
// wins, so surrounding blank lines are not swallowed. prune enables the
// length-ratio cutoff, which is only sound for thresholds of 0.9 and up.
func bestWindow(lines []string, target string, prune bool) (types.FuzzyMatch, bool) {
	normTarget := stripWhitespace(target)
	targetLen := utf8.RuneCountInString(normTarget)
	if targetLen == 0 || len(lines) == 0 {
		return types.FuzzyMatch{}, false
	}
	targetLines := len(strings.Split(strings.TrimSuffix(target, "\n"), "\n"))

	norm := make([]string, len(lines))
	for i, l := range lines {
		norm[i] = stripWhitespace(l)
	}

	var best types.FuzzyMatch
	found := false
	bestDrift := 0

	for i := range lines {
		var window strings.Builder
		windowLen := 0
		for j := i; j < len(lines); j++ {
			window.WriteString(norm[j])
			windowLen += utf8.RuneCountInString(norm[j])
			if prune && windowLen >= 2*targetLen {
				break
			}

			size := j - i + 1
			drift := abs(size - targetLines)
			if targetLines > windowSlack && drift > windowSlack {
				if size > targetLines {
					break
				}
				continue
			}
			if prune && 2*windowLen <= targetLen {
				continue
			}

			score := JaroWinkler(window.String(), normTarget)
			if !found || score > best.Score || (score == best.Score && drift < bestDrift) {
				best = types.FuzzyMatch{StartLine: i + 1, EndLine: j + 1, Score: score}
				bestDrift = drift
				found = true
			}
		}
	}
	return best, found
}

// noMatch builds the diagnostic for a failed block.
func (p *FuzzyPatcher) noMatch(block int, threshold float64, lines []string, target string, best types.FuzzyMatch, found bool) error {
	err := &NoMatchError{Block: block, Threshold: threshold}
	if found {
		err.Best = best
		err.Closest = strings.Join(lines[best.StartLine-1:best.EndLine], "\n")
		err.EditDistance = editDistance(err.Closest, strings.TrimSuffix(target, "\n"))
	}
	p.logger().Warn("fuzzy block below threshold",
		"block", block+1,
		"score", best.Score,
		"threshold", threshold,
	)
	return err
}

// editDistance is the Levenshtein distance between a and b.
func editDistance(a, b string) int {
	dmp := diffmatchpatch.New()
	return dmp.DiffLevenshtein(dmp.DiffMain(a, b, false))
}

// stripWhitespace removes every whitespace rune.
func stripWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (p *FuzzyPatcher) threshold() float64 {
	if p.Threshold > 0 {
		return p.Threshold
	}
	return DefaultFuzzyThreshold
}

func (p *FuzzyPatcher) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
