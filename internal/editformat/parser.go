// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package editformat parses model output into line-addressed edit
// operations and content-addressed fuzzy blocks.
package editformat

import (
	"fmt"
	"strings"

	"github.com/petar-djukic/filebind/pkg/types"
)

const (
	markerContextOpen  = "[CONTEXT]"
	markerContextClose = "[/CONTEXT]"
)

// ParseError describes a malformed edit block in the model output.
type ParseError struct {
	Position int    // Line number where the block starts (1-based)
	RawText  string // The raw text of the malformed block
	Message  string // What went wrong
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s", e.Position, e.Message)
}

// NoEditsFoundError is returned when the output yields no usable edit
// block. ParseErrors lists the blocks that were found but rejected.
type NoEditsFoundError struct {
	ParseErrors []*ParseError
}

func (e *NoEditsFoundError) Error() string {
	if len(e.ParseErrors) == 0 {
		return "no edit blocks found in response"
	}
	return fmt.Sprintf("no valid edit blocks found in response (%d malformed, first: %s)",
		len(e.ParseErrors), e.ParseErrors[0].Message)
}

// ParseResult holds the outcome of parsing a structured patch.
type ParseResult struct {
	Operations   []types.EditOperation // Successfully parsed operations, in input order
	ParseErrors  []*ParseError         // Blocks that were skipped
	BlocksFound  int                   // Total blocks attempted
	BlocksParsed int                   // Blocks that produced valid operations
}

// Parse extracts line-numbered edit blocks:
//
//	// [START-REPLACE:12-14]
//	// [START-INSERT:after_line=3]
//	// [START-DELETE:7-7]
//	...body...
//	// [END-REPLACE]
//
// A malformed block is skipped and recorded in ParseErrors. When no block
// parses at all, Parse returns a NoEditsFoundError.
func Parse(response string) (*ParseResult, error) {
	result := &ParseResult{}
	lines := strings.Split(normalizeNewlines(response), "\n")
	i := 0

	for i < len(lines) {
		m := startTagRe.FindStringSubmatch(lines[i])
		if m == nil {
			i++
			continue
		}

		blockStart := i
		result.BlocksFound++
		action := types.EditAction(m[1])
		i++

		// Collect the body until the next END tag.
		var body []string
		foundEnd := false
		endAction := types.EditAction("")
		for i < len(lines) {
			if em := endTagRe.FindStringSubmatch(lines[i]); em != nil {
				foundEnd = true
				endAction = types.EditAction(em[1])
				i++
				break
			}
			if startTagRe.MatchString(lines[i]) {
				// A new block opens before this one closed.
				break
			}
			body = append(body, lines[i])
			i++
		}

		if !foundEnd {
			result.ParseErrors = append(result.ParseErrors, &ParseError{
				Position: blockStart + 1,
				RawText:  reconstructBlock(lines, blockStart, i),
				Message:  fmt.Sprintf("unclosed block: missing // [END-%s]", action),
			})
			continue
		}
		if endAction != action {
			result.ParseErrors = append(result.ParseErrors, &ParseError{
				Position: blockStart + 1,
				RawText:  reconstructBlock(lines, blockStart, i),
				Message:  fmt.Sprintf("mismatched end tag: START-%s closed by END-%s", action, endAction),
			})
			continue
		}

		start, end, err := parseRange(action, m[2])
		if err != nil {
			result.ParseErrors = append(result.ParseErrors, &ParseError{
				Position: blockStart + 1,
				RawText:  reconstructBlock(lines, blockStart, i),
				Message:  err.Error(),
			})
			continue
		}

		ctxText, content := splitContext(body)
		op := types.EditOperation{
			Action:    action,
			StartLine: start,
			EndLine:   end,
			Context:   ctxText,
		}
		if action != types.ActionDelete && len(content) > 0 {
			op.Content = content
		}

		result.Operations = append(result.Operations, op)
		result.BlocksParsed++
	}

	if result.BlocksParsed == 0 {
		return nil, &NoEditsFoundError{ParseErrors: result.ParseErrors}
	}
	return result, nil
}

// splitContext separates a leading [CONTEXT]...[/CONTEXT] section from the
// block body. Blank lines before the section are ignored.
func splitContext(body []string) (string, []string) {
	first := 0
	for first < len(body) && strings.TrimSpace(body[first]) == "" {
		first++
	}
	if first == len(body) || !strings.HasPrefix(strings.TrimSpace(body[first]), markerContextOpen) {
		return "", body
	}

	var ctx []string
	for j := first; j < len(body); j++ {
		line := strings.TrimSpace(body[j])
		if j == first {
			line = strings.TrimPrefix(line, markerContextOpen)
		}
		if before, _, ok := strings.Cut(line, markerContextClose); ok {
			if s := strings.TrimSpace(before); s != "" {
				ctx = append(ctx, s)
			}
			return strings.Join(ctx, "\n"), body[j+1:]
		}
		if line != "" {
			ctx = append(ctx, line)
		}
	}

	// Unterminated CONTEXT: treat the whole body as content.
	return "", body
}

// reconstructBlock joins lines from start to end for error reporting.
func reconstructBlock(lines []string, start, end int) string {
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}
