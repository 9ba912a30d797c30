// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package editformat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/petar-djukic/filebind/pkg/types"
)

var (
	fuzzyStartRe = regexp.MustCompile(`^[ \t]*(?://[ \t]*)?\[START-(REPLACE|DELETE)\][ \t]*$`)
	fuzzyEndRe   = regexp.MustCompile(`^[ \t]*(?://[ \t]*)?\[END-(REPLACE|DELETE)\][ \t]*$`)
)

const (
	markerOldOpen  = "[OLD]"
	markerOldClose = "[/OLD]"
	markerNewOpen  = "[NEW]"
	markerNewClose = "[/NEW]"
)

// HasFuzzyBlocks reports whether text contains a content-addressed block
// opener.
func HasFuzzyBlocks(text string) bool {
	for _, line := range strings.Split(normalizeNewlines(text), "\n") {
		if fuzzyStartRe.MatchString(line) {
			return true
		}
	}
	return false
}

// ParseFuzzy extracts content-addressed blocks:
//
//	[START-REPLACE]
//	[OLD]
//	...text to find...
//	[/OLD]
//	[NEW]
//	...replacement...
//	[/NEW]
//	[END-REPLACE]
//
// DELETE blocks carry only [OLD]. Unlike Parse, a malformed block fails the
// whole parse: content-addressed edits cannot be partially trusted.
func ParseFuzzy(response string) ([]types.FuzzyBlock, error) {
	lines := strings.Split(normalizeNewlines(response), "\n")
	var blocks []types.FuzzyBlock
	i := 0

	for i < len(lines) {
		m := fuzzyStartRe.FindStringSubmatch(lines[i])
		if m == nil {
			i++
			continue
		}

		blockStart := i
		action := types.EditAction(m[1])
		i++

		var body []string
		foundEnd := false
		for i < len(lines) {
			if em := fuzzyEndRe.FindStringSubmatch(lines[i]); em != nil {
				if types.EditAction(em[1]) != action {
					return nil, &ParseError{
						Position: blockStart + 1,
						RawText:  reconstructBlock(lines, blockStart, i+1),
						Message:  fmt.Sprintf("mismatched end tag: START-%s closed by END-%s", action, em[1]),
					}
				}
				foundEnd = true
				i++
				break
			}
			body = append(body, lines[i])
			i++
		}
		if !foundEnd {
			return nil, &ParseError{
				Position: blockStart + 1,
				RawText:  reconstructBlock(lines, blockStart, i),
				Message:  fmt.Sprintf("unclosed block: missing [END-%s]", action),
			}
		}

		old, hasOld := section(body, markerOldOpen, markerOldClose)
		oldText := strings.Join(old, "\n")
		if !hasOld || strings.TrimSpace(oldText) == "" {
			return nil, &ParseError{
				Position: blockStart + 1,
				RawText:  reconstructBlock(lines, blockStart, i),
				Message:  "block has no [OLD] content",
			}
		}

		block := types.FuzzyBlock{Action: action, OldContent: oldText}
		if action == types.ActionReplace {
			nw, hasNew := section(body, markerNewOpen, markerNewClose)
			if !hasNew {
				return nil, &ParseError{
					Position: blockStart + 1,
					RawText:  reconstructBlock(lines, blockStart, i),
					Message:  "REPLACE block has no [NEW] section",
				}
			}
			if len(nw) > 0 {
				block.NewContent = nw
			}
		}
		blocks = append(blocks, block)
	}

	if len(blocks) == 0 {
		return nil, &NoEditsFoundError{}
	}
	return blocks, nil
}

// section returns the lines between an open marker line and its close
// marker line. Blank lines inside the section are kept.
func section(body []string, openMarker, closeMarker string) ([]string, bool) {
	startIdx := -1
	for j, line := range body {
		trimmed := strings.TrimSpace(line)
		if startIdx < 0 {
			if trimmed == openMarker {
				startIdx = j + 1
			}
			continue
		}
		if trimmed == closeMarker {
			return body[startIdx:j], true
		}
	}
	return nil, false
}
