// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package editformat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/petar-djukic/filebind/pkg/types"
)

// StructuredMarker is the lexical prefix that identifies a line-numbered
// edit block in model output.
const StructuredMarker = "// [START-"

var (
	startTagRe = regexp.MustCompile(`^[ \t]*//[ \t]*\[START-(REPLACE|INSERT|DELETE):([^\]]*)\][ \t]*$`)
	endTagRe   = regexp.MustCompile(`^[ \t]*//[ \t]*\[END-(REPLACE|INSERT|DELETE)\][ \t]*$`)

	// startTagScanRe finds start tags anywhere in a multi-line string,
	// keeping byte offsets for in-place rewriting.
	startTagScanRe = regexp.MustCompile(`(?m)^[ \t]*//[ \t]*\[START-(REPLACE|INSERT|DELETE):([^\]\n]*)\]`)

	lineTagRe = regexp.MustCompile(`(?m)^[ \t]*//[ \t]*\[START-(REPLACE|INSERT|DELETE):`)
)

// StartTag is a start tag located in a patch.
type StartTag struct {
	Action types.EditAction
	Start  int
	End    int
	Offset int // Byte offset of the tag text in the patch
	Length int // Byte length of the tag text
}

// normalizeNewlines folds CRLF line endings to LF so the anchored tag
// patterns match model output produced on Windows-style transports.
func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// HasStructuredMarker reports whether text contains at least one
// line-numbered edit block marker.
func HasStructuredMarker(text string) bool {
	return strings.Contains(text, StructuredMarker)
}

// HasLineTags reports whether text contains a start tag carrying a line
// spec. Fuzzy blocks written with a leading "//" match StructuredMarker but
// not this.
func HasLineTags(text string) bool {
	return lineTagRe.MatchString(text)
}

// FormatStartTag renders the canonical start tag for an action and range.
func FormatStartTag(action types.EditAction, start, end int) string {
	return "// [START-" + FormatSpec(action, start, end) + "]"
}

// FormatSpec renders "ACTION:range" in canonical form.
func FormatSpec(action types.EditAction, start, end int) string {
	if action == types.ActionInsert {
		return fmt.Sprintf("%s:after_line=%d", action, start)
	}
	return fmt.Sprintf("%s:%d-%d", action, start, end)
}

// ParseSpec parses "ACTION:range" as used by start tags and correction
// mappings, e.g. "REPLACE:12-14" or "INSERT:after_line=3".
func ParseSpec(s string) (types.EditAction, int, int, error) {
	head, rng, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return "", 0, 0, fmt.Errorf("missing ':' in %q", s)
	}
	action, ok := types.ParseEditAction(strings.ToUpper(strings.TrimSpace(head)))
	if !ok {
		return "", 0, 0, fmt.Errorf("unknown action %q", head)
	}
	start, end, err := parseRange(action, rng)
	if err != nil {
		return "", 0, 0, err
	}
	return action, start, end, nil
}

// parseRange converts the range part of a start tag. REPLACE and DELETE take
// "N-M"; INSERT takes "N" or "after_line=N".
func parseRange(action types.EditAction, rng string) (int, int, error) {
	rng = strings.TrimSpace(rng)
	if action == types.ActionInsert {
		rng = strings.TrimSpace(strings.TrimPrefix(rng, "after_line="))
		n, err := strconv.Atoi(rng)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid insert position %q", rng)
		}
		return n, n, nil
	}

	parts := strings.Split(rng, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid range %q: want start-end", rng)
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start line %q", parts[0])
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end line %q", parts[1])
	}
	return start, end, nil
}

// FindStartTags returns every well-formed start tag in patch, in order.
// Tags with unparsable ranges are omitted.
func FindStartTags(patch string) []StartTag {
	var tags []StartTag
	for _, loc := range startTagScanRe.FindAllStringSubmatchIndex(patch, -1) {
		action := types.EditAction(patch[loc[2]:loc[3]])
		start, end, err := parseRange(action, patch[loc[4]:loc[5]])
		if err != nil {
			continue
		}
		tagStart := loc[0]
		// Leading indentation is not part of the tag.
		for tagStart < loc[1] && (patch[tagStart] == ' ' || patch[tagStart] == '\t') {
			tagStart++
		}
		tags = append(tags, StartTag{
			Action: action,
			Start:  start,
			End:    end,
			Offset: tagStart,
			Length: loc[1] - tagStart,
		})
	}
	return tags
}

// ClaimedRanges returns the line ranges the patch's start tags claim,
// independent of whether the block bodies parse.
func ClaimedRanges(patch string) []types.EditRange {
	tags := FindStartTags(patch)
	ranges := make([]types.EditRange, 0, len(tags))
	for _, t := range tags {
		ranges = append(ranges, types.EditRange{Start: t.Start, End: t.End})
	}
	return ranges
}
