// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package git

import (
	"fmt"
	"strings"
)

const maxSubjectLength = 72

// FileChange describes one bound file for the commit message.
type FileChange struct {
	Path     string
	Strategy string // How the binding was applied (line, fuzzy, replace)
	Added    int
	Removed  int
}

// GenerateMessage builds the commit message for a binding run:
//
//	filebind: bind internal/server.go
//
//	- internal/server.go (line, +4 -2)
//
//	Filebind-Operation: 6c1f...
func GenerateMessage(operationID string, changes []FileChange) string {
	msg := buildSubject(changes)
	if body := buildBody(changes); body != "" {
		msg += "\n\n" + body
	}
	msg += "\n\n" + OperationTrailer + ": " + operationID
	return msg
}

// buildSubject creates the first line (max 72 chars).
func buildSubject(changes []FileChange) string {
	var subject string
	switch len(changes) {
	case 0:
		subject = "filebind: no changes"
	case 1:
		subject = "filebind: bind " + changes[0].Path
	default:
		subject = fmt.Sprintf("filebind: bind %d files", len(changes))
	}
	if len(subject) > maxSubjectLength {
		subject = subject[:maxSubjectLength-3] + "..."
	}
	return subject
}

// buildBody lists every file with its strategy and line counts.
func buildBody(changes []FileChange) string {
	if len(changes) == 0 {
		return ""
	}

	var buf strings.Builder
	for _, c := range changes {
		if c.Strategy != "" {
			buf.WriteString(fmt.Sprintf("- %s (%s, +%d -%d)\n", c.Path, c.Strategy, c.Added, c.Removed))
		} else {
			buf.WriteString(fmt.Sprintf("- %s (+%d -%d)\n", c.Path, c.Added, c.Removed))
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}

// operationID extracts the trailer value from a commit message.
func operationID(message string) (string, bool) {
	prefix := OperationTrailer + ":"
	for _, line := range strings.Split(message, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, prefix); ok {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}
