// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package syntax parses patched content with tree-sitter and reports the
// error nodes it finds. Issues are advisory; they never block a binding.
package syntax

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"
)

const maxIssues = 10

// languages maps file extensions to tree-sitter grammars.
var languages = map[string]*sitter.Language{
	".go":   golang.GetLanguage(),
	".py":   python.GetLanguage(),
	".pyi":  python.GetLanguage(),
	".js":   javascript.GetLanguage(),
	".jsx":  javascript.GetLanguage(),
	".mjs":  javascript.GetLanguage(),
	".cjs":  javascript.GetLanguage(),
	".ts":   typescript.GetLanguage(),
	".mts":  typescript.GetLanguage(),
	".cts":  typescript.GetLanguage(),
	".yaml": yaml.GetLanguage(),
	".yml":  yaml.GetLanguage(),
}

// Issue is one syntax problem in parsed content.
type Issue struct {
	Line    int    // 1-based
	Column  int    // 1-based
	Missing bool   // Parser inserted a missing token rather than skipping input
	Text    string // Source text of the error node, truncated
}

func (i Issue) String() string {
	if i.Missing {
		return fmt.Sprintf("%d:%d: missing %s", i.Line, i.Column, i.Text)
	}
	return fmt.Sprintf("%d:%d: syntax error near %q", i.Line, i.Column, i.Text)
}

// Supported reports whether path has a grammar.
func Supported(path string) bool {
	_, ok := languages[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Check parses content using the grammar selected by path's extension and
// returns up to ten issues in source order. Unsupported extensions return
// nil.
func Check(ctx context.Context, path string, content []byte) ([]Issue, error) {
	lang, ok := languages[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, nil
	}

	root, err := sitter.ParseCtx(ctx, content, lang)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var issues []Issue
	collect(root, content, &issues)
	return issues, nil
}

// collect walks node depth-first. An error node's children are not
// descended into, so one broken region yields one issue.
func collect(node *sitter.Node, content []byte, issues *[]Issue) {
	if node == nil || len(*issues) >= maxIssues {
		return
	}
	if node.IsError() || node.IsMissing() {
		*issues = append(*issues, newIssue(node, content))
		return
	}
	if !node.HasError() {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		collect(node.Child(i), content, issues)
	}
}

func newIssue(node *sitter.Node, content []byte) Issue {
	start := node.StartPoint()
	issue := Issue{
		Line:    int(start.Row) + 1,
		Column:  int(start.Column) + 1,
		Missing: node.IsMissing(),
	}
	if issue.Missing {
		issue.Text = node.Type()
		return issue
	}
	text := strings.TrimSpace(node.Content(content))
	if line, _, cut := strings.Cut(text, "\n"); cut {
		text = line
	}
	if len(text) > 40 {
		text = text[:40]
	}
	issue.Text = text
	return issue
}
