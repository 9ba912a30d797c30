// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package correction re-grounds stale line numbers in a patch by asking a
// secondary model call for a tag-to-tag mapping against the current file.
package correction

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"text/template"

	"github.com/petar-djukic/filebind/internal/editformat"
	"github.com/petar-djukic/filebind/internal/editor"
	"github.com/petar-djukic/filebind/internal/snippet"
	"github.com/petar-djukic/filebind/pkg/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	markerMapping      = "[MAPPING]"
	markerMappingClose = "[/MAPPING]"
	markerFailed       = "[MAPPING-FAILED]"
	markerSyntaxError  = "[MAPPING-SYNTAX-ERROR]"
	mappingArrow       = "->"
)

// ErrNoModel is returned when a Corrector is built without a model service.
var ErrNoModel = errors.New("no model service configured")

// ModelService is the model invocation the corrector depends on. The token
// channel is closed when streaming ends; the response channel then yields
// exactly one value.
type ModelService interface {
	SendMessage(ctx context.Context, prompt string, history []types.Message, params types.ModelParams) (<-chan string, <-chan *types.StreamResponse)
}

// Config configures a Corrector.
type Config struct {
	Padding int               // Snippet context lines around each claimed range (default 100)
	Params  types.ModelParams // Passed through to the model call
	Logger  *slog.Logger
}

// Corrector rewrites patch start tags using a model-proposed mapping.
type Corrector struct {
	model    ModelService
	snippets snippet.Builder
	params   types.ModelParams
	tmpl     *template.Template
	logger   *slog.Logger
}

// promptData holds the values injected into the correction template.
type promptData struct {
	Snippet   string
	Patch     string
	LineCount int
}

// New creates a Corrector backed by model.
func New(model ModelService, cfg Config) (*Corrector, error) {
	if model == nil {
		return nil, ErrNoModel
	}
	tmpl, err := template.ParseFS(templateFS, "templates/correction.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing correction template: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Corrector{
		model:    model,
		snippets: snippet.Builder{Padding: cfg.Padding},
		params:   cfg.Params,
		tmpl:     tmpl,
		logger:   logger,
	}, nil
}

// Correct asks the model to map the patch's start tags onto
// originalContent and returns the patch with corrected tags. Any transport
// failure or unrecognized response is reported as CorrectionError.
func (c *Corrector) Correct(ctx context.Context, originalContent, patch string) types.CorrectionResult {
	prompt, err := c.buildPrompt(originalContent, patch)
	if err != nil {
		return types.CorrectionResult{Kind: types.CorrectionError, Detail: err.Error()}
	}

	response, err := c.send(ctx, prompt)
	if err != nil {
		return types.CorrectionResult{Kind: types.CorrectionError, Detail: err.Error()}
	}

	result := c.classify(response, patch)
	c.logger.Debug("correction classified",
		"kind", result.Kind.String(),
		"applied", result.Applied,
		"skipped", result.Skipped,
	)
	return result
}

// buildPrompt renders the correction prompt for patch against content.
func (c *Corrector) buildPrompt(content, patch string) (string, error) {
	lines := editor.SplitLines(content).Lines
	data := promptData{
		Snippet:   c.snippets.Build(lines, editformat.ClaimedRanges(patch)),
		Patch:     strings.TrimRight(patch, "\n"),
		LineCount: len(lines),
	}

	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing correction template: %w", err)
	}
	return buf.String(), nil
}

// send performs one model round trip and concatenates the streamed tokens.
func (c *Corrector) send(ctx context.Context, prompt string) (string, error) {
	tokenCh, responseCh := c.model.SendMessage(ctx, prompt, nil, c.params)

	var text strings.Builder
	for token := range tokenCh {
		text.WriteString(token)
	}

	resp := <-responseCh
	if resp == nil {
		return "", fmt.Errorf("no response from model")
	}
	if resp.Err != nil {
		return "", fmt.Errorf("correction request failed: %w", resp.Err)
	}
	if text.Len() == 0 {
		return resp.FullText, nil
	}
	return text.String(), nil
}

// classify maps a raw model response onto a CorrectionResult.
func (c *Corrector) classify(response, patch string) types.CorrectionResult {
	body := stripFence(strings.TrimSpace(response))

	switch {
	case strings.HasPrefix(body, markerSyntaxError):
		return types.CorrectionResult{
			Kind:   types.CorrectionSyntaxError,
			Detail: strings.TrimSpace(strings.TrimPrefix(body, markerSyntaxError)),
		}
	case strings.HasPrefix(body, markerFailed):
		return types.CorrectionResult{
			Kind:   types.CorrectionMappingFailed,
			Detail: strings.TrimSpace(strings.TrimPrefix(body, markerFailed)),
		}
	case strings.HasPrefix(body, markerMapping):
		block := strings.TrimPrefix(body, markerMapping)
		if before, _, ok := strings.Cut(block, markerMappingClose); ok {
			block = before
		}
		return c.applyMapping(patch, ParseMapping(block, c.logger))
	default:
		return types.CorrectionResult{
			Kind:   types.CorrectionError,
			Detail: fmt.Sprintf("unrecognized correction response: %s", firstLine(body)),
		}
	}
}

// stripFence removes a surrounding Markdown code fence.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	if len(line) > 120 {
		line = line[:120] + "..."
	}
	return line
}

// Entry is one "ACTION:spec -> ACTION:spec" line of a mapping.
type Entry struct {
	From editformat.StartTag
	To   editformat.StartTag
}

// ParseMapping parses mapping lines. Lines that do not parse are logged
// and dropped.
func ParseMapping(block string, logger *slog.Logger) []Entry {
	var entries []Entry
	for _, raw := range strings.Split(block, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		from, to, ok := strings.Cut(line, mappingArrow)
		if !ok {
			logger.Warn("ignoring mapping line without arrow", "line", line)
			continue
		}
		fromAction, fromStart, fromEnd, err := editformat.ParseSpec(from)
		if err != nil {
			logger.Warn("ignoring mapping line", "line", line, "error", err)
			continue
		}
		toAction, toStart, toEnd, err := editformat.ParseSpec(to)
		if err != nil {
			logger.Warn("ignoring mapping line", "line", line, "error", err)
			continue
		}
		entries = append(entries, Entry{
			From: editformat.StartTag{Action: fromAction, Start: fromStart, End: fromEnd},
			To:   editformat.StartTag{Action: toAction, Start: toStart, End: toEnd},
		})
	}
	return entries
}

// replacement is one tag rewrite at a fixed position in the original patch.
type replacement struct {
	offset int
	length int
	text   string
}

// applyMapping rewrites the start tags named by entries. Every entry claims
// the first unclaimed tag with the same action and range; rewrites are
// computed against the original patch so chained remaps do not cascade.
func (c *Corrector) applyMapping(patch string, entries []Entry) types.CorrectionResult {
	tags := editformat.FindStartTags(patch)
	claimed := make([]bool, len(tags))

	var repls []replacement
	skipped := 0
	for _, e := range entries {
		if e.From.Action != e.To.Action {
			c.logger.Warn("skipping mapping that changes the action",
				"from", editformat.FormatSpec(e.From.Action, e.From.Start, e.From.End),
				"to", editformat.FormatSpec(e.To.Action, e.To.Start, e.To.End),
			)
			skipped++
			continue
		}

		idx := -1
		for i, t := range tags {
			if !claimed[i] && t.Action == e.From.Action && t.Start == e.From.Start && t.End == e.From.End {
				idx = i
				break
			}
		}
		if idx < 0 {
			c.logger.Warn("skipping mapping for tag not found in patch",
				"from", editformat.FormatSpec(e.From.Action, e.From.Start, e.From.End),
			)
			skipped++
			continue
		}

		claimed[idx] = true
		repls = append(repls, replacement{
			offset: tags[idx].Offset,
			length: tags[idx].Length,
			text:   editformat.FormatStartTag(e.To.Action, e.To.Start, e.To.End),
		})
	}

	if len(repls) == 0 {
		return types.CorrectionResult{
			Kind:    types.CorrectionError,
			Detail:  "no mapping entry matched a start tag in the patch",
			Skipped: skipped,
		}
	}

	return types.CorrectionResult{
		Kind:           types.CorrectionSuccess,
		CorrectedPatch: rewrite(patch, repls),
		Applied:        len(repls),
		Skipped:        skipped,
	}
}

// rewrite applies non-overlapping replacements to s.
func rewrite(s string, repls []replacement) string {
	sort.Slice(repls, func(i, j int) bool { return repls[i].offset < repls[j].offset })

	var b strings.Builder
	pos := 0
	for _, r := range repls {
		b.WriteString(s[pos:r.offset])
		b.WriteString(r.text)
		pos = r.offset + r.length
	}
	b.WriteString(s[pos:])
	return b.String()
}
