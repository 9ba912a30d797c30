// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package binding reconciles model-proposed edits with the current content
// of a file. Line-numbered blocks are the primary path, optionally
// re-grounded by a correction round trip; content-addressed fuzzy blocks are
// an opt-in fallback; output with no edit markup replaces the file.
package binding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/petar-djukic/filebind/internal/diffformat"
	"github.com/petar-djukic/filebind/internal/editformat"
	"github.com/petar-djukic/filebind/internal/editor"
	"github.com/petar-djukic/filebind/internal/syntax"
	"github.com/petar-djukic/filebind/pkg/types"
)

// ErrPatchRejected wraps every binding failure. The original content is
// always returned alongside it.
var ErrPatchRejected = errors.New("patch rejected")

// ErrEmptyOutput is returned when blank model output would replace a
// non-empty file.
var ErrEmptyOutput = errors.New("model output is empty")

// Strategy names how a binding was applied.
type Strategy string

const (
	StrategyLine    Strategy = "line"    // Line-numbered edit blocks
	StrategyFuzzy   Strategy = "fuzzy"   // [OLD]/[NEW] content matching
	StrategyReplace Strategy = "replace" // Whole-file replacement
)

// CorrectionService re-grounds a patch's line numbers against content.
type CorrectionService interface {
	Correct(ctx context.Context, originalContent, patch string) types.CorrectionResult
}

// ProgressFunc receives progress in [0, 1] with a short stage message.
type ProgressFunc func(progress float64, message string)

// CorrectionError reports a correction round trip that produced no usable
// patch.
type CorrectionError struct {
	Kind   types.CorrectionKind
	Detail string
}

func (e *CorrectionError) Error() string {
	var what string
	switch e.Kind {
	case types.CorrectionMappingFailed:
		what = "could not map the patch onto the current file"
	case types.CorrectionSyntaxError:
		what = "patch does not follow the edit block grammar"
	default:
		what = "line-number correction failed"
	}
	if e.Detail != "" {
		what += ": " + e.Detail
	}
	return what + "; re-read the file and resubmit the patch"
}

// Config configures a Service.
type Config struct {
	Corrector      CorrectionService // Nil disables line-number correction
	Fuzzy          bool              // Accept [OLD]/[NEW] blocks when no line tags are present
	FuzzyThreshold float64           // Score a fuzzy window must exceed (default 0.9)
	SyntaxCheck    bool              // Parse results with tree-sitter and report issues
	Metrics        *Metrics
	Logger         *slog.Logger
	Progress       ProgressFunc
}

// Result is the outcome of one binding. On failure Content equals the
// original content and Diff is empty.
type Result struct {
	OperationID  string
	Content      string
	Diff         string
	Summary      diffformat.Summary
	Strategy     Strategy
	Operations   []types.EditOperation
	ParseErrors  []*editformat.ParseError // Blocks skipped while parsing
	FuzzyMatches []types.FuzzyMatch
	Correction   *types.CorrectionResult
	SyntaxIssues []syntax.Issue
}

// Service applies model output to file content.
type Service struct {
	cfg    Config
	fuzzy  *editor.FuzzyPatcher
	logger *slog.Logger
}

// NewService creates a binding service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		cfg:    cfg,
		fuzzy:  &editor.FuzzyPatcher{Threshold: cfg.FuzzyThreshold, Logger: logger},
		logger: logger,
	}
}

// Process binds aiGenerated onto original and returns the new content with
// its display diff.
func (s *Service) Process(ctx context.Context, original, aiGenerated string) (*Result, error) {
	return s.ProcessPath(ctx, "", original, aiGenerated)
}

// ProcessPath is Process for content read from path. The path selects the
// syntax-check grammar and labels log lines; nothing is read or written.
func (s *Service) ProcessPath(ctx context.Context, path, original, aiGenerated string) (*Result, error) {
	opID := uuid.NewString()
	log := s.logger.With("op_id", opID)
	if path != "" {
		log = log.With("path", path)
	}

	start := time.Now()
	res := &Result{OperationID: opID, Content: original}
	err := s.process(ctx, log, path, original, aiGenerated, res)
	s.cfg.Metrics.observeBinding(res.Strategy, err, time.Since(start))

	if err != nil {
		log.Warn("binding rejected", "strategy", res.Strategy, "error", err)
		res.Content = original
		res.Diff = ""
		res.Summary = diffformat.Summary{}
		return res, fmt.Errorf("%w: %w", ErrPatchRejected, err)
	}

	log.Info("binding applied",
		"strategy", res.Strategy,
		"added", res.Summary.Added,
		"removed", res.Summary.Removed,
		"duration", time.Since(start),
	)
	return res, nil
}

// process runs the tier selection and fills res.
func (s *Service) process(ctx context.Context, log *slog.Logger, path, original, ai string, res *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var content string
	var err error

	switch {
	case editformat.HasLineTags(ai) || (editformat.HasStructuredMarker(ai) && !editformat.HasFuzzyBlocks(ai)):
		res.Strategy = StrategyLine
		content, err = s.applyLineEdits(ctx, log, original, ai, res)
	case editformat.HasFuzzyBlocks(ai):
		res.Strategy = StrategyFuzzy
		if !s.cfg.Fuzzy {
			return errors.New("response contains [OLD]/[NEW] blocks but fuzzy matching is disabled")
		}
		content, err = s.applyFuzzyEdits(log, original, ai, res)
	default:
		res.Strategy = StrategyReplace
		if strings.TrimSpace(ai) == "" && original != "" {
			return ErrEmptyOutput
		}
		s.progress(0.5, "Replacing file content")
		content = ai
	}
	if err != nil {
		return err
	}

	s.finish(ctx, log, path, original, content, res)
	return nil
}

// applyLineEdits parses line-numbered blocks, optionally corrects their
// line numbers, and applies them.
func (s *Service) applyLineEdits(ctx context.Context, log *slog.Logger, original, ai string, res *Result) (string, error) {
	s.progress(0.1, "Parsing edit blocks")
	parsed, err := editformat.Parse(ai)
	if err != nil {
		return "", err
	}
	s.noteParse(log, parsed, res)

	if s.cfg.Corrector != nil {
		s.progress(0.3, "Correcting line numbers")
		cr := s.cfg.Corrector.Correct(ctx, original, ai)
		res.Correction = &cr
		s.cfg.Metrics.observeCorrection(cr.Kind)
		log.Debug("correction finished", "kind", cr.Kind.String(), "applied", cr.Applied, "skipped", cr.Skipped)

		if !cr.OK() {
			return "", &CorrectionError{Kind: cr.Kind, Detail: cr.Detail}
		}
		parsed, err = editformat.Parse(cr.CorrectedPatch)
		if err != nil {
			return "", fmt.Errorf("corrected patch: %w", err)
		}
		s.noteParse(log, parsed, res)
	}

	s.progress(0.6, "Applying edits")
	lines := editor.SplitLines(original)
	out, err := editor.ApplyOperations(lines.Lines, parsed.Operations)
	if err != nil {
		return "", err
	}
	res.Operations = parsed.Operations
	return editor.Lines{Lines: out, TrailingNewline: lines.TrailingNewline}.Join(), nil
}

// noteParse records what a parse produced and logs skipped blocks.
func (s *Service) noteParse(log *slog.Logger, parsed *editformat.ParseResult, res *Result) {
	res.ParseErrors = parsed.ParseErrors
	for _, pe := range parsed.ParseErrors {
		log.Warn("skipping malformed edit block", "line", pe.Position, "reason", pe.Message)
	}
	for _, op := range parsed.Operations {
		if op.Context != "" {
			log.Debug("edit block", "op", op.String(), "context", op.Context)
		}
	}
}

// applyFuzzyEdits locates and applies [OLD]/[NEW] blocks.
func (s *Service) applyFuzzyEdits(log *slog.Logger, original, ai string, res *Result) (string, error) {
	s.progress(0.2, "Parsing fuzzy blocks")
	blocks, err := editformat.ParseFuzzy(ai)
	if err != nil {
		return "", err
	}

	s.progress(0.5, "Matching fuzzy blocks")
	content, matches, err := s.fuzzy.Apply(original, blocks)
	if err != nil {
		var nm *editor.NoMatchError
		if errors.As(err, &nm) && nm.Closest != "" {
			s.cfg.Metrics.observeFuzzyScore(nm.Best.Score)
		}
		return "", err
	}
	for _, m := range matches {
		s.cfg.Metrics.observeFuzzyScore(m.Score)
	}
	log.Debug("fuzzy blocks applied", "blocks", len(blocks))
	res.FuzzyMatches = matches
	return content, nil
}

// finish runs the advisory syntax check and renders the diff.
func (s *Service) finish(ctx context.Context, log *slog.Logger, path, original, content string, res *Result) {
	res.Content = content

	if s.cfg.SyntaxCheck && path != "" && content != original {
		s.progress(0.8, "Checking syntax")
		issues, err := syntax.Check(ctx, path, []byte(content))
		if err != nil {
			log.Warn("syntax check failed", "error", err)
		}
		for _, is := range issues {
			log.Warn("syntax issue in bound content", "issue", is.String())
		}
		res.SyntaxIssues = issues
	}

	s.progress(0.9, "Formatting diff")
	res.Summary = diffformat.Summarize(original, content)
	res.Diff = diffformat.Format(original, content)
	s.progress(1.0, "Done")
}

func (s *Service) progress(p float64, msg string) {
	if s.cfg.Progress != nil {
		s.cfg.Progress(p, msg)
	}
}
