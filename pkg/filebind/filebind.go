// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package filebind is the public interface of the patch reconciliation
// engine: it binds model-proposed edits onto file content, optionally
// correcting stale line numbers through a second model call.
package filebind

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/petar-djukic/filebind/internal/binding"
	"github.com/petar-djukic/filebind/pkg/types"
)

// Error types for the filebind API.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLLMFailure    = errors.New("model client setup failed")
	ErrNoRepository  = errors.New("git integration requires a repository")
)

// Model providers.
const (
	ProviderNone    = "none"
	ProviderBedrock = "bedrock"
	ProviderOpenAI  = "openai"
)

// ModelService streams a model response. The token channel is closed when
// streaming ends; the response channel then yields exactly one value.
type ModelService interface {
	SendMessage(ctx context.Context, prompt string, history []types.Message, params types.ModelParams) (<-chan string, <-chan *types.StreamResponse)
}

// Config configures a Filebind instance. Zero values take the defaults
// noted on each field.
type Config struct {
	// WorkDir locates the git repository (default ".").
	WorkDir string `validate:"required,dir"`

	// Provider selects the model backend used for line-number correction:
	// none, bedrock, or openai (default none).
	Provider      string `validate:"required,oneof=none bedrock openai"`
	Model         string `validate:"required_unless=Provider none"`
	Region        string `validate:"required_if=Provider bedrock"`
	Profile       string
	OpenAIBaseURL string `validate:"omitempty,url"`
	OpenAIAPIKey  string
	MaxTokens     int `validate:"gte=0"` // Default 4096

	// Correct re-grounds line numbers with the model before applying.
	Correct        bool
	ContextPadding int `validate:"gte=0"` // Default 100

	Fuzzy          bool
	FuzzyThreshold float64 `validate:"gte=0,lt=1"` // Default 0.9
	SyntaxCheck    bool

	DryRun      bool
	Jobs        int           `validate:"gte=0"` // Default GOMAXPROCS
	Commit      bool          // Commit written files after Apply
	LockTimeout time.Duration `validate:"gte=0"` // Default 10s

	// Backend overrides Provider when set.
	Backend  ModelService         `validate:"-"`
	Logger   *slog.Logger         `validate:"-"`
	Progress binding.ProgressFunc `validate:"-"`
}

// Result is the outcome of one in-memory binding.
type Result = binding.Result

// Target pairs a file with the model output to bind onto it.
type Target = binding.Target

// FileOutcome is the outcome of one target in Apply.
type FileOutcome = binding.BatchResult

// ApplyResult holds the outcome of an Apply call.
type ApplyResult struct {
	OperationID string
	Files       []FileOutcome
	Failed      int    // Targets that were rejected or could not be read
	CommitHash  string // Empty unless Commit is set and a file was written
}
