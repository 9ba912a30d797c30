// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package filebind

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/petar-djukic/filebind/internal/binding"
	"github.com/petar-djukic/filebind/internal/correction"
	"github.com/petar-djukic/filebind/internal/git"
	"github.com/petar-djukic/filebind/internal/llm"
	"github.com/petar-djukic/filebind/internal/lock"
	"github.com/petar-djukic/filebind/pkg/types"
)

const (
	defaultMaxTokens  = 4096
	defaultLLMTimeout = 5 * time.Minute
)

var validate = validator.New()

// usageReporter is implemented by the model clients.
type usageReporter interface {
	CumulativeUsage() types.TokenUsage
}

// Filebind binds model output onto files.
type Filebind struct {
	cfg      Config
	logger   *slog.Logger
	model    ModelService
	service  *binding.Service
	binder   *binding.FileBinder
	registry *prometheus.Registry
}

// New validates cfg, builds the model client when correction is enabled,
// and returns a ready-to-use Filebind.
func New(ctx context.Context, cfg Config) (*Filebind, error) {
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	f := &Filebind{
		cfg:      cfg,
		logger:   cfg.Logger,
		registry: prometheus.NewRegistry(),
	}

	var corrector binding.CorrectionService
	if cfg.Correct {
		model, err := newModel(ctx, cfg)
		if err != nil {
			return nil, err
		}
		c, err := correction.New(model, correction.Config{
			Padding: cfg.ContextPadding,
			Params:  types.ModelParams{MaxTokens: cfg.MaxTokens, Temperature: new(float32)},
			Logger:  cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		f.model = model
		corrector = c
	}

	f.service = binding.NewService(binding.Config{
		Corrector:      corrector,
		Fuzzy:          cfg.Fuzzy,
		FuzzyThreshold: cfg.FuzzyThreshold,
		SyntaxCheck:    cfg.SyntaxCheck,
		Metrics:        binding.NewMetrics(f.registry),
		Logger:         cfg.Logger,
		Progress:       cfg.Progress,
	})
	f.binder = binding.NewFileBinder(f.service, &lock.Manager{Timeout: cfg.LockTimeout}, cfg.DryRun)
	return f, nil
}

// newModel returns the configured backend, building a Bedrock or OpenAI
// client unless cfg.Backend is set.
func newModel(ctx context.Context, cfg Config) (ModelService, error) {
	if cfg.Backend != nil {
		return cfg.Backend, nil
	}
	switch cfg.Provider {
	case ProviderBedrock:
		c, err := llm.NewClient(ctx, llm.ClientConfig{
			ModelID:   cfg.Model,
			Region:    cfg.Region,
			Profile:   cfg.Profile,
			Timeout:   defaultLLMTimeout,
			MaxTokens: cfg.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLLMFailure, err)
		}
		return c, nil
	case ProviderOpenAI:
		c, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:    cfg.OpenAIAPIKey,
			BaseURL:   cfg.OpenAIBaseURL,
			Model:     cfg.Model,
			Timeout:   defaultLLMTimeout,
			MaxTokens: cfg.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLLMFailure, err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: correction needs a model provider", ErrInvalidConfig)
	}
}

// Process binds aiGenerated onto original in memory. On rejection the
// returned Result still carries the original content.
func (f *Filebind) Process(ctx context.Context, original, aiGenerated string) (*Result, error) {
	return f.service.Process(ctx, original, aiGenerated)
}

// Apply binds every target onto its file and, when Commit is set, commits
// the files that were written. Rejected targets are reported per file and
// do not fail the call; the returned error covers commit failures only.
func (f *Filebind) Apply(ctx context.Context, targets []Target) (*ApplyResult, error) {
	opID := uuid.NewString()
	log := f.logger.With("op_id", opID)

	results := f.binder.BindAll(ctx, targets, f.cfg.Jobs)
	ar := &ApplyResult{OperationID: opID, Files: results, Failed: binding.Failed(results)}
	log.Info("apply finished", "targets", len(targets), "failed", ar.Failed)

	if !f.cfg.Commit || f.cfg.DryRun {
		return ar, nil
	}

	var changes []git.FileChange
	for _, r := range results {
		if r.File == nil || !r.File.Written {
			continue
		}
		changes = append(changes, git.FileChange{
			Path:     r.File.Path,
			Strategy: string(r.File.Result.Strategy),
			Added:    r.File.Result.Summary.Added,
			Removed:  r.File.Result.Summary.Removed,
		})
	}
	if len(changes) == 0 {
		return ar, nil
	}

	repo, err := f.repo()
	if err != nil {
		return ar, err
	}
	hash, err := repo.Commit(opID, changes)
	if errors.Is(err, git.ErrNothingToCommit) {
		return ar, nil
	}
	if err != nil {
		return ar, fmt.Errorf("committing bound files: %w", err)
	}
	ar.CommitHash = hash
	log.Info("committed bound files", "commit", hash, "files", len(changes))
	return ar, nil
}

// Undo reverts the most recent filebind commit with a soft reset and
// returns its operation ID. Commits filebind did not make are refused.
func (f *Filebind) Undo() (string, error) {
	repo, err := f.repo()
	if err != nil {
		return "", err
	}
	return repo.Undo()
}

// Gatherer exposes the binding metrics.
func (f *Filebind) Gatherer() prometheus.Gatherer {
	return f.registry
}

// WriteMetrics writes the binding metrics to path in the Prometheus text
// format.
func (f *Filebind) WriteMetrics(path string) error {
	return binding.WriteTextfile(path, f.registry)
}

// TokensUsed reports the model tokens consumed by correction so far.
func (f *Filebind) TokensUsed() types.TokenUsage {
	if u, ok := f.model.(usageReporter); ok {
		return u.CumulativeUsage()
	}
	return types.TokenUsage{}
}

func (f *Filebind) repo() (*git.Repo, error) {
	repo, err := git.Open(git.Config{WorkDir: f.cfg.WorkDir})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoRepository, err)
	}
	return repo, nil
}

// validateConfig checks struct tags, then the rules that span fields.
func validateConfig(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	if cfg.Correct && cfg.Provider == ProviderNone && cfg.Backend == nil {
		return errors.New("correction requires a model provider")
	}
	return nil
}

// applyDefaults fills in zero-value fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderNone
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
}
