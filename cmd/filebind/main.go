// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Command filebind applies model-generated edit blocks to files.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petar-djukic/filebind/pkg/filebind"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Flags are bound to v so tests can
// run commands against an isolated configuration.
func newRootCmd(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "filebind",
		Short:         "Bind model-generated edits onto files",
		Long:          "filebind applies line-numbered or content-addressed edit blocks produced by a model, correcting stale line numbers when a model provider is configured.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return readConfigFile(v)
		},
	}

	// Global flags.
	flags := rootCmd.PersistentFlags()
	flags.String("workdir", ".", "Repository root directory")
	flags.String("provider", filebind.ProviderNone, "Model provider for line-number correction (none, bedrock, openai)")
	flags.String("model", "", "Bedrock model ID or OpenAI model name")
	flags.String("region", "", "AWS region for Bedrock")
	flags.String("profile", "", "AWS credential profile")
	flags.String("openai-base-url", "", "OpenAI-compatible endpoint base URL")
	flags.String("openai-api-key", "", "API key for the OpenAI-compatible endpoint")
	flags.Int("max-tokens", 4096, "Maximum tokens for the correction response")
	flags.Int("context-padding", 100, "Lines of context around each edited range sent for correction")
	flags.Bool("correct", false, "Correct stale line numbers with the model before applying")
	flags.Bool("fuzzy", false, "Accept [OLD]/[NEW] content-addressed blocks")
	flags.Float64("fuzzy-threshold", 0.9, "Similarity a fuzzy match must exceed")
	flags.Bool("syntax-check", true, "Report syntax issues in bound files")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")

	for _, name := range []string{
		"workdir", "provider", "model", "region", "profile", "openai-base-url", "openai-api-key",
		"max-tokens", "context-padding", "correct", "fuzzy", "fuzzy-threshold", "syntax-check", "log-level",
	} {
		v.BindPFlag(name, flags.Lookup(name))
	}

	// Env vars: FILEBIND_PROVIDER, FILEBIND_MAX_TOKENS, etc.
	v.SetEnvPrefix("FILEBIND")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd.AddCommand(newApplyCmd(v))
	rootCmd.AddCommand(newDiffCmd())
	rootCmd.AddCommand(newUndoCmd(v))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// readConfigFile loads .filebind.yaml from --workdir if present, falling
// back to the process working directory.
func readConfigFile(v *viper.Viper) error {
	v.SetConfigName(".filebind")
	v.SetConfigType("yaml")
	if wd := v.GetString("workdir"); wd != "" && wd != "." {
		v.AddConfigPath(wd)
	}
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

// loadConfig builds the library configuration from flags, environment and
// config file.
func loadConfig(v *viper.Viper, stderr io.Writer) (filebind.Config, error) {
	logger, err := newLogger(stderr, v.GetString("log-level"))
	if err != nil {
		return filebind.Config{}, err
	}
	return filebind.Config{
		WorkDir:        v.GetString("workdir"),
		Provider:       v.GetString("provider"),
		Model:          v.GetString("model"),
		Region:         v.GetString("region"),
		Profile:        v.GetString("profile"),
		OpenAIBaseURL:  v.GetString("openai-base-url"),
		OpenAIAPIKey:   v.GetString("openai-api-key"),
		MaxTokens:      v.GetInt("max-tokens"),
		ContextPadding: v.GetInt("context-padding"),
		Correct:        v.GetBool("correct"),
		Fuzzy:          v.GetBool("fuzzy"),
		FuzzyThreshold: v.GetFloat64("fuzzy-threshold"),
		SyntaxCheck:    v.GetBool("syntax-check"),
		DryRun:         v.GetBool("dry-run"),
		Jobs:           v.GetInt("jobs"),
		Commit:         v.GetBool("commit"),
		LockTimeout:    v.GetDuration("lock-timeout"),
		Logger:         logger,
	}, nil
}

// newLogger returns a text logger on w at the named level.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// newVersionCmd creates the "version" command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print filebind version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "filebind %s\n", version)
		},
	}
}
