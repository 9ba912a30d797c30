// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petar-djukic/filebind/internal/diffformat"
	"github.com/petar-djukic/filebind/pkg/filebind"
)

// fileReport is the JSON shape of one target's outcome.
type fileReport struct {
	Path     string   `json:"path"`
	Strategy string   `json:"strategy,omitempty"`
	Written  bool     `json:"written"`
	Added    int      `json:"added"`
	Removed  int      `json:"removed"`
	Syntax   []string `json:"syntax_issues,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// applyReport is the JSON shape of an apply run.
type applyReport struct {
	OperationID string       `json:"operation_id"`
	Commit      string       `json:"commit,omitempty"`
	Files       []fileReport `json:"files"`
}

// newApplyCmd creates the "apply" command.
func newApplyCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply TARGET=PATCHFILE...",
		Short: "Bind patches onto files",
		Long: "Apply reads each PATCHFILE (\"-\" for stdin) and binds its edit blocks onto TARGET. " +
			"Output with no edit blocks replaces the file. A rejected patch leaves its file untouched.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, v, args)
		},
	}

	cmd.Flags().Bool("dry-run", false, "Show the diff without writing files")
	cmd.Flags().Int("jobs", 0, "Files bound concurrently (0 = GOMAXPROCS)")
	cmd.Flags().Bool("commit", false, "Commit written files to git")
	cmd.Flags().Duration("lock-timeout", 10*time.Second, "How long to wait for a file lock")
	cmd.Flags().String("metrics-textfile", "", "Write Prometheus metrics to this file")
	cmd.Flags().Bool("json", false, "Print a JSON report instead of diffs")
	for _, name := range []string{"dry-run", "jobs", "commit", "lock-timeout", "metrics-textfile"} {
		v.BindPFlag(name, cmd.Flags().Lookup(name))
	}
	return cmd
}

func runApply(cmd *cobra.Command, v *viper.Viper, args []string) error {
	targets, err := parseTargets(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(v, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fb, err := filebind.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	ar, applyErr := fb.Apply(ctx, targets)

	if path := v.GetString("metrics-textfile"); path != "" {
		if err := fb.WriteMetrics(path); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error writing metrics: %v\n", err)
		}
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		if err := printReport(cmd.OutOrStdout(), ar); err != nil {
			return err
		}
	} else {
		printDiffs(cmd.OutOrStdout(), cmd.ErrOrStderr(), ar)
	}

	if applyErr != nil {
		return applyErr
	}
	if ar.Failed > 0 {
		return fmt.Errorf("%d of %d patches rejected", ar.Failed, len(targets))
	}
	return nil
}

// parseTargets splits TARGET=PATCHFILE arguments and reads each patch. At
// most one patch may come from stdin.
func parseTargets(args []string, stdin io.Reader) ([]filebind.Target, error) {
	targets := make([]filebind.Target, 0, len(args))
	usedStdin := false
	for _, arg := range args {
		path, patchFile, ok := strings.Cut(arg, "=")
		if !ok || path == "" || patchFile == "" {
			return nil, fmt.Errorf("invalid target %q: want TARGET=PATCHFILE", arg)
		}

		var data []byte
		var err error
		if patchFile == "-" {
			if usedStdin {
				return nil, errors.New("only one patch can be read from stdin")
			}
			usedStdin = true
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(patchFile)
		}
		if err != nil {
			return nil, fmt.Errorf("reading patch for %s: %w", path, err)
		}
		targets = append(targets, filebind.Target{Path: path, Patch: string(data)})
	}
	return targets, nil
}

// printDiffs writes each bound file's diff to out and each rejection to
// errOut.
func printDiffs(out, errOut io.Writer, ar *filebind.ApplyResult) {
	for _, f := range ar.Files {
		if f.Err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", f.Target.Path, f.Err)
			continue
		}
		fmt.Fprintf(out, "==> %s (%s)\n%s\n", f.Target.Path, f.File.Result.Strategy, f.File.Result.Diff)
		for _, is := range f.File.Result.SyntaxIssues {
			fmt.Fprintf(errOut, "%s: warning: %s\n", f.Target.Path, is)
		}
	}
	if ar.CommitHash != "" {
		fmt.Fprintf(out, "Committed %s\n", ar.CommitHash)
	}
}

// printReport outputs the result as JSON.
func printReport(out io.Writer, ar *filebind.ApplyResult) error {
	rep := applyReport{OperationID: ar.OperationID, Commit: ar.CommitHash}
	for _, f := range ar.Files {
		fr := fileReport{Path: f.Target.Path}
		if f.File != nil && f.File.Result != nil {
			fr.Strategy = string(f.File.Result.Strategy)
			fr.Written = f.File.Written
			fr.Added = f.File.Result.Summary.Added
			fr.Removed = f.File.Result.Summary.Removed
			for _, is := range f.File.Result.SyntaxIssues {
				fr.Syntax = append(fr.Syntax, is.String())
			}
		}
		if f.Err != nil {
			fr.Error = f.Err.Error()
		}
		rep.Files = append(rep.Files, fr)
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

// newDiffCmd creates the "diff" command.
func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Show the numbered diff between two files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldData, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			newData, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), diffformat.Format(string(oldData), string(newData)))
			return nil
		},
	}
}

// newUndoCmd creates the "undo" command.
func newUndoCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Revert the last filebind commit",
		Long:  "Undo performs a soft reset of the last commit if it was made by filebind.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			fb, err := filebind.New(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}

			op, err := fb.Undo()
			if err != nil {
				return fmt.Errorf("undo failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reverted filebind operation %s.\n", op)
			return nil
		},
	}
}
