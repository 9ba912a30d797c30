// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package binding

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Target pairs a file with the model output to bind onto it.
type Target struct {
	Path  string
	Patch string
}

// BatchResult is the outcome of one target in a batch.
type BatchResult struct {
	Target Target
	File   *FileResult // Nil when the file could not be locked or read
	Err    error
}

// BindAll binds every target with at most jobs files in flight. Targets
// naming the same path run one after another in input order, each against
// the previous one's output. A failed target does not stop the others.
// Results are returned in input order.
func (b *FileBinder) BindAll(ctx context.Context, targets []Target, jobs int) []BatchResult {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]BatchResult, len(targets))

	var order []string
	byPath := make(map[string][]int)
	for i, t := range targets {
		if _, ok := byPath[t.Path]; !ok {
			order = append(order, t.Path)
		}
		byPath[t.Path] = append(byPath[t.Path], i)
	}

	var g errgroup.Group
	g.SetLimit(jobs)
	for _, path := range order {
		idxs := byPath[path]
		g.Go(func() error {
			for _, i := range idxs {
				fr, err := b.BindFile(ctx, targets[i].Path, targets[i].Patch)
				results[i] = BatchResult{Target: targets[i], File: fr, Err: err}
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Failed counts the results that carry an error.
func Failed(results []BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
