// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package binding

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindAll_IndependentFailures(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.txt", "a\nb\n")
	bad := writeFile(t, dir, "bad.txt", "a\nb\n")
	b := NewFileBinder(NewService(Config{}), nil, false)

	results := b.BindAll(context.Background(), []Target{
		{Path: bad, Patch: "// [START-REPLACE:9-9]\nx\n// [END-REPLACE]"},
		{Path: good, Patch: "// [START-REPLACE:2-2]\nB\n// [END-REPLACE]"},
	}, 2)

	require.Len(t, results, 2)
	assert.Equal(t, bad, results[0].Target.Path)
	assert.ErrorIs(t, results[0].Err, ErrPatchRejected)
	assert.NoError(t, results[1].Err)
	assert.True(t, results[1].File.Written)
	assert.Equal(t, 1, Failed(results))

	assert.Equal(t, "a\nb\n", readFile(t, bad))
	assert.Equal(t, "a\nB\n", readFile(t, good))
}

func TestBindAll_SamePathRunsInOrder(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.txt", "one\ntwo\n")
	b := NewFileBinder(NewService(Config{}), nil, false)

	results := b.BindAll(context.Background(), []Target{
		{Path: path, Patch: "// [START-INSERT:after_line=2]\nthree\n// [END-INSERT]"},
		{Path: path, Patch: "// [START-REPLACE:3-3]\nTHREE\n// [END-REPLACE]"},
	}, 4)

	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err)
	assert.Equal(t, "one\ntwo\nTHREE\n", readFile(t, path))
}

func TestBindAll_ManyFiles(t *testing.T) {
	dir := t.TempDir()
	b := NewFileBinder(NewService(Config{}), nil, false)

	var targets []Target
	for i := 0; i < 20; i++ {
		path := writeFile(t, dir, fmt.Sprintf("f%02d.txt", i), "x\n")
		targets = append(targets, Target{Path: path, Patch: fmt.Sprintf("// [START-REPLACE:1-1]\nx%d\n// [END-REPLACE]", i)})
	}

	results := b.BindAll(context.Background(), targets, 3)
	assert.Zero(t, Failed(results))
	for i, r := range results {
		assert.Equal(t, targets[i].Path, r.Target.Path)
		assert.Equal(t, fmt.Sprintf("x%d\n", i), readFile(t, r.Target.Path))
	}
}
