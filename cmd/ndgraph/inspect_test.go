// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/ndgraph/pkg/core/graph"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	require.ErrorContains(t, inspect(empty), "no graphs found")

	require.Error(t, inspect(filepath.Join(dir, "missing.bin")))

	path := filepath.Join(dir, "graphs.bin")
	require.NoError(t, graph.SaveFile(path, demoGraph(), demoGraph()))
	require.NoError(t, inspect(path))

	// A partial frame at the end is reported.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-3], 0o644))
	require.ErrorContains(t, inspect(path), "frame #1")
}
