// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package cuda

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/ndgraph/backends"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate makes the probe only see dir.
func isolate(t *testing.T, dir string) {
	t.Setenv("CUDA_PATH", dir)
	t.Setenv("LD_LIBRARY_PATH", "")
	t.Setenv("CUDA_VISIBLE_DEVICES", "")
	saved := DefaultSearchDirs
	DefaultSearchDirs = nil
	t.Cleanup(func() { DefaultSearchDirs = saved })
}

func touch(t *testing.T, path string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	isolate(t, dir)

	backend, err := New("")
	require.NoError(t, err)
	assert.False(t, backend.IsAvailable())
	assert.False(t, backend.CanRun())

	touch(t, filepath.Join(dir, "lib64", "libcudart.so.12"))
	backend, err = New("")
	require.NoError(t, err)
	assert.True(t, backend.IsAvailable())
	assert.False(t, backend.CanRun(), "no dispatcher library")

	touch(t, filepath.Join(dir, "lib", "libnd4jcuda.so"))
	backend, err = New("0,1")
	require.NoError(t, err)
	assert.True(t, backend.IsAvailable())
	assert.True(t, backend.CanRun())
	assert.Equal(t, backends.PriorityGPU, backend.Priority())
	assert.Contains(t, backend.Environment().Description, "[0 1]")
	assert.Contains(t, backend.BuildInfo(), "libcudart.so.12")

	// Devices disabled.
	t.Setenv("CUDA_VISIBLE_DEVICES", "-1")
	backend, err = New("")
	require.NoError(t, err)
	assert.False(t, backend.IsAvailable())
	assert.Contains(t, backend.BuildInfo(), "unavailable")
}

func TestConfig(t *testing.T) {
	_, err := New("gpu0")
	require.Error(t, err)
	_, err = New("-2")
	require.Error(t, err)
}
