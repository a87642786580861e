// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fsutil

import (
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindInDirs(t *testing.T) {
	dir1, dir2 := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir2, "libfoo.so.12"), []byte{0}, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir1, "libfoo.so.dir"), 0o755))

	found, err := FindInDirs([]string{"", filepath.Join(dir1, "missing"), dir1, dir2}, "libfoo.so*")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir2, "libfoo.so.12"), found)

	found, err = FindInDirs([]string{dir1}, "libbar.so")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.bin")
	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0o644))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	exists, err := FileExists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")

	require.Error(t, WriteFileAtomic(filepath.Join(path, "not-a-dir", "x"), nil, 0o644))
}

func TestReplaceTildeInDir(t *testing.T) {
	dir, err := ReplaceTildeInDir("/tmp/x")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x", dir)
	usr, err := user.Current()
	if err != nil {
		t.Skipf("no current user: %v", err)
	}
	home := usr.HomeDir
	dir, err = ReplaceTildeInDir("~/graphs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "graphs"), dir)
}
