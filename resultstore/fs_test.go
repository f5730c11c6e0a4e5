// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resultstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree populates dir with the given relative-path files.
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o777))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o666))
	}
}

func TestFSDates(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"2024_01_02/lwt-fixed-100-partitions/performance-report.json": "{}",
		"2024_01_01/lwt-fixed-100-partitions/performance-report.json": "{}",
		"2024_13_40/lwt-fixed-100-partitions/performance-report.json": "{}",
		"scratch/notes.txt": "",
	})

	dates, err := NewFS(root).Dates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, dates)
}

func TestFSSource(t *testing.T) {
	root := t.TempDir()
	shaDir := t.TempDir()
	writeTree(t, root, map[string]string{
		// The harness nests the report at varying depths.
		"2024_01_02/lwt-fixed-100-partitions/run-1/artifacts/performance-report.json": `{"stats": []}`,
		"2024_01_02/lwt-fixed-100-partitions/run-1/logs.txt":                          "startup\nGit SHA: abc123def\nshutdown\n",
	})
	writeTree(t, shaDir, map[string]string{
		"2024_01_02/fallout-tests_git_sha.log": "fff000,refs/heads/main\n",
	})

	s := NewFS(root)
	s.SHADir = shaDir
	src, err := s.Source(context.Background(), "lwt-fixed-100-partitions", "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, `{"stats": []}`, string(src.Data))
	assert.Equal(t, "2024-01-02", src.Date)
	assert.Equal(t, "abc123def", src.Meta["commit"])
	assert.Equal(t, "fff000", src.Meta["fallout_tests_commit"])
}

func TestFSSourceMissing(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"2024_01_02/other-test/performance-report.json": "{}",
		// Directory exists but holds no report.
		"2024_01_02/lwt-rated-1000-partitions/logs.txt": "",
	})

	s := NewFS(root)
	_, err := s.Source(context.Background(), "lwt-fixed-100-partitions", "2024-01-02")
	assert.True(t, errors.Is(err, ErrNoSource))

	_, err = s.Source(context.Background(), "lwt-rated-1000-partitions", "2024-01-02")
	assert.True(t, errors.Is(err, ErrNoSource))
}

func TestFSRunMetadata(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"2024_01_02/lwt-fixed-100-partitions/logs.txt": "Git SHA: abc123\n",
	})
	meta := NewFS(root).RunMetadata("2024-01-02")
	assert.Equal(t, "abc123", meta["commit"])

	assert.Nil(t, NewFS(root).RunMetadata("2024-01-09"))
}

func TestCommitFromLog(t *testing.T) {
	assert.Equal(t, "abc", commitFromLog("noise\nGit SHA: abc\nmore\n"))
	assert.Equal(t, "", commitFromLog("no sha here\n"))
	// First occurrence wins.
	assert.Equal(t, "one", commitFromLog("Git SHA: one\nGit SHA: two\n"))
}

func TestCommitFromSHALog(t *testing.T) {
	assert.Equal(t, "fff000", commitFromSHALog("fff000,refs/heads/main\n"))
	assert.Equal(t, "bare", commitFromSHALog("bare"))
	assert.Equal(t, "", commitFromSHALog(""))
}
