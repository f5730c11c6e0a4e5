// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resultstore

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cassandra-perf/hunterfeed/resultfmt"
)

// reportFileName is the result file the test harness writes for each
// sub-test run.
const reportFileName = "performance-report.json"

// harnessLogName is the sidecar log whose content carries the commit
// hash of the system under test.
const harnessLogName = "logs.txt"

// falloutSHALogName is the per-date log naming the test-definition
// commit.
const falloutSHALogName = "fallout-tests_git_sha.log"

// FS is a Store reading a local nightly-results tree.
type FS struct {
	// Root is the nightly results directory, containing one
	// YYYY_MM_DD directory per run.
	Root string

	// SHADir optionally points at the directory holding per-date
	// fallout-tests_git_sha.log files. Empty disables that
	// metadata source.
	SHADir string
}

// NewFS constructs a filesystem store rooted at root.
func NewFS(root string) *FS {
	return &FS{Root: root}
}

// Dates implements Store.
func (s *FS) Dates(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, fmt.Errorf("listing result store %s: %w", s.Root, err)
	}
	var dates []string
	for _, e := range entries {
		if !e.IsDir() || !dateDir.MatchString(e.Name()) {
			continue
		}
		date, err := resultfmt.NormalizeDate(e.Name())
		if err != nil {
			// Matched the pattern but is not a real date,
			// e.g. 2024_13_40. Skip it.
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

// Source implements Store.
func (s *FS) Source(ctx context.Context, testType resultfmt.TestType, date string) (*Source, error) {
	dir := filepath.Join(s.Root, dateDirName(date), string(testType))
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSource
		}
		return nil, err
	}

	reportPath, err := findFile(dir, reportFileName)
	if err != nil {
		return nil, err
	}
	if reportPath == "" {
		return nil, ErrNoSource
	}
	data, err := os.ReadFile(reportPath)
	if err != nil {
		return nil, err
	}

	src := &Source{
		TestType: testType,
		Date:     date,
		Name:     reportPath,
		Data:     data,
	}
	src.Meta = s.metadata(dir, date)
	return src, nil
}

// RunMetadata returns the commit metadata recorded for one run date,
// searching every test type directory under the date. Regression
// reporting uses this to name the commits a change landed on.
func (s *FS) RunMetadata(date string) map[string]string {
	return s.metadata(filepath.Join(s.Root, dateDirName(date)), date)
}

// metadata collects commit metadata from the sidecar logs for one
// source. Sidecars are best effort: any that are missing or
// unreadable simply contribute nothing.
func (s *FS) metadata(dir, date string) map[string]string {
	meta := make(map[string]string)
	if logPath, err := findFile(dir, harnessLogName); err == nil && logPath != "" {
		if content, err := os.ReadFile(logPath); err == nil {
			if sha := commitFromLog(string(content)); sha != "" {
				meta["commit"] = sha
			}
		}
	}
	if s.SHADir != "" {
		shaPath := filepath.Join(s.SHADir, dateDirName(date), falloutSHALogName)
		if content, err := os.ReadFile(shaPath); err == nil {
			if sha := commitFromSHALog(string(content)); sha != "" {
				meta["fallout_tests_commit"] = sha
			}
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// findFile walks dir for the first file with the given base name,
// returning "" if none exists. The harness nests reports a few
// levels deep and the exact depth varies between runs.
func findFile(dir, base string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if found != "" {
			return fs.SkipAll
		}
		if !d.IsDir() && strings.EqualFold(d.Name(), base) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return found, nil
}
