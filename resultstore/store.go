// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resultstore locates and retrieves historical result sources
// from the nightly result store. The store holds one directory per
// run date, named YYYY_MM_DD, and under each date one subtree per
// test type containing a performance-report.json plus optional
// sidecar logs carrying commit metadata.
//
// Two backends are provided: a local filesystem tree and a Google
// Cloud Storage bucket. Retrieval never mutates the store.
package resultstore

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/cassandra-perf/hunterfeed/resultfmt"
)

// ErrNoSource is returned by Source when the store has no result
// source for the requested (test type, date) pair. The caller is
// expected to skip the candidate and continue.
var ErrNoSource = errors.New("no result source")

// A Source is one retrieved historical result source.
type Source struct {
	TestType resultfmt.TestType
	Date     string // normalized YYYY-MM-DD
	Name     string // path or object name, purely diagnostic
	Data     []byte

	// Meta holds metadata recovered from sidecar files next to
	// the report, such as the commit hashes of the system under
	// test. Missing sidecars simply leave keys absent.
	Meta map[string]string
}

// A Store retrieves historical result sources.
type Store interface {
	// Dates returns the normalized run dates present in the
	// store, in ascending order. Directory entries that do not
	// look like run dates are ignored.
	Dates(ctx context.Context) ([]string, error)

	// Source retrieves the result source for one (test type,
	// date) pair, or ErrNoSource if the date directory has no
	// source for that test type.
	Source(ctx context.Context, testType resultfmt.TestType, date string) (*Source, error)
}

// dateDir matches the date directory names used by the nightly
// result store.
var dateDir = regexp.MustCompile(`^\d{4}_\d{2}_\d{2}$`)

// dateDirName converts a normalized date back to the directory form
// used by the store.
func dateDirName(date string) string {
	return strings.ReplaceAll(date, "-", "_")
}

// gitSHAMarker precedes the commit hash in the harness logs.
const gitSHAMarker = "Git SHA: "

// commitFromLog extracts the commit hash from harness log content, or
// "" if the marker is absent.
func commitFromLog(content string) string {
	_, rest, ok := strings.Cut(content, gitSHAMarker)
	if !ok {
		return ""
	}
	sha, _, _ := strings.Cut(rest, "\n")
	return strings.TrimSpace(sha)
}

// commitFromSHALog extracts the commit hash from a
// fallout-tests_git_sha.log file, whose first comma-separated field
// is the hash.
func commitFromSHALog(content string) string {
	sha, _, _ := strings.Cut(content, ",")
	return strings.TrimSpace(sha)
}
