// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package artifact publishes result tables as CSV artifacts at
// deterministic per-test-type locations. Publication is atomic: the
// artifact is written to a temporary file in the destination
// directory and renamed into place, so an aborted invocation never
// leaves a truncated artifact behind.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cassandra-perf/hunterfeed/resultfmt"
	"github.com/cassandra-perf/hunterfeed/resultseries"
)

// Filename returns the artifact file name for a test type.
func Filename(testType resultfmt.TestType) string {
	return "hunter-" + string(testType) + ".csv"
}

// A Publisher writes artifacts into Dir.
type Publisher struct {
	Dir string

	// RunTime, if set, is the nightly wall time (HH:MM:SS).
	// Each published row then carries a "time" column rendering
	// its run date at that wall time, which is the timestamp the
	// change-point detector reports back.
	RunTime string
}

// Publish serializes t into its artifact location and returns the
// final path.
func (p *Publisher) Publish(t *resultseries.Table) (string, error) {
	if err := os.MkdirAll(p.Dir, 0o777); err != nil {
		return "", err
	}
	dest := filepath.Join(p.Dir, Filename(t.TestType))

	tmp, err := os.CreateTemp(p.Dir, Filename(t.TestType)+".tmp*")
	if err != nil {
		return "", err
	}
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	rows := t.Rows
	if p.RunTime != "" {
		rows = stampRows(rows, p.RunTime)
	}
	if err := resultfmt.WriteCSV(tmp, rows); err != nil {
		return "", fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}
	tmp = nil
	return dest, nil
}

// stampRows returns a copy of rows with a "time" metadata entry set
// from each row's date. Row metadata may be shared, so the maps are
// cloned rather than written through. Stamping is idempotent: a row
// that already carries the same stamp is unchanged.
func stampRows(rows []resultfmt.Row, runTime string) []resultfmt.Row {
	stamped := make([]resultfmt.Row, len(rows))
	for i, r := range rows {
		meta := make(map[string]string, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			meta[k] = v
		}
		meta["time"] = resultfmt.RunStamp(r.Date, runTime)
		r.Metadata = meta
		stamped[i] = r
	}
	return stamped
}
