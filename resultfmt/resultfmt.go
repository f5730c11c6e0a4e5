// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resultfmt defines the result record model shared by the
// hunterfeed packages and implements the two formats those records
// move through: the performance-report.json files produced by the
// nightly test runs, and the CSV artifacts consumed by the
// change-point detector.
//
// A Row is one measurement: a metric observed for a test type on a
// run date, plus free-form string metadata such as commit hashes.
// Rows are never mutated after they are created.
package resultfmt

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// A TestType identifies one performance scenario. The set of test
// types is enumerated in configuration, not in code.
type TestType string

// A Row is a single measurement record.
type Row struct {
	// Date is the run date in normalized YYYY-MM-DD form.
	Date string

	// TestType is the scenario this measurement belongs to.
	TestType TestType

	// Metric is the short metric name, including the phase
	// suffix, e.g. "opRate.read" or "p99.write".
	Metric string

	// Value is the measurement value with unit suffixes removed.
	Value float64

	// Metadata holds auxiliary facts about the run, such as
	// "commit". It may be shared between rows of the same source
	// and must not be modified.
	Metadata map[string]string
}

// Key returns the (date, metric) pair that must be unique within a
// table.
func (r *Row) Key() string {
	return r.Date + " " + r.Metric
}

var underscoreDate = regexp.MustCompile(`^\d{4}_\d{2}_\d{2}$`)

// NormalizeDate converts the date forms used by the nightly result
// store into the canonical YYYY-MM-DD form. Source directories are
// named YYYY_MM_DD; artifacts and configuration use YYYY-MM-DD.
// Normalized dates sort chronologically as strings.
func NormalizeDate(in string) (string, error) {
	s := in
	if underscoreDate.MatchString(s) {
		s = strings.ReplaceAll(s, "_", "-")
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return "", fmt.Errorf("invalid run date %q: %w", in, err)
	}
	return t.Format("2006-01-02"), nil
}

// ParseDate parses a normalized date as a UTC time at midnight.
func ParseDate(in string) (time.Time, error) {
	return time.Parse("2006-01-02", in)
}

// RunStamp renders a normalized date with the fixed wall time at
// which nightly runs execute, in the form the change-point detector
// expects, e.g. "2024-01-02 23:00:00 +0000".
func RunStamp(date, runTime string) string {
	return date + " " + runTime + " +0000"
}
