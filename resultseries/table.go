// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resultseries assembles per-test-type result tables from
// historical sources and, in prospective mode, the current run.
//
// A Table is the ordered measurement series for one test type. The
// Loader builds tables from the result store, skipping sources it
// cannot use; the Aggregator decides per test type whether to fold in
// the current run and validates the outcome. Each test type is an
// independent data domain: a failure in one never aborts the others.
package resultseries

import (
	"fmt"
	"io"
	"sort"

	"github.com/cassandra-perf/hunterfeed/resultfmt"
)

// A Table is the measurement series for a single test type, ordered
// by run date ascending and, within one date, by metric name. A valid
// table has no duplicate (date, metric) pair.
//
// Tables are assembled by the Loader and Aggregator and then
// serialized; they are not retained across test types.
type Table struct {
	TestType resultfmt.TestType
	Rows     []resultfmt.Row
}

// NewTable builds a sorted table from rows. The rows are not
// validated; call Validate before relying on the no-duplicate-key
// invariant.
func NewTable(testType resultfmt.TestType, rows []resultfmt.Row) *Table {
	t := &Table{TestType: testType, Rows: rows}
	t.sort()
	return t
}

func (t *Table) sort() {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		a, b := &t.Rows[i], &t.Rows[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.Metric < b.Metric
	})
}

// A DuplicateRowError reports two rows sharing a (date, metric) pair.
// It signals corrupt or overlapping historical data and is fatal for
// the affected test type; tables are never silently deduplicated.
type DuplicateRowError struct {
	TestType resultfmt.TestType
	Date     string
	Metric   string
}

func (e *DuplicateRowError) Error() string {
	return fmt.Sprintf("%s: duplicate row for date %s metric %s", e.TestType, e.Date, e.Metric)
}

// Validate checks the no-duplicate-key invariant, returning a
// *DuplicateRowError for the first violation. The table must already
// be sorted.
func (t *Table) Validate() error {
	for i := 1; i < len(t.Rows); i++ {
		prev, cur := &t.Rows[i-1], &t.Rows[i]
		if prev.Date == cur.Date && prev.Metric == cur.Metric {
			return &DuplicateRowError{TestType: t.TestType, Date: cur.Date, Metric: cur.Metric}
		}
	}
	return nil
}

// MaxDate returns the latest run date in the table, or "" for an
// empty table.
func (t *Table) MaxDate() string {
	if len(t.Rows) == 0 {
		return ""
	}
	return t.Rows[len(t.Rows)-1].Date
}

// Dates returns the distinct run dates in ascending order.
func (t *Table) Dates() []string {
	var dates []string
	for i := range t.Rows {
		if len(dates) == 0 || dates[len(dates)-1] != t.Rows[i].Date {
			dates = append(dates, t.Rows[i].Date)
		}
	}
	return dates
}

// WriteCSV serializes the table in artifact form. Serialization is
// pure: the same table always produces byte-identical output.
func (t *Table) WriteCSV(w io.Writer) error {
	return resultfmt.WriteCSV(w, t.Rows)
}
