// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resultseries

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cassandra-perf/hunterfeed/resultfmt"
	"github.com/cassandra-perf/hunterfeed/resultstore"
)

// Mode selects whether aggregation uses only already-exported history
// (retrospective) or appends the most recent run (prospective).
type Mode int

const (
	Retrospective Mode = iota
	Prospective
)

func (m Mode) String() string {
	switch m {
	case Retrospective:
		return "retrospective"
	case Prospective:
		return "prospective"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses the configuration spelling of a mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "retrospective":
		return Retrospective, nil
	case "prospective":
		return Prospective, nil
	}
	return 0, fmt.Errorf("invalid mode %q (want retrospective or prospective)", s)
}

// A CurrentRun supplies the latest run's rows in prospective mode.
// Its transport (file tree, object store, API) is not this package's
// concern.
type CurrentRun interface {
	Rows(ctx context.Context, testType resultfmt.TestType) ([]resultfmt.Row, error)
}

// A RunContext selects the behavior of one aggregation invocation. It
// is constructed once per invocation and passed explicitly; there is
// no process-wide mode state.
type RunContext struct {
	Mode Mode

	// RunDate is the current run's normalized date. Required in
	// prospective mode.
	RunDate string

	// Current supplies the current run's rows. Required in
	// prospective mode.
	Current CurrentRun
}

// An OutOfOrderRunError reports a current run whose date does not
// strictly follow the known history. Run dates are assumed to be
// monotonically increasing; a violation is surfaced to the operator
// rather than silently reordered.
type OutOfOrderRunError struct {
	TestType   resultfmt.TestType
	RunDate    string
	MaxHistory string
}

func (e *OutOfOrderRunError) Error() string {
	return fmt.Sprintf("%s: current run date %s does not follow history (latest known %s)",
		e.TestType, e.RunDate, e.MaxHistory)
}

// A NoDataError reports that aggregation produced no rows at all for
// a test type.
type NoDataError struct {
	TestType resultfmt.TestType
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("%s: no historical and no current rows", e.TestType)
}

// Status is the per-test-type progress through one invocation.
type Status int

const (
	StatusConfigured Status = iota
	StatusLoading
	StatusValidating
	StatusEmitted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusConfigured:
		return "configured"
	case StatusLoading:
		return "loading"
	case StatusValidating:
		return "validating"
	case StatusEmitted:
		return "emitted"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// An Aggregator merges history with the optional current run, one
// test type at a time.
type Aggregator struct {
	Loader *Loader
	Log    logrus.FieldLogger
}

// NewAggregator constructs an Aggregator over loader.
func NewAggregator(loader *Loader, log logrus.FieldLogger) *Aggregator {
	return &Aggregator{Loader: loader, Log: log}
}

// Aggregate produces the final table for testType under rc.
//
// In retrospective mode the historical table is returned unchanged.
// In prospective mode the current run's rows are appended after
// checking that rc.RunDate strictly follows every historical date,
// and the merged table is re-validated against the no-duplicate-key
// invariant. An empty result is a *NoDataError.
func (a *Aggregator) Aggregate(ctx context.Context, testType resultfmt.TestType, rc RunContext) (*Table, error) {
	log := a.Log.WithField("test_type", testType)
	log.WithField("status", StatusLoading).Debug("loading history")

	exclude := ""
	if rc.Mode == Prospective {
		exclude = rc.RunDate
	}
	history, err := a.Loader.LoadHistory(ctx, testType, exclude)
	if err != nil {
		return nil, err
	}

	if rc.Mode == Retrospective {
		if len(history.Rows) == 0 {
			return nil, &NoDataError{TestType: testType}
		}
		log.WithField("status", StatusValidating).Debugf("retrospective table has %d rows", len(history.Rows))
		return history, nil
	}

	current, err := rc.Current.Rows(ctx, testType)
	if err != nil {
		return nil, fmt.Errorf("reading current run: %w", err)
	}
	if len(history.Rows) == 0 && len(current) == 0 {
		return nil, &NoDataError{TestType: testType}
	}

	if max := history.MaxDate(); max != "" && rc.RunDate <= max {
		return nil, &OutOfOrderRunError{TestType: testType, RunDate: rc.RunDate, MaxHistory: max}
	}
	for i := range current {
		if current[i].Date != rc.RunDate {
			return nil, &OutOfOrderRunError{TestType: testType, RunDate: current[i].Date, MaxHistory: history.MaxDate()}
		}
	}

	log.WithField("status", StatusValidating).Debugf("appending %d current rows to %d historical rows", len(current), len(history.Rows))
	merged := NewTable(testType, append(history.Rows, current...))
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// AggregateAll runs Aggregate independently for each test type.
// Failures are collected per test type rather than aborting the
// others; the returned map holds only the tables that succeeded.
func (a *Aggregator) AggregateAll(ctx context.Context, testTypes []resultfmt.TestType, rc RunContext) (map[resultfmt.TestType]*Table, map[resultfmt.TestType]error) {
	tables := make(map[resultfmt.TestType]*Table)
	failures := make(map[resultfmt.TestType]error)
	for _, tt := range testTypes {
		t, err := a.Aggregate(ctx, tt, rc)
		if err != nil {
			a.Log.WithField("test_type", tt).WithError(err).Error("aggregation failed")
			failures[tt] = err
			continue
		}
		tables[tt] = t
	}
	return tables, failures
}

// StoreCurrentRun adapts a result store into a CurrentRun: the
// current run's rows are parsed from the store's source for the run
// date.
type StoreCurrentRun struct {
	Loader  *Loader
	RunDate string
}

// Rows implements CurrentRun. A missing source yields no rows rather
// than an error: the nightly run may legitimately have produced no
// results for one test type.
func (c *StoreCurrentRun) Rows(ctx context.Context, testType resultfmt.TestType) ([]resultfmt.Row, error) {
	src, err := c.Loader.Store.Source(ctx, testType, c.RunDate)
	if err != nil {
		if errors.Is(err, resultstore.ErrNoSource) {
			return nil, nil
		}
		return nil, err
	}
	return ParseSource(src)
}
