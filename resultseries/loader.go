// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resultseries

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cassandra-perf/hunterfeed/resultfmt"
	"github.com/cassandra-perf/hunterfeed/resultstore"
)

// A Loader assembles the historical table for a test type from the
// result store.
type Loader struct {
	Store resultstore.Store
	Log   logrus.FieldLogger
}

// NewLoader constructs a Loader reading from store.
func NewLoader(store resultstore.Store, log logrus.FieldLogger) *Loader {
	return &Loader{Store: store, Log: log}
}

// LoadHistory builds the historical table for testType. The exclude
// date, if non-empty, is left out: in prospective mode the current
// run's own date directory belongs to the current run, not to
// history. Dates after the excluded one still load, so a current run
// dated before known history is detectable downstream.
//
// Sources that are missing, unreadable, or malformed are skipped with
// a warning; loading continues. The returned table satisfies the
// no-duplicate-key invariant or the call fails with a
// *DuplicateRowError; a table with colliding rows is never returned.
func (l *Loader) LoadHistory(ctx context.Context, testType resultfmt.TestType, exclude string) (*Table, error) {
	log := l.Log.WithField("test_type", testType)

	dates, err := l.Store.Dates(ctx)
	if err != nil {
		return nil, err
	}

	var rows []resultfmt.Row
	for _, date := range dates {
		if date == exclude {
			continue
		}
		src, err := l.Store.Source(ctx, testType, date)
		if err != nil {
			if errors.Is(err, resultstore.ErrNoSource) {
				log.WithField("date", date).Warn("no result source for date, skipping")
			} else {
				log.WithField("date", date).WithError(err).Warn("result source unreadable, skipping")
			}
			continue
		}
		parsed, err := ParseSource(src)
		if err != nil {
			log.WithField("source", src.Name).WithError(err).Warn("result source malformed, skipping")
			continue
		}
		rows = append(rows, parsed...)
	}

	t := NewTable(testType, rows)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseSource parses one retrieved source into rows. Emitted CSV
// artifacts are accepted alongside raw performance reports, so an
// artifact can be fed back in as history.
func ParseSource(src *resultstore.Source) ([]resultfmt.Row, error) {
	if strings.HasSuffix(src.Name, ".csv") {
		return resultfmt.ReadCSV(bytes.NewReader(src.Data), src.Name)
	}
	return resultfmt.ParseReport(src.Data, src.TestType, src.Date, src.Meta, src.Name)
}
