// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resultseries

import (
	"context"
	"fmt"
	"io"
	"sort"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cassandra-perf/hunterfeed/resultfmt"
	"github.com/cassandra-perf/hunterfeed/resultstore"
)

// fakeStore serves sources from memory, keyed by test type and date.
type fakeStore struct {
	sources map[string]*resultstore.Source
	errs    map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sources: make(map[string]*resultstore.Source),
		errs:    make(map[string]error),
	}
}

func key(tt resultfmt.TestType, date string) string { return string(tt) + "/" + date }

func (s *fakeStore) addReport(tt resultfmt.TestType, date, opRate string) {
	data := fmt.Sprintf(`{"stats": [{"test": "%s-result-success-read", "Op Rate": "%s op/sec"}]}`, tt, opRate)
	s.sources[key(tt, date)] = &resultstore.Source{
		TestType: tt,
		Date:     date,
		Name:     "performance-report.json",
		Data:     []byte(data),
	}
}

func (s *fakeStore) addRaw(tt resultfmt.TestType, date, name string, data []byte) {
	s.sources[key(tt, date)] = &resultstore.Source{TestType: tt, Date: date, Name: name, Data: data}
}

func (s *fakeStore) Dates(ctx context.Context) ([]string, error) {
	set := make(map[string]struct{})
	for k := range s.sources {
		set[k[len(k)-10:]] = struct{}{}
	}
	for k := range s.errs {
		set[k[len(k)-10:]] = struct{}{}
	}
	var dates []string
	for d := range set {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates, nil
}

func (s *fakeStore) Source(ctx context.Context, tt resultfmt.TestType, date string) (*resultstore.Source, error) {
	if err, ok := s.errs[key(tt, date)]; ok {
		return nil, err
	}
	if src, ok := s.sources[key(tt, date)]; ok {
		return src, nil
	}
	return nil, resultstore.ErrNoSource
}

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestLoadHistory(t *testing.T) {
	store := newFakeStore()
	store.addReport("tt", "2024-01-01", "1400")
	store.addReport("tt", "2024-01-02", "1500")
	store.addReport("tt", "2024-01-03", "1450")

	loader := NewLoader(store, testLogger())
	tab, err := loader.LoadHistory(context.Background(), "tt", "")
	require.NoError(t, err)
	require.Len(t, tab.Rows, 3)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, tab.Dates())
}

func TestLoadHistorySkipsBadSources(t *testing.T) {
	store := newFakeStore()
	store.addReport("tt", "2024-01-01", "1400")
	store.addRaw("tt", "2024-01-02", "performance-report.json", []byte("not json"))
	store.errs[key("tt", "2024-01-03")] = fmt.Errorf("i/o error")
	// 2024-01-04 has no source at all for tt.
	store.addReport("other", "2024-01-04", "99")
	store.addReport("tt", "2024-01-05", "1500")

	loader := NewLoader(store, testLogger())
	tab, err := loader.LoadHistory(context.Background(), "tt", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-05"}, tab.Dates())
}

func TestLoadHistoryExcludesDate(t *testing.T) {
	store := newFakeStore()
	store.addReport("tt", "2024-01-01", "1400")
	store.addReport("tt", "2024-01-02", "1500")
	store.addReport("tt", "2024-01-03", "1450")

	loader := NewLoader(store, testLogger())
	tab, err := loader.LoadHistory(context.Background(), "tt", "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-03"}, tab.Dates())
}

func TestLoadHistoryDuplicateFails(t *testing.T) {
	// Two dates whose sources both claim the same run date.
	store := newFakeStore()
	store.addReport("tt", "2024-01-01", "1400")
	csv := "run_date,test_type,metric_name,metric_value\n2024-01-01,tt,opRate.read,1500\n"
	store.addRaw("tt", "2024-01-02", "hunter-tt.csv", []byte(csv))

	loader := NewLoader(store, testLogger())
	_, err := loader.LoadHistory(context.Background(), "tt", "")
	var dup *DuplicateRowError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "2024-01-01", dup.Date)
}

func TestParseSourceDispatch(t *testing.T) {
	csvSrc := &resultstore.Source{
		TestType: "tt",
		Date:     "2024-01-01",
		Name:     "hunter-tt.csv",
		Data:     []byte("run_date,test_type,metric_name,metric_value\n2024-01-01,tt,opRate.read,1500\n"),
	}
	rows, err := ParseSource(csvSrc)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1500.0, rows[0].Value)

	jsonSrc := &resultstore.Source{
		TestType: "tt",
		Date:     "2024-01-01",
		Name:     "performance-report.json",
		Data:     []byte(`{"stats": [{"test": "tt-result-success-read", "Op Rate": "1500 op/sec"}]}`),
	}
	rows, err = ParseSource(jsonSrc)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "opRate.read", rows[0].Metric)
}
