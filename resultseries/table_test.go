// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resultseries

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cassandra-perf/hunterfeed/resultfmt"
)

func row(date, metric string, value float64) resultfmt.Row {
	return resultfmt.Row{Date: date, TestType: "lwt-fixed-100-partitions", Metric: metric, Value: value}
}

func TestNewTableSorts(t *testing.T) {
	tab := NewTable("lwt-fixed-100-partitions", []resultfmt.Row{
		row("2024-01-03", "avgLat.read", 13.1),
		row("2024-01-01", "avgLat.read", 12.3),
		row("2024-01-02", "opRate.read", 1500),
		row("2024-01-02", "avgLat.read", 11.8),
	})
	require.NoError(t, tab.Validate())

	var got []string
	for _, r := range tab.Rows {
		got = append(got, r.Date+" "+r.Metric)
	}
	assert.Equal(t, []string{
		"2024-01-01 avgLat.read",
		"2024-01-02 avgLat.read",
		"2024-01-02 opRate.read",
		"2024-01-03 avgLat.read",
	}, got)

	assert.Equal(t, "2024-01-03", tab.MaxDate())
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, tab.Dates())
}

func TestValidateDuplicate(t *testing.T) {
	tab := NewTable("lwt-fixed-100-partitions", []resultfmt.Row{
		row("2024-01-01", "avgLat.read", 12.3),
		row("2024-01-02", "avgLat.read", 11.8),
		row("2024-01-02", "avgLat.read", 11.9),
	})
	err := tab.Validate()
	var dup *DuplicateRowError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "2024-01-02", dup.Date)
	assert.Equal(t, "avgLat.read", dup.Metric)
}

func TestEmptyTable(t *testing.T) {
	tab := NewTable("lwt-fixed-100-partitions", nil)
	require.NoError(t, tab.Validate())
	assert.Equal(t, "", tab.MaxDate())
	assert.Empty(t, tab.Dates())
}

func TestTableWriteCSV(t *testing.T) {
	tab := NewTable("lwt-fixed-100-partitions", []resultfmt.Row{
		row("2024-01-02", "opRate.read", 1500),
		row("2024-01-01", "opRate.read", 1400),
	})
	var buf bytes.Buffer
	require.NoError(t, tab.WriteCSV(&buf))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "run_date,test_type,metric_name,metric_value", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2024-01-01,"))
	assert.True(t, strings.HasPrefix(lines[2], "2024-01-02,"))
}
