// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chart

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cassandra-perf/hunterfeed/resultfmt"
	"github.com/cassandra-perf/hunterfeed/resultseries"
)

func sampleTable() *resultseries.Table {
	return resultseries.NewTable("lwt-fixed-100-partitions", []resultfmt.Row{
		{Date: "2024-01-01", Metric: "opRate.read", Value: 1400},
		{Date: "2024-01-02", Metric: "opRate.read", Value: 1500},
		{Date: "2024-01-03", Metric: "opRate.read", Value: 1450},
		{Date: "2024-01-01", Metric: "p99.read", Value: 44},
		{Date: "2024-01-02", Metric: "p99.read", Value: 41},
		{Date: "2024-01-03", Metric: "p99.read", Value: 47},
	})
}

func TestChart(t *testing.T) {
	pngDir := filepath.Join(t.TempDir(), "png")
	svgDir := filepath.Join(t.TempDir(), "svg")

	err := Chart([]*resultseries.Table{sampleTable()}, pngDir, svgDir, "", false)
	require.NoError(t, err)

	for _, path := range []string{
		filepath.Join(pngDir, "lwt-fixed-100-partitions.png"),
		filepath.Join(svgDir, "lwt-fixed-100-partitions.svg"),
	} {
		info, err := os.Stat(path)
		require.NoError(t, err, path)
		assert.NotZero(t, info.Size(), path)
	}
}

func TestChartNoDirs(t *testing.T) {
	assert.NoError(t, Chart([]*resultseries.Table{sampleTable()}, "", "", "", false))
}
