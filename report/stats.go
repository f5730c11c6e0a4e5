// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"math"
	"sort"

	"github.com/aclements/go-moremath/stats"

	"github.com/cassandra-perf/hunterfeed/resultseries"
)

// A MetricSummary describes the distribution of one metric across a
// table's run dates.
type MetricSummary struct {
	Metric string
	N      int

	Median float64
	// MAD is the median absolute deviation from the median.
	MAD float64
	// IQR is the interquartile range.
	IQR float64
}

// MetricSummaries computes per-metric sample statistics over t, in
// metric name order.
func MetricSummaries(t *resultseries.Table) []MetricSummary {
	byMetric := make(map[string][]float64)
	for i := range t.Rows {
		r := &t.Rows[i]
		byMetric[r.Metric] = append(byMetric[r.Metric], r.Value)
	}
	metrics := make([]string, 0, len(byMetric))
	for m := range byMetric {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	summaries := make([]MetricSummary, 0, len(metrics))
	for _, m := range metrics {
		xs := byMetric[m]
		sort.Float64s(xs)
		s := stats.Sample{Xs: xs, Sorted: true}
		median := s.Quantile(0.5)

		devs := make([]float64, len(xs))
		for i, x := range xs {
			devs[i] = math.Abs(x - median)
		}
		sort.Float64s(devs)
		ds := stats.Sample{Xs: devs, Sorted: true}

		summaries = append(summaries, MetricSummary{
			Metric: m,
			N:      len(xs),
			Median: median,
			MAD:    ds.Quantile(0.5),
			IQR:    s.IQR(),
		})
	}
	return summaries
}
