// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resultfmt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// A SchemaError reports that a result source did not have the shape
// required to extract measurements from it. Schema errors are
// recoverable at the source level: the loader skips the source and
// continues.
type SchemaError struct {
	Source string // file name or object path, purely diagnostic
	Msg    string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Source, e.Msg)
}

// metricRenames maps the measurement names found in performance
// reports to the short metric names used in emitted artifacts, in
// artifact order.
var metricRenames = []struct{ report, metric string }{
	{"Total Operations", "totalOps"},
	{"Op Rate", "opRate"},
	{"Min Latency", "minLat"},
	{"Avg Latency", "avgLat"},
	{"Median Latency", "medianLat"},
	{"95th Latency", "p95"},
	{"99th Latency", "p99"},
	{"99.9th Latency", "p99.9"},
	{"Max Latency", "maxLat"},
	{"Median Absolute Deviation", "MAD"},
	{"Interquartile Range", "IQR"},
}

// phases are the test phases extracted from each report, in artifact
// order. Each contributes a metric name suffix.
var phases = []string{"read", "write"}

// Metrics returns the full set of metric names a well-formed source
// can produce, in artifact order.
func Metrics() []string {
	var ms []string
	for _, phase := range phases {
		for _, mr := range metricRenames {
			ms = append(ms, mr.metric+"."+phase)
		}
	}
	return ms
}

// ThroughputMetric reports whether metric measures throughput, i.e.
// whether a decrease (rather than an increase) is a degradation.
func ThroughputMetric(metric string) bool {
	return strings.HasPrefix(metric, "totalOps") || strings.HasPrefix(metric, "opRate")
}

// reportFile is the on-disk shape of performance-report.json. Each
// stats entry is one sub-test result; the values are strings carrying
// unit suffixes, but some producers emit bare numbers, so entries are
// decoded loosely.
type reportFile struct {
	Stats []map[string]interface{} `json:"stats"`
}

// ParseReport extracts measurement rows from one performance report.
//
// Only stats entries whose test name contains "result-success" are
// considered, one per phase; if a phase appears more than once the
// later entry wins. Unit suffixes (" op/sec", " ms") are stripped
// before numeric parsing. Measurements beyond the known schema are
// ignored; a known measurement that fails to parse is skipped. A
// report that yields no rows at all is a *SchemaError.
//
// All returned rows share date, test type, and the metadata map.
func ParseReport(data []byte, testType TestType, date string, metadata map[string]string, source string) ([]Row, error) {
	var rf reportFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, &SchemaError{Source: source, Msg: fmt.Sprintf("parsing report: %v", err)}
	}
	if len(rf.Stats) == 0 {
		return nil, &SchemaError{Source: source, Msg: "report has no stats entries"}
	}

	var rows []Row
	for _, phase := range phases {
		entry := relevantEntry(rf.Stats, phase)
		if entry == nil {
			continue
		}
		for _, mr := range metricRenames {
			raw, ok := entry[mr.report]
			if !ok {
				continue
			}
			val, err := parseMeasurement(raw)
			if err != nil {
				continue
			}
			rows = append(rows, Row{
				Date:     date,
				TestType: testType,
				Metric:   mr.metric + "." + phase,
				Value:    val,
				Metadata: metadata,
			})
		}
	}
	if len(rows) == 0 {
		return nil, &SchemaError{Source: source, Msg: "no usable measurements in report"}
	}
	return rows, nil
}

// relevantEntry returns the last successful stats entry for phase, or
// nil if the report has none.
func relevantEntry(stats []map[string]interface{}, phase string) map[string]interface{} {
	var found map[string]interface{}
	for _, entry := range stats {
		name, _ := entry["test"].(string)
		if strings.Contains(name, "result-success") && strings.Contains(name, phase) {
			found = entry
		}
	}
	return found
}

// parseMeasurement converts a raw report value to a float64,
// stripping the unit suffixes the test harness appends.
func parseMeasurement(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case string:
		s := strings.TrimSuffix(v, " op/sec")
		s = strings.TrimSuffix(s, " ms")
		s = strings.TrimSpace(s)
		return strconv.ParseFloat(s, 64)
	default:
		return 0, fmt.Errorf("measurement has type %T", raw)
	}
}
