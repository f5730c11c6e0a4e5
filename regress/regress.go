// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regress interprets the change-point detector's output:
// it selects the changes that are degradations beyond a threshold,
// formats them for the regression report, and suppresses changes that
// were already reported by an earlier invocation. Composing and
// delivering the report (email) is outside this package.
package regress

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/cassandra-perf/hunterfeed/resultfmt"
)

// A Change is one metric shift at a change point.
type Change struct {
	Metric               string  `json:"metric"`
	ForwardChangePercent percent `json:"forward_change_percent"`
}

// percent tolerates both string and numeric encodings; the detector
// has emitted both over time.
type percent float64

func (p *percent) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n = json.Number(s)
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return err
	}
	*p = percent(f)
	return nil
}

// A ChangePoint is the set of metric shifts the detector found at one
// run time.
type ChangePoint struct {
	Time    string   `json:"time"`
	Changes []Change `json:"changes"`
}

// Results maps a test type to its change points.
type Results map[string][]ChangePoint

// ReadResults reads a detector results file: one JSON object per
// line, of which the last reflects the detector's current view.
func ReadResults(r io.Reader) (Results, error) {
	var last Results
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, 16<<20)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rs Results
		if err := json.Unmarshal(sc.Bytes(), &rs); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		last = rs
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if last == nil {
		return nil, fmt.Errorf("results file has no entries")
	}
	return last, nil
}

// Bad returns the formatted degradations in results beyond the
// threshold percentage, in a stable order. Throughput metrics degrade
// downward; every other metric (latencies and spread measures)
// degrades upward.
//
// commits optionally supplies commit context for a run time; it may
// be nil.
func Bad(results Results, threshold float64, commits func(time string) map[string]string) []string {
	testTypes := make([]string, 0, len(results))
	for tt := range results {
		testTypes = append(testTypes, tt)
	}
	sort.Strings(testTypes)

	var bad []string
	for _, tt := range testTypes {
		for _, cp := range results[tt] {
			var meta map[string]string
			if commits != nil {
				meta = commits(cp.Time)
			}
			for _, ch := range cp.Changes {
				fcp := float64(ch.ForwardChangePercent)
				if resultfmt.ThroughputMetric(ch.Metric) {
					if fcp >= -threshold {
						continue
					}
				} else if fcp <= threshold {
					continue
				}
				bad = append(bad, formatChange(tt, cp.Time, ch.Metric, fcp, meta))
			}
		}
	}
	return bad
}

func formatChange(testType, time, metric string, fcp float64, meta map[string]string) string {
	return fmt.Sprintf("For the test '%s' on date and time '%s' that ran on cassandra commit '%s' and on fallout-tests commit '%s': the metric '%s' changed by %g%%.\n",
		testType, time, meta["commit"], meta["fallout_tests_commit"], metric, fcp)
}

// FilterReported removes the changes already present in the
// reported-changes log at logPath and appends the remainder to it, so
// a regression is reported exactly once across invocations. A missing
// log counts as empty.
func FilterReported(changes []string, logPath string) ([]string, error) {
	seen := make(map[string]struct{})
	if f, err := os.Open(logPath); err == nil {
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			seen[sc.Text()+"\n"] = struct{}{}
		}
		f.Close()
		if err := sc.Err(); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	var fresh []string
	for _, ch := range changes {
		if _, ok := seen[ch]; ok {
			continue
		}
		fresh = append(fresh, ch)
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	for _, ch := range fresh {
		if _, err := io.WriteString(f, ch); err != nil {
			return nil, err
		}
	}
	return fresh, nil
}
