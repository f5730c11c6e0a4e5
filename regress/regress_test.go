// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package regress

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResults = `{"lwt-fixed-100-partitions": [{"time": "2024-01-02 23:00:00 +0000", "changes": [{"metric": "opRate.read", "forward_change_percent": "-12"}, {"metric": "p99.write", "forward_change_percent": "8"}]}]}
{"lwt-rated-1000-partitions": [{"time": "2024-01-03 23:00:00 +0000", "changes": [{"metric": "opRate.read", "forward_change_percent": 4}]}]}
`

func TestReadResults(t *testing.T) {
	results, err := ReadResults(strings.NewReader(sampleResults))
	require.NoError(t, err)
	require.Len(t, results, 2)

	cps := results["lwt-fixed-100-partitions"]
	require.Len(t, cps, 1)
	assert.Equal(t, "2024-01-02 23:00:00 +0000", cps[0].Time)
	require.Len(t, cps[0].Changes, 2)
	assert.Equal(t, "opRate.read", cps[0].Changes[0].Metric)
	assert.Equal(t, -12.0, float64(cps[0].Changes[0].ForwardChangePercent))

	// Bare-number percentages parse too.
	assert.Equal(t, 4.0, float64(results["lwt-rated-1000-partitions"][0].Changes[0].ForwardChangePercent))
}

func TestReadResultsLastLineWins(t *testing.T) {
	in := `{"tt": [{"time": "t1", "changes": []}]}
{"tt": [{"time": "t2", "changes": []}]}
`
	results, err := ReadResults(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, results["tt"], 1)
	assert.Equal(t, "t2", results["tt"][0].Time)
}

func TestBad(t *testing.T) {
	results, err := ReadResults(strings.NewReader(sampleResults))
	require.NoError(t, err)

	commits := func(time string) map[string]string {
		return map[string]string{"commit": "abc", "fallout_tests_commit": "fff"}
	}
	bad := Bad(results, 5, commits)

	// Throughput down 12% and latency up 8% are regressions;
	// throughput up 4% is not.
	require.Len(t, bad, 2)
	assert.Contains(t, bad[0], "'opRate.read' changed by -12%")
	assert.Contains(t, bad[0], "cassandra commit 'abc'")
	assert.Contains(t, bad[0], "fallout-tests commit 'fff'")
	assert.Contains(t, bad[1], "'p99.write' changed by 8%")
}

func TestBadDirections(t *testing.T) {
	in := `{"tt": [{"time": "t", "changes": [
		{"metric": "opRate.read", "forward_change_percent": "20"},
		{"metric": "p99.read", "forward_change_percent": "-20"},
		{"metric": "p99.read", "forward_change_percent": "3"},
		{"metric": "opRate.write", "forward_change_percent": "-3"}
	]}]}` + "\n"
	results, err := ReadResults(strings.NewReader(in))
	require.NoError(t, err)

	// Throughput increases and latency decreases are
	// improvements; changes inside the threshold are noise.
	assert.Empty(t, Bad(results, 5, nil))
}

func TestFilterReported(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "reported.log")
	changes := []string{"change one\n", "change two\n"}

	fresh, err := FilterReported(changes, logPath)
	require.NoError(t, err)
	assert.Equal(t, changes, fresh)

	// Every reported change is now in the log.
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "change one\nchange two\n", string(data))

	// A second invocation with one old and one new change
	// reports only the new one.
	fresh, err = FilterReported([]string{"change two\n", "change three\n"}, logPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"change three\n"}, fresh)

	data, err = os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "change one\nchange two\nchange three\n", string(data))
}

func TestFilterReportedAllSeen(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "reported.log")
	require.NoError(t, os.WriteFile(logPath, []byte("change one\n"), 0o666))

	fresh, err := FilterReported([]string{"change one\n"}, logPath)
	require.NoError(t, err)
	assert.Empty(t, fresh)
}
