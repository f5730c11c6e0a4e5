// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resultfmt

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// fixedColumns is the artifact column order ahead of the metadata
// columns. The change-point detector expects exactly this shape.
var fixedColumns = []string{"run_date", "test_type", "metric_name", "metric_value"}

// WriteCSV serializes rows as one CSV artifact. Columns are the fixed
// columns followed by the union of metadata keys across rows, sorted;
// a row without a given metadata key gets an empty cell. Row order is
// preserved, so serializing the same ordered rows twice produces
// byte-identical output.
func WriteCSV(w io.Writer, rows []Row) error {
	metaKeys := metadataColumns(rows)

	cw := csv.NewWriter(w)
	header := append(append([]string(nil), fixedColumns...), metaKeys...)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, 0, len(header))
	for i := range rows {
		r := &rows[i]
		record = record[:0]
		record = append(record,
			r.Date,
			string(r.TestType),
			r.Metric,
			strconv.FormatFloat(r.Value, 'g', -1, 64),
		)
		for _, k := range metaKeys {
			record = append(record, r.Metadata[k])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// metadataColumns returns the sorted union of metadata keys.
func metadataColumns(rows []Row) []string {
	set := make(map[string]struct{})
	for i := range rows {
		for k := range rows[i].Metadata {
			set[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReadCSV parses rows from a CSV artifact, so that an emitted
// artifact can itself serve as a historical source. The fixed columns
// must all be present; any further columns become metadata. Column
// order beyond the header is not significant for re-parsing.
func ReadCSV(r io.Reader, source string) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, &SchemaError{Source: source, Msg: fmt.Sprintf("reading header: %v", err)}
	}
	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[name] = i
	}
	for _, name := range fixedColumns {
		if _, ok := colIdx[name]; !ok {
			return nil, &SchemaError{Source: source, Msg: fmt.Sprintf("missing required column %q", name)}
		}
	}
	var metaCols []string
	for _, name := range header {
		if name != "run_date" && name != "test_type" && name != "metric_name" && name != "metric_value" {
			metaCols = append(metaCols, name)
		}
	}

	// Records may be shorter than the header (a truncated
	// artifact); every fixed column must still be present.
	need := 0
	for _, name := range fixedColumns {
		if i := colIdx[name]; i >= need {
			need = i + 1
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &SchemaError{Source: source, Msg: fmt.Sprintf("line %d: %v", line, err)}
		}
		if len(record) < need {
			return nil, &SchemaError{Source: source, Msg: fmt.Sprintf("line %d: record has %d fields, need at least %d", line, len(record), need)}
		}
		date, err := NormalizeDate(record[colIdx["run_date"]])
		if err != nil {
			return nil, &SchemaError{Source: source, Msg: fmt.Sprintf("line %d: %v", line, err)}
		}
		val, err := strconv.ParseFloat(record[colIdx["metric_value"]], 64)
		if err != nil {
			return nil, &SchemaError{Source: source, Msg: fmt.Sprintf("line %d: parsing metric_value: %v", line, err)}
		}
		var meta map[string]string
		for _, k := range metaCols {
			i := colIdx[k]
			if i < len(record) && record[i] != "" {
				if meta == nil {
					meta = make(map[string]string)
				}
				meta[k] = record[i]
			}
		}
		rows = append(rows, Row{
			Date:     date,
			TestType: TestType(record[colIdx["test_type"]]),
			Metric:   record[colIdx["metric_name"]],
			Value:    val,
			Metadata: meta,
		})
	}
	if len(rows) == 0 {
		return nil, &SchemaError{Source: source, Msg: "artifact has no rows"}
	}
	return rows, nil
}
