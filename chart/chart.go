// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chart renders per-test-type metric series as line charts,
// one image per test type, for eyeballing a series alongside the
// detector's verdicts.
package chart

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cassandra-perf/hunterfeed/resultseries"
)

// palette cycles across metric lines.
var palette = []color.Color{
	color.RGBA{R: 0xd6, G: 0x28, B: 0x28, A: 0xff},
	color.RGBA{R: 0x28, G: 0x6e, B: 0xd6, A: 0xff},
	color.RGBA{R: 0x2e, G: 0x96, B: 0x3d, A: 0xff},
	color.RGBA{R: 0x8e, G: 0x44, B: 0xad, A: 0xff},
	color.RGBA{R: 0xd6, G: 0x87, B: 0x28, A: 0xff},
	color.RGBA{R: 0x12, G: 0x91, B: 0x8c, A: 0xff},
}

// Chart writes one chart per table into each of the non-empty
// directories, in the format the directory is for.
func Chart(tables []*resultseries.Table, pngDir, svgDir, pdfDir string, logScale bool) error {
	targets := []struct{ dir, ext string }{
		{pngDir, ".png"},
		{svgDir, ".svg"},
		{pdfDir, ".pdf"},
	}
	for _, tgt := range targets {
		if tgt.dir == "" {
			continue
		}
		if err := os.MkdirAll(tgt.dir, 0o777); err != nil {
			return err
		}
		for _, t := range tables {
			if err := chartOne(t, filepath.Join(tgt.dir, string(t.TestType)+tgt.ext), logScale); err != nil {
				return err
			}
		}
	}
	return nil
}

func chartOne(t *resultseries.Table, path string, logScale bool) error {
	dates := t.Dates()
	dateIdx := make(map[string]int, len(dates))
	for i, d := range dates {
		dateIdx[d] = i
	}

	byMetric := make(map[string]plotter.XYs)
	for i := range t.Rows {
		r := &t.Rows[i]
		byMetric[r.Metric] = append(byMetric[r.Metric], plotter.XY{
			X: float64(dateIdx[r.Date]),
			Y: r.Value,
		})
	}
	metrics := make([]string, 0, len(byMetric))
	for m := range byMetric {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	pl := plot.New()
	pl.Title.Text = string(t.TestType)
	pl.X.Label.Text = "run date"
	pl.NominalX(dates...)
	if logScale {
		pl.Y.Scale = plot.LogScale{}
		pl.Y.Tick.Marker = plot.LogTicks{}
	}

	for i, m := range metrics {
		line, err := plotter.NewLine(byMetric[m])
		if err != nil {
			return fmt.Errorf("charting %s metric %s: %w", t.TestType, m, err)
		}
		line.Color = palette[i%len(palette)]
		pl.Add(line)
		pl.Legend.Add(m, line)
	}
	pl.Legend.Top = true

	return pl.Save(12*vg.Inch, 8*vg.Inch, path)
}
