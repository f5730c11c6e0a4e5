// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	// Ledger SQL drivers.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/cassandra-perf/hunterfeed/artifact"
	"github.com/cassandra-perf/hunterfeed/chart"
	"github.com/cassandra-perf/hunterfeed/config"
	"github.com/cassandra-perf/hunterfeed/ledger"
	"github.com/cassandra-perf/hunterfeed/report"
	"github.com/cassandra-perf/hunterfeed/resultfmt"
	"github.com/cassandra-perf/hunterfeed/resultseries"
	"github.com/cassandra-perf/hunterfeed/resultstore"
)

type aggregateFlags struct {
	ConfigPath string
	Mode       string
	RunDate    string

	HTMLSummary string
	PrintStats  bool

	ChartPNGDir   string
	ChartSVGDir   string
	ChartPDFDir   string
	ChartLogScale bool

	Auth resultstore.GoogleAuthFlags
}

func (f *aggregateFlags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.ConfigPath, "config", f.ConfigPath, "path to the hunterfeed configuration file")
	fs.StringVar(&f.Mode, "mode", f.Mode, "aggregation mode, overriding the configured one: retrospective or prospective")
	fs.StringVar(&f.RunDate, "run-date", f.RunDate, "date of the current run (YYYY-MM-DD); defaults to today in UTC")
	fs.StringVar(&f.HTMLSummary, "html-summary", f.HTMLSummary, "also write an HTML invocation summary to this file")
	fs.BoolVar(&f.PrintStats, "stats", f.PrintStats, "print per-metric dispersion statistics for each emitted artifact")
	fs.StringVar(&f.ChartPNGDir, "chart-png-dir", f.ChartPNGDir, "also render a PNG chart per test type into this directory")
	fs.StringVar(&f.ChartSVGDir, "chart-svg-dir", f.ChartSVGDir, "also render an SVG chart per test type into this directory")
	fs.StringVar(&f.ChartPDFDir, "chart-pdf-dir", f.ChartPDFDir, "also render a PDF chart per test type into this directory")
	fs.BoolVar(&f.ChartLogScale, "chart-log-scale", f.ChartLogScale, "use a log scale for chart Y axes")
	f.Auth.BindFlags(fs)
}

func (f *aggregateFlags) Validate() error {
	if f.ConfigPath == "" {
		return fmt.Errorf("--config is required")
	}
	return f.Auth.Validate()
}

type aggregateOptions struct {
	cfg     *config.Config
	mode    resultseries.Mode
	runDate string
	store   resultstore.Store
	ledger  *ledger.DB
	flags   *aggregateFlags
	log     logrus.FieldLogger
}

func (f *aggregateFlags) ToOptions(ctx context.Context, log logrus.FieldLogger) (*aggregateOptions, error) {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return nil, err
	}

	modeName := cfg.Mode
	if f.Mode != "" {
		modeName = f.Mode
	}
	mode, err := resultseries.ParseMode(modeName)
	if err != nil {
		return nil, err
	}

	runDate := f.RunDate
	if runDate == "" {
		runDate = time.Now().UTC().Format("2006-01-02")
	}
	runDate, err = resultfmt.NormalizeDate(runDate)
	if err != nil {
		return nil, err
	}

	o := &aggregateOptions{cfg: cfg, mode: mode, runDate: runDate, flags: f, log: log}

	if bucket, prefix, ok := config.GCSLocation(cfg.NightlyResults); ok {
		opts, err := f.Auth.StorageOptions(ctx)
		if err != nil {
			return nil, err
		}
		o.store, err = resultstore.NewGCS(ctx, bucket, prefix, opts...)
		if err != nil {
			return nil, err
		}
	} else {
		fsStore := resultstore.NewFS(cfg.NightlyResults)
		fsStore.SHADir = cfg.SHADir
		o.store = fsStore
	}

	if cfg.Ledger != "" {
		o.ledger, err = ledger.OpenSQL(cfg.LedgerDriver, cfg.Ledger)
		if err != nil {
			return nil, fmt.Errorf("opening ledger: %w", err)
		}
	}
	return o, nil
}

func newAggregateCommand(ctx context.Context) *cobra.Command {
	flags := &aggregateFlags{}
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Merge historical results with the current run into per-test-type CSV artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logrus.WithField("command", "aggregate")
			if err := flags.Validate(); err != nil {
				return err
			}
			o, err := flags.ToOptions(ctx, log)
			if err != nil {
				return err
			}
			return o.Run(ctx)
		},
	}
	flags.BindFlags(cmd.Flags())
	return cmd
}

func (o *aggregateOptions) Run(ctx context.Context) error {
	start := time.Now().UTC()
	if o.ledger != nil {
		defer o.ledger.Close()
	}

	loader := resultseries.NewLoader(o.store, o.log)
	agg := resultseries.NewAggregator(loader, o.log)

	rc := resultseries.RunContext{Mode: o.mode}
	if o.mode == resultseries.Prospective {
		rc.RunDate = o.runDate
		rc.Current = &resultseries.StoreCurrentRun{Loader: loader, RunDate: o.runDate}
	}

	tables, failures := agg.AggregateAll(ctx, o.cfg.TestTypes, rc)

	var invocation int64
	if o.ledger != nil {
		var err error
		invocation, err = o.ledger.RecordInvocation(ctx, o.mode.String(), o.runDate, start.Format(time.RFC3339))
		if err != nil {
			o.log.WithError(err).Warn("recording invocation in ledger")
			o.ledger = nil
		}
	}

	publisher := &artifact.Publisher{Dir: o.cfg.ArtifactDir, RunTime: o.cfg.RunTime}
	summary := &report.Summary{Mode: o.mode.String(), RunDate: o.runDate}
	var emitted []*resultseries.Table
	for _, tt := range o.cfg.TestTypes {
		out := report.Outcome{TestType: tt}
		if err, ok := failures[tt]; ok {
			out.Status = resultseries.StatusFailed
			out.Err = err
			o.log.WithField("testType", tt).WithError(err).Error("aggregation failed")
		} else {
			t := tables[tt]
			path, err := publisher.Publish(t)
			if err != nil {
				out.Status = resultseries.StatusFailed
				out.Err = err
				o.log.WithField("testType", tt).WithError(err).Error("publishing artifact failed")
			} else {
				out.Status = resultseries.StatusEmitted
				out.Artifact = path
				out.Rows = len(t.Rows)
				emitted = append(emitted, t)
				o.log.WithField("testType", tt).WithField("rows", out.Rows).Info("emitted artifact")
			}
		}
		summary.Outcomes = append(summary.Outcomes, out)
		if o.ledger != nil {
			err := o.ledger.RecordOutcome(ctx, invocation, string(tt), out.Status.String(), out.Rows, out.Artifact, out.Reason())
			if err != nil {
				o.log.WithError(err).Warn("recording outcome in ledger")
			}
		}
	}

	if err := chart.Chart(emitted, o.flags.ChartPNGDir, o.flags.ChartSVGDir, o.flags.ChartPDFDir, o.flags.ChartLogScale); err != nil {
		// Charts are a side product; a chart failure does not
		// invalidate the emitted artifacts.
		o.log.WithError(err).Warn("rendering charts")
	}

	if err := summary.WriteText(os.Stdout); err != nil {
		return err
	}
	if o.flags.PrintStats {
		printStats(emitted)
	}
	if o.flags.HTMLSummary != "" {
		if err := writeHTMLSummary(summary, o.flags.HTMLSummary); err != nil {
			o.log.WithError(err).Warn("writing HTML summary")
		}
	}

	if summary.Emitted() == 0 {
		return fmt.Errorf("no artifacts emitted")
	}
	return nil
}

func printStats(tables []*resultseries.Table) {
	for _, t := range tables {
		fmt.Printf("%s:\n", t.TestType)
		for _, ms := range report.MetricSummaries(t) {
			fmt.Printf("\t%s: n=%d median=%g mad=%g iqr=%g\n", ms.Metric, ms.N, ms.Median, ms.MAD, ms.IQR)
		}
	}
}

func writeHTMLSummary(s *report.Summary, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.WriteHTML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
