// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cassandra-perf/hunterfeed/config"
	"github.com/cassandra-perf/hunterfeed/regress"
	"github.com/cassandra-perf/hunterfeed/resultstore"
)

type regressionsFlags struct {
	ConfigPath  string
	ResultsPath string
	Threshold   float64
	ReportedLog string
	OutputPath  string
}

func (f *regressionsFlags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.ConfigPath, "config", f.ConfigPath, "path to the hunterfeed configuration file; enables commit lookups for detected changes")
	fs.StringVar(&f.ResultsPath, "results", f.ResultsPath, "path to the change-point detector's JSON output, or - for stdin")
	fs.Float64Var(&f.Threshold, "threshold", 5, "change percentage below which a change is not considered a regression")
	fs.StringVar(&f.ReportedLog, "reported-log", f.ReportedLog, "log of already reported changes; fresh ones are appended so each is reported once")
	fs.StringVar(&f.OutputPath, "output", f.OutputPath, "write the regression report here instead of stdout")
}

func (f *regressionsFlags) Validate() error {
	if f.ResultsPath == "" {
		return fmt.Errorf("--results is required")
	}
	if f.Threshold < 0 {
		return fmt.Errorf("--threshold must not be negative")
	}
	return nil
}

type regressionsOptions struct {
	flags   *regressionsFlags
	commits func(time string) map[string]string
	log     logrus.FieldLogger
}

func (f *regressionsFlags) ToOptions(ctx context.Context, log logrus.FieldLogger) (*regressionsOptions, error) {
	o := &regressionsOptions{flags: f, log: log}
	if f.ConfigPath == "" {
		return o, nil
	}
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return nil, err
	}
	if _, _, ok := config.GCSLocation(cfg.NightlyResults); ok {
		// Commit lookups walk sidecar logs per date, which is
		// too chatty against object storage for a report that
		// only decorates its text. Skip them.
		log.Info("commit lookups are unavailable for a gs:// result store")
		return o, nil
	}
	fsStore := resultstore.NewFS(cfg.NightlyResults)
	fsStore.SHADir = cfg.SHADir
	o.commits = func(time string) map[string]string {
		date, _, _ := strings.Cut(time, " ")
		return fsStore.RunMetadata(date)
	}
	return o, nil
}

func newRegressionsCommand(ctx context.Context) *cobra.Command {
	flags := &regressionsFlags{}
	cmd := &cobra.Command{
		Use:   "regressions",
		Short: "Turn detected change points into a report of fresh regressions",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logrus.WithField("command", "regressions")
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

func (o *regressionsOptions) Run(ctx context.Context) error {
	var in io.Reader = os.Stdin
	if o.flags.ResultsPath != "-" {
		f, err := os.Open(o.flags.ResultsPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	results, err := regress.ReadResults(in)
	if err != nil {
		return err
	}

	bad := regress.Bad(results, o.flags.Threshold, o.commits)
	if o.flags.ReportedLog != "" {
		bad, err = regress.FilterReported(bad, o.flags.ReportedLog)
		if err != nil {
			return err
		}
	}
	if len(bad) == 0 {
		o.log.Info("no fresh regressions")
		return nil
	}

	out := os.Stdout
	if o.flags.OutputPath != "" {
		f, err := os.Create(o.flags.OutputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	for _, ch := range bad {
		if _, err := io.WriteString(out, ch); err != nil {
			return err
		}
	}
	o.log.WithField("count", len(bad)).Info("reported regressions")
	return nil
}
