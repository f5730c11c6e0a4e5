// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Hunterfeed prepares Cassandra nightly performance results for
// change-point detection. The aggregate subcommand merges historical
// results with the latest run into per-test-type CSV artifacts; the
// regressions subcommand turns detected change points into a
// regression report.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := &cobra.Command{
		Use:           "hunterfeed",
		Short:         "Prepare Cassandra nightly performance results for change-point detection",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAggregateCommand(ctx))
	root.AddCommand(newRegressionsCommand(ctx))

	if err := root.Execute(); err != nil {
		logrus.WithError(err).Fatal("command failed")
	}
}
