// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the hunterfeed configuration: the enumerated
// test types, the result store and artifact locations, and the
// default run mode. The test type set is data, not code; adding a
// test type is a configuration change only.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cassandra-perf/hunterfeed/resultfmt"
	"github.com/cassandra-perf/hunterfeed/resultseries"
)

// Config is the hunterfeed configuration file.
type Config struct {
	// Mode is the default aggregation mode, "retrospective" or
	// "prospective". The command line may override it.
	Mode string `yaml:"mode"`

	// NightlyResults locates the result store: a local directory,
	// or gs://bucket/prefix for a Cloud Storage mirror.
	NightlyResults string `yaml:"nightly_results"`

	// SHADir optionally locates the per-date test-definition
	// commit logs (local store only).
	SHADir string `yaml:"sha_dir"`

	// ArtifactDir is where per-test-type artifacts are published.
	ArtifactDir string `yaml:"artifact_dir"`

	// Ledger is an optional DSN for the invocation ledger, e.g.
	// "file:hunterfeed.db" (sqlite3) or a mysql DSN.
	Ledger string `yaml:"ledger"`

	// LedgerDriver selects the ledger's SQL driver. Defaults to
	// sqlite3.
	LedgerDriver string `yaml:"ledger_driver"`

	// TestTypes enumerates the performance scenarios, in report
	// order.
	TestTypes []resultfmt.TestType `yaml:"test_types"`

	// RunTime is the wall time at which nightly runs execute,
	// used when a run date is rendered as a timestamp.
	RunTime string `yaml:"run_time"`
}

// Default returns the configuration defaults applied before the file
// is read.
func Default() *Config {
	return &Config{
		Mode:         "prospective",
		LedgerDriver: "sqlite3",
		RunTime:      "23:00:00",
	}
}

// Load reads and validates the configuration at path. Unknown keys
// are rejected.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate checks the configuration for the mistakes a config file
// edit is likely to introduce.
func (c *Config) Validate() error {
	if _, err := resultseries.ParseMode(c.Mode); err != nil {
		return err
	}
	if c.NightlyResults == "" {
		return fmt.Errorf("nightly_results must be set")
	}
	if c.ArtifactDir == "" {
		return fmt.Errorf("artifact_dir must be set")
	}
	if len(c.TestTypes) == 0 {
		return fmt.Errorf("test_types must enumerate at least one test type")
	}
	seen := make(map[resultfmt.TestType]struct{})
	for _, tt := range c.TestTypes {
		if _, ok := seen[tt]; ok {
			return fmt.Errorf("test type %q listed twice", tt)
		}
		seen[tt] = struct{}{}
	}
	if _, err := time.Parse("15:04:05", c.RunTime); err != nil {
		return fmt.Errorf("invalid run_time %q: %w", c.RunTime, err)
	}
	return nil
}

// GCSLocation splits a gs://bucket/prefix store location. ok is false
// for local paths.
func GCSLocation(location string) (bucket, prefix string, ok bool) {
	rest, ok := strings.CutPrefix(location, "gs://")
	if !ok {
		return "", "", false
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	return bucket, prefix, true
}
