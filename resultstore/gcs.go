// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resultstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/cassandra-perf/hunterfeed/resultfmt"
)

// GCS is a Store reading a nightly-results tree mirrored into a
// Google Cloud Storage bucket. The object layout matches the
// filesystem layout: <prefix>/<YYYY_MM_DD>/<test-type>/.../
// performance-report.json.
//
// Only the harness log sidecar is mirrored into the bucket, so GCS
// sources carry at most the "commit" metadata entry; the
// fallout_tests_commit column appears only with a local store and a
// configured sha_dir.
type GCS struct {
	bucket     *storage.BucketHandle
	bucketName string
	prefix     string
}

// NewGCS constructs a GCS store for bucket. prefix may be empty when
// date directories live at the bucket root. opts are passed through
// to the storage client, e.g. option.WithCredentialsFile or
// option.WithTokenSource.
func NewGCS(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &GCS{
		bucket:     client.Bucket(bucket),
		bucketName: bucket,
		prefix:     strings.Trim(prefix, "/"),
	}, nil
}

// Dates implements Store.
func (s *GCS) Dates(ctx context.Context) ([]string, error) {
	q := &storage.Query{Delimiter: "/"}
	if s.prefix != "" {
		q.Prefix = s.prefix + "/"
	}
	it := s.bucket.Objects(ctx, q)
	var dates []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing result store gs://%s/%s: %w", s.bucketName, s.prefix, err)
		}
		if attrs.Prefix == "" {
			continue
		}
		name := path.Base(strings.TrimSuffix(attrs.Prefix, "/"))
		if !dateDir.MatchString(name) {
			continue
		}
		date, err := resultfmt.NormalizeDate(name)
		if err != nil {
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

// Source implements Store.
func (s *GCS) Source(ctx context.Context, testType resultfmt.TestType, date string) (*Source, error) {
	root := path.Join(s.prefix, dateDirName(date), string(testType))
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: root + "/"})

	var reportName, logName string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		switch {
		case strings.HasSuffix(attrs.Name, "/"+reportFileName):
			if reportName == "" {
				reportName = attrs.Name
			}
		case strings.HasSuffix(attrs.Name, "/"+harnessLogName):
			if logName == "" {
				logName = attrs.Name
			}
		}
	}
	if reportName == "" {
		return nil, ErrNoSource
	}

	data, err := s.readObject(ctx, reportName)
	if err != nil {
		return nil, err
	}
	src := &Source{
		TestType: testType,
		Date:     date,
		Name:     reportName,
		Data:     data,
	}
	if logName != "" {
		if content, err := s.readObject(ctx, logName); err == nil {
			if sha := commitFromLog(string(content)); sha != "" {
				src.Meta = map[string]string{"commit": sha}
			}
		}
	}
	return src, nil
}

func (s *GCS) readObject(ctx context.Context, name string) ([]byte, error) {
	r, err := s.bucket.Object(name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}
