// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ledger records aggregation invocations and their
// per-test-type outcomes in a SQL database. The ledger is optional
// bookkeeping: it answers "when did this test type last emit an
// artifact" without re-reading the result store.
package ledger

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"text/template"
)

// DB is a handle to the invocation ledger. It is safe for concurrent
// use by multiple goroutines.
type DB struct {
	sql *sql.DB
	// prepared statements
	insertInvocation *sql.Stmt
	insertOutcome    *sql.Stmt
}

// OpenSQL opens a ledger backed by a SQL database. The parameters are
// the same as for sql.Open. Only sqlite3 and mysql are explicitly
// supported; other drivers receive MySQL syntax, which may or may not
// be compatible.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		return nil, err
	}
	if err := d.prepareStatements(driverName); err != nil {
		return nil, err
	}
	return d, nil
}

// createTmpl is the template used to prepare the CREATE statements
// for the ledger. It is evaluated with . as a map containing one
// entry whose key is the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Invocations (
	InvocationID {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY{{end}},
	Mode VARCHAR(16),
	RunDate VARCHAR(10),
	StartTime VARCHAR(32)
);
CREATE TABLE IF NOT EXISTS Outcomes (
	InvocationID BIGINT UNSIGNED,
	TestType VARCHAR(255),
	Status VARCHAR(16),
	RowCount INT,
	Artifact VARCHAR(4096),
	Reason VARCHAR(4096),
	FOREIGN KEY (InvocationID) REFERENCES Invocations(InvocationID) ON UPDATE CASCADE ON DELETE CASCADE
);
{{if .sqlite3}}
CREATE INDEX IF NOT EXISTS OutcomesTestType ON Outcomes(TestType, InvocationID);
{{end}}
`))

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

// prepareStatements calls db.sql.Prepare on reusable SQL statements.
func (db *DB) prepareStatements(driverName string) error {
	var err error
	db.insertInvocation, err = db.sql.Prepare("INSERT INTO Invocations(Mode, RunDate, StartTime) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	db.insertOutcome, err = db.sql.Prepare("INSERT INTO Outcomes(InvocationID, TestType, Status, RowCount, Artifact, Reason) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	return nil
}

// RecordInvocation records the start of one aggregation invocation
// and returns its ID for outcome rows.
func (db *DB) RecordInvocation(ctx context.Context, mode, runDate, startTime string) (int64, error) {
	res, err := db.insertInvocation.ExecContext(ctx, mode, runDate, startTime)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecordOutcome records the terminal state of one test type within an
// invocation. status is "emitted" or "failed"; artifact and reason
// are each meaningful for only one of the two.
func (db *DB) RecordOutcome(ctx context.Context, invocation int64, testType, status string, rowCount int, artifact, reason string) error {
	_, err := db.insertOutcome.ExecContext(ctx, invocation, testType, status, rowCount, artifact, reason)
	return err
}

// LastEmitted returns the most recent run date and artifact path
// recorded for testType, or ok=false if the ledger has no emitted
// outcome for it.
func (db *DB) LastEmitted(ctx context.Context, testType string) (runDate, artifact string, ok bool, err error) {
	row := db.sql.QueryRowContext(ctx, `
SELECT i.RunDate, o.Artifact
FROM Outcomes o JOIN Invocations i ON o.InvocationID = i.InvocationID
WHERE o.TestType = ? AND o.Status = 'emitted'
ORDER BY o.InvocationID DESC LIMIT 1`, testType)
	switch err := row.Scan(&runDate, &artifact); err {
	case nil:
		return runDate, artifact, true, nil
	case sql.ErrNoRows:
		return "", "", false, nil
	default:
		return "", "", false, err
	}
}

// Close closes the database connections, releasing any open
// resources.
func (db *DB) Close() error {
	for _, stmt := range []*sql.Stmt{db.insertInvocation, db.insertOutcome} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return db.sql.Close()
}
