// Copyright 2023 The hunterfeed Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report renders the outcome of one aggregation invocation:
// which test types emitted artifacts and where, which failed and why.
// The plain-text form goes to the operator's terminal and logs; the
// HTML form is the body handed to the external mail delivery.
package report

import (
	"fmt"
	"io"

	"github.com/google/safehtml/template"

	"github.com/cassandra-perf/hunterfeed/resultfmt"
	"github.com/cassandra-perf/hunterfeed/resultseries"
)

// An Outcome is the terminal state of one test type.
type Outcome struct {
	TestType resultfmt.TestType
	Status   resultseries.Status
	Artifact string // artifact path, when emitted
	Rows     int    // rows in the emitted table
	Err      error  // failure reason, when failed
}

// Reason returns the failure reason, or "" for a successful outcome.
func (o *Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// A Summary is the outcome of one invocation across all configured
// test types. Outcomes appear in configuration order.
type Summary struct {
	Mode     string
	RunDate  string
	Outcomes []Outcome
}

// Emitted returns the number of test types that produced an artifact.
func (s *Summary) Emitted() int {
	n := 0
	for i := range s.Outcomes {
		if s.Outcomes[i].Status == resultseries.StatusEmitted {
			n++
		}
	}
	return n
}

// Failed returns the number of test types that failed.
func (s *Summary) Failed() int {
	return len(s.Outcomes) - s.Emitted()
}

// WriteText renders the summary in plain text.
func (s *Summary) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s aggregation: %d emitted, %d failed\n", s.Mode, s.Emitted(), s.Failed()); err != nil {
		return err
	}
	for i := range s.Outcomes {
		o := &s.Outcomes[i]
		var err error
		if o.Status == resultseries.StatusEmitted {
			_, err = fmt.Fprintf(w, "  %s: %d rows -> %s\n", o.TestType, o.Rows, o.Artifact)
		} else {
			_, err = fmt.Fprintf(w, "  %s: FAILED: %s\n", o.TestType, o.Reason())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

var htmlTmpl = template.Must(template.New("summary").Parse(template.MakeTrustedTemplate(`
<h2>{{.Mode}} aggregation{{if .RunDate}} for {{.RunDate}}{{end}}</h2>
<p>{{.Emitted}} test type(s) emitted an artifact, {{.Failed}} failed.</p>
<table>
  <tr><th>test type</th><th>status</th><th>detail</th></tr>
  {{range .Outcomes}}
  <tr>
    <td>{{.TestType}}</td>
    <td>{{.Status}}</td>
    <td>{{if .Err}}{{.Reason}}{{else}}{{.Rows}} rows in {{.Artifact}}{{end}}</td>
  </tr>
  {{end}}
</table>
`)))

// WriteHTML renders the summary as a contextually escaped HTML
// fragment.
func (s *Summary) WriteHTML(w io.Writer) error {
	return htmlTmpl.Execute(w, s)
}
