/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/classify"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/clean"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/ingest"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/table"
)

const (
	headRows = 10
	tailRows = 5
)

// Inspection summarizes the structure of a file without assembling a document.
type Inspection struct {
	Path       string
	Detection  ingest.Detection
	Provenance ingest.Provenance
	Cleaning   clean.Report
	Columns    []string
	Profiles   []classify.ColumnProfile
	Head       []table.Row
	Tail       []table.Row
}

// Inspect loads and cleans path and returns its profiles with the first and last rows.
func (s *Service) Inspect(ctx context.Context, path string) (*Inspection, error) {
	p, err := s.prepare(ctx, path)
	if err != nil {
		return nil, err
	}
	rows := p.cleaned.Rows
	head := rows[:min(headRows, len(rows))]
	tail := rows[max(0, len(rows)-tailRows):]
	return &Inspection{
		Path:       path,
		Detection:  p.detection,
		Provenance: p.load.Provenance,
		Cleaning:   p.cleaning,
		Columns:    append([]string{}, p.cleaned.Columns...),
		Profiles:   p.profiles,
		Head:       head,
		Tail:       tail,
	}, nil
}

// WriteText prints the inspection as aligned plain text.
func (in *Inspection) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "File:\t%s\n", in.Path)
	fmt.Fprintf(tw, "Delimiter:\t%q (%s)\n", string(in.Detection.Delimiter), in.Detection.Source)
	if in.Detection.Degraded {
		fmt.Fprintf(tw, "Detection:\tdegraded: %s\n", in.Detection.Reason)
	}
	fmt.Fprintf(tw, "Strategy:\t%s\n", in.Provenance.Strategy)
	fmt.Fprintf(tw, "Encoding:\t%s\n", in.Provenance.Encoding)
	fmt.Fprintf(tw, "Rows loaded:\t%d (skipped %d, padded %d, truncated %d)\n",
		in.Provenance.RowsLoaded, in.Provenance.RowsSkipped, in.Provenance.RowsPadded, in.Provenance.RowsTruncated)
	fmt.Fprintf(tw, "Rows after cleaning:\t%d (duplicates %d, empty %d)\n",
		in.Cleaning.RowsOut, in.Cleaning.DuplicatesRemoved, in.Cleaning.EmptyRowsRemoved)
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "COLUMN\tROLE\tKIND\tDISTINCT\tNULLS\tEXAMPLES")
	for _, p := range in.Profiles {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", p.Name, p.Role, p.Kind, p.DistinctCount, p.NullCount, strings.Join(p.Examples, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if err := writeRows(w, fmt.Sprintf("First %d rows", len(in.Head)), in.Columns, in.Head); err != nil {
		return err
	}
	return writeRows(w, fmt.Sprintf("Last %d rows", len(in.Tail)), in.Columns, in.Tail)
}

func writeRows(w io.Writer, title string, columns []string, rows []table.Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\n%s:\n", title)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	cells := make([]string, len(columns))
	for _, r := range rows {
		for i, c := range r {
			if c.IsNull() {
				cells[i] = "<null>"
			} else {
				cells[i] = c.Text()
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
