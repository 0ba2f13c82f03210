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
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/report"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"github.com/xuri/excelize/v2"
)

// Sheet names used by WriteXLSX.
const (
	SheetMetadata   = "Metadata"
	SheetAggregates = "Aggregates"
	SheetKPIs       = "KPIs"
	SheetSlides     = "Slides"
)

// sheetWriter appends rows to one sheet.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
}

func (s *sheetWriter) append(values ...interface{}) error {
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	return s.f.SetSheetRow(s.sheet, cell, &values)
}

// WriteXLSX writes doc as a workbook with metadata, aggregate and, in report mode, slide sheets.
func WriteXLSX(w io.Writer, doc *report.Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetMetadata); err != nil {
		return fmt.Errorf("failed to prepare workbook: %w", err)
	}
	meta := &sheetWriter{f: f, sheet: SheetMetadata}
	m := doc.Metadata
	rows := [][]interface{}{
		{"Field", "Value"},
		{"Mode", doc.Mode},
		{"Run ID", m.RunID},
		{"Extracted at", m.ExtractedAt},
		{"Source file", m.SourceFile},
		{"Delimiter", m.Delimiter},
		{"Detection degraded", m.DetectionDegraded},
		{"Total rows", m.TotalRows},
		{"Total columns", m.TotalColumns},
		{"Columns", strings.Join(m.Columns, ", ")},
		{"Load strategy", m.Provenance.Strategy},
		{"Encoding", m.Provenance.Encoding},
		{"Rows skipped", m.Provenance.RowsSkipped},
		{"Rows padded", m.Provenance.RowsPadded},
		{"Rows truncated", m.Provenance.RowsTruncated},
		{"Duplicates removed", m.Cleaning.DuplicatesRemoved},
		{"Empty rows removed", m.Cleaning.EmptyRowsRemoved},
		{"Warnings", strings.Join(m.Warnings, "\n")},
	}
	for _, r := range rows {
		if err := meta.append(r...); err != nil {
			return fmt.Errorf("failed to write %s sheet: %w", SheetMetadata, err)
		}
	}

	if _, err := f.NewSheet(SheetAggregates); err != nil {
		return fmt.Errorf("failed to add %s sheet: %w", SheetAggregates, err)
	}
	agg := &sheetWriter{f: f, sheet: SheetAggregates}
	if err := agg.append("Column", "Role", "Value", "Count", "Percentage"); err != nil {
		return err
	}
	for _, g := range doc.DataAggregates {
		for _, r := range g.Records {
			if err := agg.append(g.Column, string(g.Role), r.Value, r.Count, r.Percentage); err != nil {
				return fmt.Errorf("failed to write %s sheet: %w", SheetAggregates, err)
			}
		}
	}

	if doc.Slides != nil {
		if err := writeSlides(f, doc.Slides); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSlides(f *excelize.File, sl *report.Slides) error {
	if _, err := f.NewSheet(SheetKPIs); err != nil {
		return fmt.Errorf("failed to add %s sheet: %w", SheetKPIs, err)
	}
	k := sl.Slide2.KPIs
	kpi := &sheetWriter{f: f, sheet: SheetKPIs}
	for _, r := range [][]interface{}{
		{"Indicator", "Value"},
		{"Total accidents", k.TotalAccidents},
		{"Fatalities", k.Fatalities},
		{"Severe injuries", k.SevereInjuries},
		{"Minor injuries", k.MinorInjuries},
		{"Unharmed", k.Unharmed},
		{"Total victims", k.TotalVictims},
		{"Severity rate (%)", k.SeverityRate},
		{"Fatality rate among victims (%)", k.FatalityRateAmongVictims},
	} {
		if err := kpi.append(r...); err != nil {
			return fmt.Errorf("failed to write %s sheet: %w", SheetKPIs, err)
		}
	}

	if _, err := f.NewSheet(SheetSlides); err != nil {
		return fmt.Errorf("failed to add %s sheet: %w", SheetSlides, err)
	}
	out := &sheetWriter{f: f, sheet: SheetSlides}
	if err := out.append("Slide", "Section", "Label", "Count", "Percentage", "Fatalities", "Injuries"); err != nil {
		return err
	}
	shares := []struct {
		id    string
		slide report.DataSlide[report.ShareEntry]
	}{
		{"slide_3", sl.Slide3}, {"slide_4", sl.Slide4}, {"slide_6", sl.Slide6}, {"slide_7", sl.Slide7},
	}
	for _, s := range shares {
		if err := eachEntry(s.slide.Data, func(label string, e report.ShareEntry) error {
			return out.append(s.id, s.slide.Name, label, e.Count, e.Percentage, nil, nil)
		}); err != nil {
			return err
		}
	}
	if err := eachEntry(sl.Slide5.Data, func(label string, e report.RoadEntry) error {
		return out.append("slide_5", sl.Slide5.Name, label, e.Count, nil, e.Fatalities, e.Injuries)
	}); err != nil {
		return err
	}
	return eachEntry(sl.Slide8.Data, func(label string, e report.MunicipalityEntry) error {
		return out.append("slide_8", sl.Slide8.Name, label, e.Count, e.Percentage, e.Fatalities, nil)
	})
}

func eachEntry[V any](m *orderedmap.OrderedMap[string, V], fn func(string, V) error) error {
	if m == nil {
		return nil
	}
	for p := m.Oldest(); p != nil; p = p.Next() {
		if err := fn(p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}
