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

// Package clean normalizes a loaded table before classification.
package clean

import (
	"strconv"
	"strings"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/logging"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/table"
	"go.uber.org/zap"
)

// Report counts what each cleaning step removed.
type Report struct {
	RowsIn            int      `json:"rowsIn" yaml:"rowsIn"`
	DuplicatesRemoved int      `json:"duplicatesRemoved" yaml:"duplicatesRemoved"`
	EmptyRowsRemoved  int      `json:"emptyRowsRemoved" yaml:"emptyRowsRemoved"`
	RowsOut           int      `json:"rowsOut" yaml:"rowsOut"`
	RenamedColumns    []string `json:"renamedColumns,omitempty" yaml:"renamedColumns,omitempty"`
}

// Cleaner trims, deduplicates and drops empty rows.
type Cleaner struct {
	logger *zap.Logger
}

// New creates a Cleaner.
func New(logger *zap.Logger) *Cleaner {
	return &Cleaner{logger: logging.OrNop(logger)}
}

// Clean returns a new table; t is not modified. Running Clean on its own output removes nothing.
func (c *Cleaner) Clean(t *table.Table) (*table.Table, Report) {
	rep := Report{RowsIn: t.Len()}

	trimmed := make([]string, len(t.Columns))
	for i, name := range t.Columns {
		trimmed[i] = strings.TrimSpace(name)
	}
	names := table.UniqueNames(trimmed)
	for i, name := range names {
		if name != t.Columns[i] {
			rep.RenamedColumns = append(rep.RenamedColumns, t.Columns[i]+" -> "+name)
		}
	}

	out := table.New(names)
	seen := make(map[string]bool, t.Len())
	var deduped []table.Row
	for _, r := range t.Rows {
		row := make(table.Row, len(r))
		for i, cell := range r {
			if cell.Kind == table.KindString {
				cell = table.String(strings.TrimSpace(cell.Str))
			}
			row[i] = cell
		}
		key := rowKey(row)
		if seen[key] {
			rep.DuplicatesRemoved++
			continue
		}
		seen[key] = true
		deduped = append(deduped, row)
	}

	for _, row := range deduped {
		if isEmpty(row) {
			rep.EmptyRowsRemoved++
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	rep.RowsOut = out.Len()

	c.logger.Info("Table cleaned",
		zap.Int("rowsIn", rep.RowsIn),
		zap.Int("duplicatesRemoved", rep.DuplicatesRemoved),
		zap.Int("emptyRowsRemoved", rep.EmptyRowsRemoved),
		zap.Int("rowsOut", rep.RowsOut))
	return out, rep
}

func isEmpty(r table.Row) bool {
	for _, c := range r {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}

// rowKey encodes a row so that two rows share a key exactly when every cell is Equal.
func rowKey(r table.Row) string {
	var b strings.Builder
	for _, c := range r {
		switch c.Kind {
		case table.KindNull:
			b.WriteString("n;")
		case table.KindNumber:
			b.WriteString("f")
			b.WriteString(strconv.FormatFloat(c.Num, 'g', -1, 64))
			b.WriteByte(';')
		default:
			b.WriteString("s")
			b.WriteString(strconv.Itoa(len(c.Str)))
			b.WriteByte(':')
			b.WriteString(c.Str)
		}
	}
	return b.String()
}
