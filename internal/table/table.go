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

// Package table holds the in-memory tabular model shared by every pipeline stage.
package table

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind tags the variant stored in a Cell.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	default:
		return "null"
	}
}

// Cell is a single value: null, raw text, or a parsed number.
type Cell struct {
	Kind Kind
	Str  string
	Num  float64
}

// Null returns an explicit null cell.
func Null() Cell { return Cell{Kind: KindNull} }

// String returns a text cell.
func String(s string) Cell { return Cell{Kind: KindString, Str: s} }

// Number returns a numeric cell.
func Number(f float64) Cell { return Cell{Kind: KindNumber, Num: f} }

// IsNull reports whether the cell is an explicit null.
func (c Cell) IsNull() bool { return c.Kind == KindNull }

// IsBlank reports whether the cell is null or a string that is empty after trimming.
func (c Cell) IsBlank() bool {
	switch c.Kind {
	case KindNull:
		return true
	case KindString:
		return strings.TrimSpace(c.Str) == ""
	default:
		return false
	}
}

// Text renders the cell the way it appears in aggregates and exports.
func (c Cell) Text() string {
	switch c.Kind {
	case KindString:
		return c.Str
	case KindNumber:
		return FormatNumber(c.Num)
	default:
		return ""
	}
}

// Float returns the numeric value of the cell. String cells are parsed.
func (c Cell) Float() (float64, bool) {
	switch c.Kind {
	case KindNumber:
		return c.Num, true
	case KindString:
		return ParseNumber(c.Str)
	default:
		return 0, false
	}
}

// Equal is structural equality: same kind and same payload.
func (c Cell) Equal(o Cell) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case KindString:
		return c.Str == o.Str
	case KindNumber:
		return c.Num == o.Num
	default:
		return true
	}
}

// Row is positional and aligned with Table.Columns.
type Row []Cell

// Table is an ordered list of uniquely named columns and rows of exactly that width.
type Table struct {
	Columns []string
	Rows    []Row

	index map[string]int
}

// New creates an empty table with the given column names.
func New(columns []string) *Table {
	t := &Table{Columns: append([]string(nil), columns...)}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, exists := t.index[c]; !exists {
			t.index[c] = i
		}
	}
}

// Append adds a row, rejecting rows whose width differs from the column count.
func (t *Table) Append(r Row) error {
	if len(r) != len(t.Columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(r), len(t.Columns))
	}
	t.Rows = append(t.Rows, r)
	return nil
}

// Rename replaces the column names. The count must not change.
func (t *Table) Rename(columns []string) error {
	if len(columns) != len(t.Columns) {
		return fmt.Errorf("rename expects %d names, got %d", len(t.Columns), len(columns))
	}
	t.Columns = append([]string(nil), columns...)
	t.reindex()
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the position of a column or -1.
func (t *Table) ColumnIndex(name string) int {
	if t.index == nil {
		t.reindex()
	}
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// HasColumn reports whether the table has a column with this exact name.
func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// Value returns the cell of row i in the named column, or a null cell if the column is unknown.
func (t *Table) Value(i int, column string) Cell {
	idx := t.ColumnIndex(column)
	if idx < 0 || i < 0 || i >= len(t.Rows) {
		return Null()
	}
	return t.Rows[i][idx]
}

// Column returns every cell of a column, top to bottom.
func (t *Table) Column(name string) []Cell {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]Cell, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out
}

// Clone deep-copies the table so the copy shares no rows with the original.
func (t *Table) Clone() *Table {
	c := New(t.Columns)
	c.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		c.Rows[i] = append(Row(nil), r...)
	}
	return c
}

// Validate checks the width invariant and column name uniqueness.
func (t *Table) Validate() error {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c] {
			return fmt.Errorf("duplicate column name %q", c)
		}
		seen[c] = true
	}
	for i, r := range t.Rows {
		if len(r) != len(t.Columns) {
			return fmt.Errorf("row %d has %d values, expected %d", i, len(r), len(t.Columns))
		}
	}
	return nil
}

// UniqueNames makes header names unique the way dataframe readers do: blank names become
// "Unnamed: <index>" and repeats get a ".N" suffix.
func UniqueNames(names []string) []string {
	out := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}
	used := make(map[string]bool, len(names))
	for i, n := range names {
		if strings.TrimSpace(n) == "" {
			n = fmt.Sprintf("Unnamed: %d", i)
		}
		candidate := n
		// suffixed names must not steal a literal name used elsewhere in the header
		for k := 1; used[candidate] || (candidate != n && taken[candidate]); k++ {
			candidate = fmt.Sprintf("%s.%d", n, k)
		}
		used[candidate] = true
		out[i] = candidate
	}
	return out
}

var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ParseNumber parses plain decimal notation. NaN and infinities are not numbers here.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FormatNumber prints integral values without a fractional part.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
