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

// Package sqlscript renders a cleaned table as a portable SQL script.
package sqlscript

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/table"
	"go.uber.org/zap"
)

// ColumnType is the dialect-neutral storage class inferred for a column.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeInteger
	TypeDecimal
)

// DialectHandler knows how a SQL dialect spells identifiers, literals and column types.
type DialectHandler interface {
	QuoteIdentifier(name string) string
	QuoteLiteral(value string) string
	ColumnType(t ColumnType) string
}

var (
	dialectHandlers = make(map[string]DialectHandler)
	mu              sync.RWMutex
)

// RegisterDialectHandler makes a handler available under a dialect name.
func RegisterDialectHandler(dialect string, handler DialectHandler) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := dialectHandlers[dialect]; exists {
		zap.L().Warn("Dialect handler is being overwritten", zap.String("dialect", dialect))
	}
	dialectHandlers[dialect] = handler
}

func GetDialectHandler(dialect string) (DialectHandler, error) {
	mu.RLock()
	defer mu.RUnlock()
	handler, ok := dialectHandlers[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported SQL dialect: %s", dialect)
	}
	return handler, nil
}

// Dialects lists the registered dialect names in sorted order.
func Dialects() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(dialectHandlers))
	for name := range dialectHandlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InferColumnTypes picks a storage class per column. A column is numeric only when every
// non-null cell is a number; it is an integer column when all of them are integral.
func InferColumnTypes(t *table.Table) []ColumnType {
	types := make([]ColumnType, len(t.Columns))
	for i := range t.Columns {
		numeric, integral, seen := true, true, false
		for _, r := range t.Rows {
			c := r[i]
			if c.IsNull() {
				continue
			}
			seen = true
			if c.Kind != table.KindNumber {
				numeric = false
				break
			}
			if c.Num != math.Trunc(c.Num) {
				integral = false
			}
		}
		switch {
		case !seen || !numeric:
			types[i] = TypeText
		case integral:
			types[i] = TypeInteger
		default:
			types[i] = TypeDecimal
		}
	}
	return types
}

// Generate writes a CREATE TABLE statement followed by one INSERT per row.
func Generate(w io.Writer, h DialectHandler, tableName string, t *table.Table) error {
	if h == nil {
		return fmt.Errorf("dialect handler is nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return fmt.Errorf("table name is empty")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", tableName)
	}

	types := InferColumnTypes(t)
	quotedTable := h.QuoteIdentifier(tableName)
	quotedCols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		quotedCols[i] = h.QuoteIdentifier(c)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "CREATE TABLE %s (\n", quotedTable)
	for i, c := range quotedCols {
		sep := ","
		if i == len(quotedCols)-1 {
			sep = ""
		}
		fmt.Fprintf(bw, "    %s %s%s\n", c, h.ColumnType(types[i]), sep)
	}
	fmt.Fprint(bw, ");\n")

	columnList := strings.Join(quotedCols, ", ")
	values := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, c := range r {
			values[i] = literal(h, c, types[i])
		}
		fmt.Fprintf(bw, "INSERT INTO %s (%s) VALUES (%s);\n", quotedTable, columnList, strings.Join(values, ", "))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("error writing SQL script: %w", err)
	}
	return nil
}

func literal(h DialectHandler, c table.Cell, t ColumnType) string {
	if c.IsNull() {
		return "NULL"
	}
	if t != TypeText && c.Kind == table.KindNumber {
		return table.FormatNumber(c.Num)
	}
	return h.QuoteLiteral(c.Text())
}
