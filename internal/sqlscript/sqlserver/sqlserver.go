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
package sqlserver

import (
	"fmt"
	"strings"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/sqlscript"
)

type sqlServerHandler struct{}

// QuoteIdentifier for SQL Server
// SQL Server uses square brackets [] for identifiers; a closing bracket is doubled.
func (h sqlServerHandler) QuoteIdentifier(name string) string {
	return fmt.Sprintf("[%s]", strings.ReplaceAll(name, "]", "]]"))
}

// QuoteLiteral emits a Unicode literal so accented values survive any collation.
func (h sqlServerHandler) QuoteLiteral(value string) string {
	return fmt.Sprintf("N'%s'", strings.ReplaceAll(value, "'", "''"))
}

func (h sqlServerHandler) ColumnType(t sqlscript.ColumnType) string {
	switch t {
	case sqlscript.TypeInteger:
		return "BIGINT"
	case sqlscript.TypeDecimal:
		return "FLOAT"
	default:
		return "NVARCHAR(MAX)"
	}
}

func init() {
	sqlscript.RegisterDialectHandler("sqlserver", sqlServerHandler{})
}
