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
package postgres

import (
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/sqlscript"
	"github.com/lib/pq"
)

type postgresHandler struct{}

// QuoteIdentifier for PostgreSQL
func (h postgresHandler) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

// QuoteLiteral for PostgreSQL. Backslashes switch to the E'' form.
func (h postgresHandler) QuoteLiteral(value string) string {
	return pq.QuoteLiteral(value)
}

func (h postgresHandler) ColumnType(t sqlscript.ColumnType) string {
	switch t {
	case sqlscript.TypeInteger:
		return "BIGINT"
	case sqlscript.TypeDecimal:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

func init() {
	sqlscript.RegisterDialectHandler("postgres", postgresHandler{})
}
