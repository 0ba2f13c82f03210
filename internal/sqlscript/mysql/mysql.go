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
package mysql

import (
	"fmt"
	"strings"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/sqlscript"
)

type mysqlHandler struct{}

func (h mysqlHandler) QuoteIdentifier(name string) string {
	name = strings.ReplaceAll(name, "`", "``")
	return fmt.Sprintf("`%s`", name)
}

func (h mysqlHandler) QuoteLiteral(value string) string {
	return fmt.Sprintf("'%s'", escapeMySQLString(value))
}

func (h mysqlHandler) ColumnType(t sqlscript.ColumnType) string {
	switch t {
	case sqlscript.TypeInteger:
		return "BIGINT"
	case sqlscript.TypeDecimal:
		return "DOUBLE"
	default:
		return "TEXT"
	}
}

func escapeMySQLString(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `'`, `''`)
	return value
}

func init() {
	sqlscript.RegisterDialectHandler("mysql", mysqlHandler{})
}
