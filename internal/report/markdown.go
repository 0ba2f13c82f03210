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
package report

import (
	"strconv"
	"strings"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/classify"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var sectionTitles = map[classify.Role]string{
	classify.RoleCategorical: "CATEGORIES",
	classify.RoleLocation:    "LOCATIONS",
}

// RenderMarkdown renders the aggregates as an LLM-ready prompt: a context block followed by
// one ranked table per aggregate group.
func RenderMarkdown(title string, meta Metadata, groups []classify.AggregateGroup) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	if title == "" {
		title = "DATASET"
	}
	b.WriteString("# STRUCTURED DATA: " + strings.ToUpper(title) + "\n\n")
	b.WriteString("## CONTEXT\n")
	b.WriteString("- **Extraction date**: " + meta.ExtractedAt + "\n")
	p.Fprintf(&b, "- **Rows loaded**: %d\n", meta.Provenance.RowsLoaded)
	p.Fprintf(&b, "- **Rows after cleaning**: %d\n", meta.TotalRows)
	b.WriteString("- **Source file**: " + meta.SourceFile + "\n")
	b.WriteString("- **Delimiter**: " + strconv.Quote(meta.Delimiter) + "\n")
	b.WriteString("\n---\n\n")

	for i, g := range groups {
		heading, ok := sectionTitles[g.Role]
		if !ok {
			heading = strings.ToUpper(string(g.Role))
		}
		p.Fprintf(&b, "\n## %d. %s\n", i+1, heading)
		b.WriteString("**Source column**: " + g.Column + "\n")
		p.Fprintf(&b, "**Total**: %d | **Categories**: %d\n\n", g.Total, g.DistinctCount)
		b.WriteString("| # | Item | Count | % |\n")
		b.WriteString("|---|------|-------|---|\n")
		for rank, r := range g.Records {
			p.Fprintf(&b, "| %d | %s | %d | %s%% |\n",
				rank+1, escapeCell(r.Value), r.Count, strconv.FormatFloat(r.Percentage, 'f', -1, 64))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
