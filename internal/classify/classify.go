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

// Package classify assigns roles to columns and computes per-column frequency aggregates.
package classify

import (
	"sort"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/logging"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/mathutil"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/table"
	"go.uber.org/zap"
)

const maxExamples = 3

// ColumnProfile summarizes one column.
type ColumnProfile struct {
	Name          string   `json:"name" yaml:"name"`
	Role          Role     `json:"role" yaml:"role"`
	Kind          string   `json:"kind" yaml:"kind"`
	DistinctCount int      `json:"distinctCount" yaml:"distinctCount"`
	NullCount     int      `json:"nullCount" yaml:"nullCount"`
	Examples      []string `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// AggregateRecord is one distinct value of a classified column.
type AggregateRecord struct {
	Value      string  `json:"value" yaml:"value"`
	Count      int     `json:"count" yaml:"count"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// AggregateGroup holds the frequency records of one classified column.
type AggregateGroup struct {
	Column        string            `json:"column" yaml:"column"`
	Role          Role              `json:"role" yaml:"role"`
	Total         int               `json:"total" yaml:"total"`
	DistinctCount int               `json:"distinctCount" yaml:"distinctCount"`
	Records       []AggregateRecord `json:"records" yaml:"records"`
}

// Classifier applies Rules to a table.
type Classifier struct {
	rules  Rules
	logger *zap.Logger
}

// New creates a Classifier.
func New(rules Rules, logger *zap.Logger) *Classifier {
	return &Classifier{rules: rules, logger: logging.OrNop(logger)}
}

// Classify profiles every column and aggregates the classified ones, in column order.
func (c *Classifier) Classify(t *table.Table) ([]ColumnProfile, []AggregateGroup) {
	profiles := make([]ColumnProfile, 0, len(t.Columns))
	groups := []AggregateGroup{}
	for _, name := range t.Columns {
		role := c.rules.RoleOf(name)
		cells := t.Column(name)
		profiles = append(profiles, Profile(name, role, cells))
		if role == RoleUnclassified {
			continue
		}
		g := Aggregate(name, role, cells)
		c.logger.Info("Column aggregated",
			zap.String("column", name),
			zap.String("role", string(role)),
			zap.Int("distinct", g.DistinctCount),
			zap.Int("total", g.Total))
		groups = append(groups, g)
	}
	return profiles, groups
}

// Frequencies counts non-null values by their text, in first-seen order.
func Frequencies(cells []table.Cell) (values []string, counts map[string]int) {
	counts = make(map[string]int)
	for _, cell := range cells {
		if cell.IsBlank() {
			continue
		}
		v := cell.Text()
		if _, ok := counts[v]; !ok {
			values = append(values, v)
		}
		counts[v]++
	}
	return values, counts
}

// Aggregate builds the frequency group for a column. Records are sorted by descending count,
// ties keep first-seen order.
func Aggregate(column string, role Role, cells []table.Cell) AggregateGroup {
	values, counts := Frequencies(cells)
	g := AggregateGroup{Column: column, Role: role, Records: []AggregateRecord{}}
	for _, v := range values {
		g.Total += counts[v]
	}
	for _, v := range values {
		g.Records = append(g.Records, AggregateRecord{
			Value:      v,
			Count:      counts[v],
			Percentage: mathutil.Percent(counts[v], g.Total, 2),
		})
	}
	sort.SliceStable(g.Records, func(i, j int) bool {
		return g.Records[i].Count > g.Records[j].Count
	})
	g.DistinctCount = len(g.Records)
	return g
}

// Profile describes a column's content.
func Profile(name string, role Role, cells []table.Cell) ColumnProfile {
	p := ColumnProfile{Name: name, Role: role}
	values, _ := Frequencies(cells)
	p.DistinctCount = len(values)
	numbers, texts := 0, 0
	for _, cell := range cells {
		switch {
		case cell.IsBlank():
			p.NullCount++
		case cell.Kind == table.KindNumber:
			numbers++
		default:
			texts++
		}
	}
	switch {
	case numbers > 0 && texts > 0:
		p.Kind = "mixed"
	case numbers > 0:
		p.Kind = "number"
	case texts > 0:
		p.Kind = "text"
	default:
		p.Kind = "empty"
	}
	for i := 0; i < len(values) && i < maxExamples; i++ {
		p.Examples = append(p.Examples, values[i])
	}
	return p
}
