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
	"math"
	"sort"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/classify"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/mathutil"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/table"
)

// Semantic report fields.
const (
	FieldFatalities     = "fatalities"
	FieldSevereInjuries = "severe_injuries"
	FieldMinorInjuries  = "minor_injuries"
	FieldUnharmed       = "unharmed"
	FieldAccidentType   = "accident_type"
	FieldCause          = "cause"
	FieldRoad           = "road"
	FieldWeather        = "weather"
	FieldTimeOfDay      = "time_of_day"
	FieldMunicipality   = "municipality"
)

// aliases returns the accepted column names for a field.
func (a *Assembler) aliases(field string) []string {
	c := a.cfg.Columns
	switch field {
	case FieldFatalities:
		return c.Fatalities
	case FieldSevereInjuries:
		return c.SevereInjuries
	case FieldMinorInjuries:
		return c.MinorInjuries
	case FieldUnharmed:
		return c.Unharmed
	case FieldAccidentType:
		return c.AccidentType
	case FieldCause:
		return c.Cause
	case FieldRoad:
		return c.Road
	case FieldWeather:
		return c.Weather
	case FieldTimeOfDay:
		return c.TimeOfDay
	case FieldMunicipality:
		return c.Municipality
	}
	return nil
}

// ResolveColumn finds the first alias present in t, comparing accent-folded lowercase names.
func ResolveColumn(t *table.Table, aliases []string) (string, bool) {
	folded := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		k := classify.Fold(c)
		if _, ok := folded[k]; !ok {
			folded[k] = c
		}
	}
	for _, alias := range aliases {
		if c, ok := folded[classify.Fold(alias)]; ok {
			return c, true
		}
	}
	return "", false
}

// column resolves a field or records why it could not.
func (a *Assembler) column(t *table.Table, field string, w *warnings) (string, bool) {
	aliases := a.aliases(field)
	if c, ok := ResolveColumn(t, aliases); ok {
		return c, true
	}
	w.missing(&ErrMissingColumn{Field: field, Aliases: aliases})
	return "", false
}

func (a *Assembler) buildSlides(t *table.Table, w *warnings) *Slides {
	s := &Slides{
		Slide1: TitleSlide{
			Name:     "Title",
			Title:    a.cfg.Title,
			Subtitle: a.cfg.Subtitle,
			Footer:   a.cfg.Footer,
		},
		Slide2: KPISlide{Name: "Key Indicators", KPIs: a.kpis(t, w)},
		Slide3: a.shareSlide(t, "Accident Types", FieldAccidentType, a.cfg.TopN, w),
		Slide4: a.shareSlide(t, "Main Causes", FieldCause, a.cfg.TopN, w),
		Slide5: a.roadSlide(t, w),
		Slide6: a.shareSlide(t, "Weather Conditions", FieldWeather, 0, w),
		Slide7: a.shareSlide(t, "Time of Day Distribution", FieldTimeOfDay, 0, w),
		Slide8: a.municipalitySlide(t, w),
	}
	return s
}

func (a *Assembler) sum(t *table.Table, field string, w *warnings) int {
	col, ok := a.column(t, field, w)
	if !ok {
		return 0
	}
	return sumCells(t.Column(col))
}

func sumCells(cells []table.Cell) int {
	total := 0.0
	for _, c := range cells {
		if f, ok := c.Float(); ok {
			total += f
		}
	}
	return int(math.Round(total))
}

func (a *Assembler) kpis(t *table.Table, w *warnings) KPIs {
	k := KPIs{
		TotalAccidents: t.Len(),
		Fatalities:     a.sum(t, FieldFatalities, w),
		SevereInjuries: a.sum(t, FieldSevereInjuries, w),
		MinorInjuries:  a.sum(t, FieldMinorInjuries, w),
		Unharmed:       a.sum(t, FieldUnharmed, w),
	}
	k.TotalVictims = k.SevereInjuries + k.MinorInjuries + k.Unharmed
	k.SeverityRate = mathutil.Percent(k.Fatalities, k.TotalAccidents, 1)
	k.FatalityRateAmongVictims = mathutil.Percent(k.Fatalities, k.TotalVictims, 1)
	return k
}

// shareSlide ranks the values of a field. limit <= 0 keeps every value. Percentages are of the
// displayed slice, as whole numbers.
func (a *Assembler) shareSlide(t *table.Table, name, field string, limit int, w *warnings) DataSlide[ShareEntry] {
	slide := newDataSlide[ShareEntry](name)
	col, ok := a.column(t, field, w)
	if !ok {
		return slide
	}
	records := classify.Aggregate(col, classify.RoleCategorical, t.Column(col)).Records
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	shown := 0
	for _, r := range records {
		shown += r.Count
	}
	for _, r := range records {
		slide.Data.Set(r.Value, ShareEntry{
			Count:      r.Count,
			Percentage: int(mathutil.Percent(r.Count, shown, 0)),
		})
	}
	return slide
}

// group is one key of a group-by with its secondary sums.
type group struct {
	key        string
	count      int
	fatalities float64
	injuries   float64
}

// groupBy counts rows per non-blank key and sums the optional secondary columns. Groups are
// sorted by descending count, ties in first-seen order, and cut to limit.
func groupBy(t *table.Table, keyCol, fatalCol, injuryCol string, label func(table.Cell) string, limit int) []group {
	var order []*group
	byKey := make(map[string]*group)
	for i := range t.Rows {
		cell := t.Value(i, keyCol)
		if cell.IsBlank() {
			continue
		}
		k := label(cell)
		g, ok := byKey[k]
		if !ok {
			g = &group{key: k}
			byKey[k] = g
			order = append(order, g)
		}
		g.count++
		if fatalCol != "" {
			if f, ok := t.Value(i, fatalCol).Float(); ok {
				g.fatalities += f
			}
		}
		if injuryCol != "" {
			if f, ok := t.Value(i, injuryCol).Float(); ok {
				g.injuries += f
			}
		}
	}
	out := make([]group, len(order))
	for i, g := range order {
		out[i] = *g
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// roadLabel prefixes numeric road codes, so 116 becomes BR-116.
func (a *Assembler) roadLabel(c table.Cell) string {
	if f, ok := c.Float(); ok {
		return a.cfg.RoadLabelPrefix + table.FormatNumber(f)
	}
	return c.Text()
}

func (a *Assembler) roadSlide(t *table.Table, w *warnings) DataSlide[RoadEntry] {
	slide := newDataSlide[RoadEntry]("Critical Roads")
	road, ok := a.column(t, FieldRoad, w)
	if !ok {
		return slide
	}
	fatal, _ := a.column(t, FieldFatalities, w)
	severe, _ := a.column(t, FieldSevereInjuries, w)
	for _, g := range groupBy(t, road, fatal, severe, a.roadLabel, a.cfg.TopN) {
		slide.Data.Set(g.key, RoadEntry{
			Count:      g.count,
			Fatalities: int(math.Round(g.fatalities)),
			Injuries:   int(math.Round(g.injuries)),
		})
	}
	return slide
}

func (a *Assembler) municipalitySlide(t *table.Table, w *warnings) DataSlide[MunicipalityEntry] {
	slide := newDataSlide[MunicipalityEntry]("Most Affected Municipalities")
	mun, ok := a.column(t, FieldMunicipality, w)
	if !ok {
		return slide
	}
	fatal, _ := a.column(t, FieldFatalities, w)
	for _, g := range groupBy(t, mun, fatal, "", table.Cell.Text, a.cfg.TopN) {
		slide.Data.Set(g.key, MunicipalityEntry{
			Count:      g.count,
			Percentage: mathutil.Percent(g.count, t.Len(), 1),
			Fatalities: int(math.Round(g.fatalities)),
		})
	}
	return slide
}
