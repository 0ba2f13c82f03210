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
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/classify"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/clean"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/ingest"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Assembly modes.
const (
	ModeGeneric = "generic"
	ModeReport  = "report"
)

// Document is the structured output of one run. It is not modified after assembly.
type Document struct {
	Mode           string                    `json:"mode" yaml:"mode"`
	Metadata       Metadata                  `json:"metadata" yaml:"metadata"`
	DataAggregates []classify.AggregateGroup `json:"dataAggregates" yaml:"dataAggregates"`
	ColumnProfiles []classify.ColumnProfile  `json:"columnProfiles,omitempty" yaml:"columnProfiles,omitempty"`
	Slides         *Slides                   `json:"slides,omitempty" yaml:"slides,omitempty"`
	PromptPreview  string                    `json:"promptPreview,omitempty" yaml:"promptPreview,omitempty"`
	Narrative      string                    `json:"narrative,omitempty" yaml:"narrative,omitempty"`

	markdown string
}

// Markdown returns the full prompt rendering the preview was cut from.
func (d *Document) Markdown() string {
	return d.markdown
}

// Metadata describes the source and how it was processed.
type Metadata struct {
	RunID             string            `json:"runId" yaml:"runId"`
	ExtractedAt       string            `json:"extractedAt" yaml:"extractedAt"`
	SourceFile        string            `json:"sourceFile" yaml:"sourceFile"`
	Delimiter         string            `json:"delimiter" yaml:"delimiter"`
	DetectionDegraded bool              `json:"detectionDegraded" yaml:"detectionDegraded"`
	DetectionReason   string            `json:"detectionReason,omitempty" yaml:"detectionReason,omitempty"`
	TotalRows         int               `json:"totalRows" yaml:"totalRows"`
	TotalColumns      int               `json:"totalColumns" yaml:"totalColumns"`
	Columns           []string          `json:"columns" yaml:"columns"`
	Provenance        ingest.Provenance `json:"provenance" yaml:"provenance"`
	Cleaning          clean.Report      `json:"cleaning" yaml:"cleaning"`
	Warnings          []string          `json:"warnings" yaml:"warnings"`
}

// Slides is the fixed set of report sections.
type Slides struct {
	Slide1 TitleSlide                   `json:"slide_1" yaml:"slide_1"`
	Slide2 KPISlide                     `json:"slide_2" yaml:"slide_2"`
	Slide3 DataSlide[ShareEntry]        `json:"slide_3" yaml:"slide_3"`
	Slide4 DataSlide[ShareEntry]        `json:"slide_4" yaml:"slide_4"`
	Slide5 DataSlide[RoadEntry]         `json:"slide_5" yaml:"slide_5"`
	Slide6 DataSlide[ShareEntry]        `json:"slide_6" yaml:"slide_6"`
	Slide7 DataSlide[ShareEntry]        `json:"slide_7" yaml:"slide_7"`
	Slide8 DataSlide[MunicipalityEntry] `json:"slide_8" yaml:"slide_8"`
}

// TitleSlide carries static presentation text.
type TitleSlide struct {
	Name     string `json:"name" yaml:"name"`
	Title    string `json:"title" yaml:"title"`
	Subtitle string `json:"subtitle" yaml:"subtitle"`
	Footer   string `json:"footer" yaml:"footer"`
}

// KPISlide carries the headline indicators.
type KPISlide struct {
	Name string `json:"name" yaml:"name"`
	KPIs KPIs   `json:"kpis" yaml:"kpis"`
}

// KPIs are sums over the casualty columns and the rates derived from them.
type KPIs struct {
	TotalAccidents           int     `json:"totalAccidents" yaml:"totalAccidents"`
	Fatalities               int     `json:"fatalities" yaml:"fatalities"`
	SevereInjuries           int     `json:"severeInjuries" yaml:"severeInjuries"`
	MinorInjuries            int     `json:"minorInjuries" yaml:"minorInjuries"`
	Unharmed                 int     `json:"unharmed" yaml:"unharmed"`
	TotalVictims             int     `json:"totalVictims" yaml:"totalVictims"`
	SeverityRate             float64 `json:"severityRate" yaml:"severityRate"`
	FatalityRateAmongVictims float64 `json:"fatalityRateAmongVictims" yaml:"fatalityRateAmongVictims"`
}

// DataSlide maps labels to entries in ranking order.
type DataSlide[V any] struct {
	Name string                            `json:"name" yaml:"name"`
	Data *orderedmap.OrderedMap[string, V] `json:"data" yaml:"data"`
}

func newDataSlide[V any](name string) DataSlide[V] {
	return DataSlide[V]{Name: name, Data: orderedmap.New[string, V]()}
}

// ShareEntry is a count and its whole-number share of the slice.
type ShareEntry struct {
	Count      int `json:"count" yaml:"count"`
	Percentage int `json:"percentage" yaml:"percentage"`
}

// RoadEntry is a road group with its casualty sums. Injuries counts severe injuries.
type RoadEntry struct {
	Count      int `json:"count" yaml:"count"`
	Fatalities int `json:"fatalities" yaml:"fatalities"`
	Injuries   int `json:"injuries" yaml:"injuries"`
}

// MunicipalityEntry is a municipality group. Percentage is of all rows, one decimal.
type MunicipalityEntry struct {
	Count      int     `json:"count" yaml:"count"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
	Fatalities int     `json:"fatalities" yaml:"fatalities"`
}
