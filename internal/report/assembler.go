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

// Package report assembles the structured document consumed by external renderers.
package report

import (
	"context"
	"path/filepath"
	"time"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/classify"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/clean"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/config"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/ingest"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/logging"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/table"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Narrator turns the markdown prompt into prose. It is optional.
type Narrator interface {
	Narrate(ctx context.Context, prompt string) (string, error)
}

// Input is everything the earlier stages produced for one file.
type Input struct {
	SourcePath string
	Detection  ingest.Detection
	Provenance ingest.Provenance
	Cleaning   clean.Report
	Table      *table.Table // cleaned
	Profiles   []classify.ColumnProfile
	Groups     []classify.AggregateGroup
}

// Assembler builds Documents.
type Assembler struct {
	cfg      config.ReportConfig
	logger   *zap.Logger
	narrator Narrator
	now      func() time.Time
	newID    func() string
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithNarrator enables the narrative section.
func WithNarrator(n Narrator) Option {
	return func(a *Assembler) { a.narrator = n }
}

// WithClock overrides the extraction timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// WithIDGenerator overrides the run id source.
func WithIDGenerator(newID func() string) Option {
	return func(a *Assembler) { a.newID = newID }
}

// NewAssembler creates an Assembler.
func NewAssembler(cfg config.ReportConfig, logger *zap.Logger, opts ...Option) *Assembler {
	a := &Assembler{
		cfg:    cfg,
		logger: logging.OrNop(logger),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cfg.TopN <= 0 {
		a.cfg.TopN = 5
	}
	if a.cfg.TimestampLayout == "" {
		a.cfg.TimestampLayout = "02/01/2006 15:04:05"
	}
	return a
}

// Generic wraps metadata, every aggregate group and the column profiles.
func (a *Assembler) Generic(ctx context.Context, in Input) (*Document, error) {
	return a.assemble(ctx, in, ModeGeneric)
}

// Report adds the fixed slide sections to the generic document.
func (a *Assembler) Report(ctx context.Context, in Input) (*Document, error) {
	return a.assemble(ctx, in, ModeReport)
}

func (a *Assembler) assemble(ctx context.Context, in Input, mode string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tbl := in.Table
	if tbl == nil {
		tbl = table.New(nil)
	}
	groups := in.Groups
	if groups == nil {
		groups = []classify.AggregateGroup{}
	}

	w := &warnings{logger: a.logger}
	if in.Detection.Degraded {
		w.add("delimiter detection degraded: " + in.Detection.Reason)
	}

	doc := &Document{
		Mode: mode,
		Metadata: Metadata{
			RunID:             a.newID(),
			ExtractedAt:       a.now().Format(a.cfg.TimestampLayout),
			SourceFile:        filepath.Base(in.SourcePath),
			Delimiter:         string(in.Detection.Delimiter),
			DetectionDegraded: in.Detection.Degraded,
			DetectionReason:   in.Detection.Reason,
			TotalRows:         tbl.Len(),
			TotalColumns:      len(tbl.Columns),
			Columns:           append([]string{}, tbl.Columns...),
			Provenance:        in.Provenance,
			Cleaning:          in.Cleaning,
		},
		DataAggregates: groups,
		ColumnProfiles: in.Profiles,
	}

	if mode == ModeReport {
		doc.Slides = a.buildSlides(tbl, w)
	}

	doc.markdown = RenderMarkdown(a.cfg.Title, doc.Metadata, groups)
	doc.PromptPreview = preview(doc.markdown, a.cfg.PreviewChars)

	if a.narrator != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := a.narrator.Narrate(ctx, doc.markdown)
		if err != nil {
			w.add("narrative unavailable: " + err.Error())
		} else {
			doc.Narrative = text
		}
	}

	doc.Metadata.Warnings = w.list()
	a.logger.Info("Document assembled",
		zap.String("mode", mode),
		zap.String("runId", doc.Metadata.RunID),
		zap.Int("aggregateGroups", len(groups)),
		zap.Int("warnings", len(doc.Metadata.Warnings)))
	return doc, nil
}

// preview keeps the first n characters and marks the cut.
func preview(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// warnings collects distinct messages in the order they were raised.
type warnings struct {
	logger *zap.Logger
	seen   map[string]bool
	items  []string
}

func (w *warnings) add(msg string) {
	if w.seen == nil {
		w.seen = make(map[string]bool)
	}
	if w.seen[msg] {
		return
	}
	w.seen[msg] = true
	w.items = append(w.items, msg)
	w.logger.Warn(msg)
}

func (w *warnings) missing(err *ErrMissingColumn) {
	if w.seen == nil {
		w.seen = make(map[string]bool)
	}
	msg := err.Error()
	if w.seen[msg] {
		return
	}
	w.seen[msg] = true
	w.items = append(w.items, msg)
	w.logger.Warn("Report column missing, section left empty", zap.String("field", err.Field), zap.Error(err))
}

func (w *warnings) list() []string {
	if w.items == nil {
		return []string{}
	}
	return w.items
}
