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

// Package pipeline wires detection, loading, cleaning, classification and assembly for one file.
package pipeline

import (
	"context"
	"fmt"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/classify"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/clean"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/config"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/ingest"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/logging"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/report"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/table"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Service runs the extraction pipeline against files on fs.
type Service struct {
	cfg        *config.Config
	fs         afero.Fs
	logger     *zap.Logger
	detector   *ingest.Detector
	loader     *ingest.Loader
	cleaner    *clean.Cleaner
	classifier *classify.Classifier
	assembler  *report.Assembler
}

type options struct {
	rules          *classify.Rules
	assemblerOpts  []report.Option
	loaderOverride *ingest.Loader
}

// Option configures a Service.
type Option func(*options)

// WithRules replaces the classifier keyword table built from the configuration.
func WithRules(r classify.Rules) Option {
	return func(o *options) { o.rules = &r }
}

// WithNarrator enables the optional narrative.
func WithNarrator(n report.Narrator) Option {
	return func(o *options) { o.assemblerOpts = append(o.assemblerOpts, report.WithNarrator(n)) }
}

// WithAssemblerOptions passes options through to the report assembler.
func WithAssemblerOptions(opts ...report.Option) Option {
	return func(o *options) { o.assemblerOpts = append(o.assemblerOpts, opts...) }
}

// WithLoader replaces the default strategy chain.
func WithLoader(l *ingest.Loader) Option {
	return func(o *options) { o.loaderOverride = l }
}

// New creates a Service. A nil cfg uses the defaults and a nil fs the OS filesystem.
func New(cfg *config.Config, fs afero.Fs, logger *zap.Logger, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.GetConfig()
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	logger = logging.OrNop(logger)

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	rules := classify.RulesFromConfig(cfg.Classifier)
	if o.rules != nil {
		rules = *o.rules
	}
	loader := o.loaderOverride
	if loader == nil {
		loader = ingest.NewLoader(cfg.Ingest, fs, logger.Named("loader"))
	}

	return &Service{
		cfg:        cfg,
		fs:         fs,
		logger:     logger,
		detector:   ingest.NewDetector(cfg.Ingest, fs, logger.Named("detector")),
		loader:     loader,
		cleaner:    clean.New(logger.Named("cleaner")),
		classifier: classify.New(rules, logger.Named("classifier")),
		assembler:  report.NewAssembler(cfg.Report, logger.Named("assembler"), o.assemblerOpts...),
	}
}

// Result carries every intermediate product of one run.
type Result struct {
	Detection ingest.Detection
	Load      *ingest.Result
	Cleaned   *table.Table
	Cleaning  clean.Report
	Document  *report.Document
}

// prepared is the state shared by Run and Inspect.
type prepared struct {
	detection ingest.Detection
	load      *ingest.Result
	cleaned   *table.Table
	cleaning  clean.Report
	profiles  []classify.ColumnProfile
	groups    []classify.AggregateGroup
}

func (s *Service) prepare(ctx context.Context, path string) (*prepared, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	det := s.detector.DetectFile(path)
	s.logger.Info("Delimiter selected",
		zap.String("path", path),
		zap.String("delimiter", string(det.Delimiter)),
		zap.String("source", det.Source),
		zap.Bool("degraded", det.Degraded))

	loaded, err := s.loader.Load(ctx, path, det.Delimiter)
	if err != nil {
		return nil, err
	}

	cleaned, cleaning := s.cleaner.Clean(loaded.Table)
	profiles, groups := s.classifier.Classify(cleaned)
	return &prepared{
		detection: det,
		load:      loaded,
		cleaned:   cleaned,
		cleaning:  cleaning,
		profiles:  profiles,
		groups:    groups,
	}, nil
}

// Run processes path and assembles a document in the given mode.
func (s *Service) Run(ctx context.Context, path, mode string) (*Result, error) {
	if mode != report.ModeGeneric && mode != report.ModeReport {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	p, err := s.prepare(ctx, path)
	if err != nil {
		return nil, err
	}

	in := report.Input{
		SourcePath: path,
		Detection:  p.detection,
		Provenance: p.load.Provenance,
		Cleaning:   p.cleaning,
		Table:      p.cleaned,
		Profiles:   p.profiles,
		Groups:     p.groups,
	}
	var doc *report.Document
	if mode == report.ModeReport {
		doc, err = s.assembler.Report(ctx, in)
	} else {
		doc, err = s.assembler.Generic(ctx, in)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to assemble document: %w", err)
	}

	return &Result{
		Detection: p.detection,
		Load:      p.load,
		Cleaned:   p.cleaned,
		Cleaning:  p.cleaning,
		Document:  doc,
	}, nil
}
