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
package ingest

import (
	"context"
	"fmt"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/config"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/logging"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/table"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Attempt records one strategy run and, if it failed, why.
type Attempt struct {
	Strategy string `json:"strategy" yaml:"strategy"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
	Err      error  `json:"-" yaml:"-"`
}

// Label names the attempt in logs and error messages.
func (a Attempt) Label() string {
	return a.Strategy
}

// Provenance describes how the table was obtained.
type Provenance struct {
	Strategy      string    `json:"strategy" yaml:"strategy"`
	Encoding      string    `json:"encoding" yaml:"encoding"`
	RowsLoaded    int       `json:"rowsLoaded" yaml:"rowsLoaded"`
	RowsSkipped   int       `json:"rowsSkipped" yaml:"rowsSkipped"`
	RowsPadded    int       `json:"rowsPadded" yaml:"rowsPadded"`
	RowsTruncated int       `json:"rowsTruncated" yaml:"rowsTruncated"`
	SkippedLines  []int     `json:"skippedLines,omitempty" yaml:"skippedLines,omitempty"`
	RepairedLines []int     `json:"repairedLines,omitempty" yaml:"repairedLines,omitempty"`
	Attempts      []Attempt `json:"attempts" yaml:"attempts"`
}

// Result is a loaded table together with its provenance.
type Result struct {
	Table      *table.Table
	Provenance Provenance
}

// Loader tries each strategy in order until one produces a table.
type Loader struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewLoader creates a Loader with the primary, encoding-fallback and manual-repair strategies.
func NewLoader(cfg config.IngestConfig, fs afero.Fs, logger *zap.Logger) *Loader {
	logger = logging.OrNop(logger)
	if fs == nil {
		fs = afero.NewOsFs()
	}
	markers := make(map[string]bool, len(cfg.NullMarkers))
	for _, m := range cfg.NullMarkers {
		markers[m] = true
	}
	opts := parseOptions{
		fs:          fs,
		nullMarkers: markers,
		maxIssues:   cfg.MaxRecordedIssues,
		logger:      logger,
	}
	return NewLoaderWithStrategies(logger,
		&PrimaryStrategy{opts: opts},
		&EncodingFallbackStrategy{opts: opts, encodings: cfg.Encodings},
		&ManualRepairStrategy{opts: opts, encodings: cfg.Encodings},
	)
}

// NewLoaderWithStrategies creates a Loader with an explicit strategy chain.
func NewLoaderWithStrategies(logger *zap.Logger, strategies ...Strategy) *Loader {
	return &Loader{strategies: strategies, logger: logging.OrNop(logger)}
}

// Load returns the first successful strategy's table. It fails with *ErrIngest only when every
// strategy failed.
func (l *Loader) Load(ctx context.Context, path string, delimiter rune) (*Result, error) {
	var attempts []Attempt
	for _, s := range l.strategies {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Strategy: s.Name(), Error: err.Error(), Err: err})
			break
		}
		l.logger.Info("Attempting load", zap.String("strategy", s.Name()), zap.String("path", path))
		res, err := s.Attempt(ctx, path, delimiter)
		if err == nil {
			err = validate(res)
		}
		if err != nil {
			l.logger.Warn("Load strategy failed", zap.String("strategy", s.Name()), zap.Error(err))
			attempts = append(attempts, Attempt{Strategy: s.Name(), Error: err.Error(), Err: err})
			continue
		}

		attempts = append(attempts, Attempt{Strategy: s.Name()})
		res.Provenance.Attempts = attempts
		if res.Provenance.Strategy == "" {
			res.Provenance.Strategy = s.Name()
		}
		l.logger.Info("Load succeeded",
			zap.String("strategy", res.Provenance.Strategy),
			zap.String("encoding", res.Provenance.Encoding),
			zap.Int("rows", res.Provenance.RowsLoaded))
		if n := res.Provenance.RowsSkipped; n > 0 {
			l.logger.Warn("Rows skipped during load", zap.Int("count", n), zap.Ints("lines", res.Provenance.SkippedLines))
		}
		if n := res.Provenance.RowsPadded + res.Provenance.RowsTruncated; n > 0 {
			l.logger.Warn("Rows repaired during load",
				zap.Int("padded", res.Provenance.RowsPadded),
				zap.Int("truncated", res.Provenance.RowsTruncated))
		}
		return res, nil
	}

	ierr := &ErrIngest{Path: path, Attempts: attempts}
	l.logger.Error("All load strategies failed", zap.Error(ierr))
	return nil, ierr
}

func validate(res *Result) error {
	if res == nil || res.Table == nil {
		return fmt.Errorf("strategy returned no table")
	}
	return res.Table.Validate()
}
