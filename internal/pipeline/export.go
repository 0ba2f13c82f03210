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
package pipeline

import (
	"errors"
	"fmt"
	"io"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/output"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/sqlscript"
	"go.uber.org/zap"
)

// ExportOptions names the files a run should produce. Empty paths are skipped.
type ExportOptions struct {
	OutFile     string
	Format      string
	MarkdownOut string
	CleanCSVOut string
	SQLOut      string
	SQLDialect  string
	SQLTable    string
	Force       bool
	// Confirm is asked before overwriting an existing file when Force is not set.
	Confirm func(path string) bool
}

// Export writes the document and the optional side outputs of res.
func (s *Service) Export(res *Result, opts ExportOptions) ([]string, error) {
	if res == nil || res.Document == nil {
		return nil, fmt.Errorf("nothing to export")
	}

	type job struct {
		path  string
		write func(io.Writer) error
	}
	jobs := []job{
		{opts.OutFile, func(w io.Writer) error { return output.WriteDocument(w, res.Document, opts.Format) }},
		{opts.MarkdownOut, func(w io.Writer) error {
			_, err := io.WriteString(w, res.Document.Markdown())
			return err
		}},
		{opts.CleanCSVOut, func(w io.Writer) error { return output.WriteCSV(w, res.Cleaned) }},
	}
	if opts.SQLOut != "" {
		handler, err := sqlscript.GetDialectHandler(opts.SQLDialect)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job{opts.SQLOut, func(w io.Writer) error {
			return sqlscript.Generate(w, handler, opts.SQLTable, res.Cleaned)
		}})
	}

	var written []string
	for _, j := range jobs {
		if j.path == "" {
			continue
		}
		err := output.WriteFile(s.fs, j.path, opts.Force, j.write)
		if errors.Is(err, output.ErrExists) && opts.Confirm != nil && opts.Confirm(j.path) {
			err = output.WriteFile(s.fs, j.path, true, j.write)
		}
		if err != nil {
			return written, err
		}
		s.logger.Info("Output written", zap.String("path", j.path))
		written = append(written, j.path)
	}
	return written, nil
}
