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
package cmd

import (
	"errors"
	"fmt"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/classify"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/config"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/genai"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/ingest"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/output"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/pipeline"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// outputFlags are shared by extract and report.
type outputFlags struct {
	outFile     string
	format      string
	markdownOut string
	cleanCSVOut string
	sqlOut      string
	sqlDialect  string
	sqlTable    string
	keywords    string
	force       bool
}

func addOutputFlags(cmd *cobra.Command, f *outputFlags, defaultName string) {
	cmd.Flags().StringVarP(&f.outFile, "out_file", "o", "", fmt.Sprintf("File path for the document (optional, defaults to <input>_%s.<format>)", defaultName))
	cmd.Flags().StringVar(&f.format, "format", "", "Document format: json, yaml or xlsx (defaults to output.format from config)")
	cmd.Flags().StringVar(&f.markdownOut, "markdown_out", "", "Also write the markdown prompt to this path")
	cmd.Flags().StringVar(&f.cleanCSVOut, "clean_csv_out", "", "Also write the cleaned table as CSV to this path")
	cmd.Flags().StringVar(&f.sqlOut, "sql_out", "", "Also write a CREATE TABLE + INSERT script to this path")
	cmd.Flags().StringVar(&f.sqlDialect, "sql_dialect", "", "SQL dialect for --sql_out: postgres, mysql or sqlserver")
	cmd.Flags().StringVar(&f.sqlTable, "sql_table", "", "Table name for --sql_out")
	cmd.Flags().StringVar(&f.keywords, "keywords", "", `Override classifier keywords, e.g. "categorical[tipo,causa],location[br,municipio]"`)
	cmd.Flags().BoolVar(&f.force, "force", false, "Overwrite existing output files without asking")
}

// resolveInput returns the file argument or the first CSV of the working directory.
func resolveInput(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	path, err := utils.FindDefaultCSV(appFs, ".")
	if err != nil {
		return "", err
	}
	logger.Info("No input given, using first CSV in working directory", zap.String("path", path))
	return path, nil
}

// serviceOptions builds the classifier override and the optional narrator.
// The returned cleanup must always be called.
func serviceOptions(cmd *cobra.Command, cfg *config.Config, keywords string) ([]pipeline.Option, func(), error) {
	var opts []pipeline.Option
	cleanup := func() {}

	if keywords != "" {
		parsed, err := utils.ParseKeywordsFlag(keywords, string(classify.RoleCategorical), string(classify.RoleLocation))
		if err != nil {
			return nil, cleanup, fmt.Errorf("invalid --keywords: %w", err)
		}
		rules := classify.RulesFromConfig(cfg.Classifier)
		if kw, ok := parsed[string(classify.RoleCategorical)]; ok {
			rules.Categorical = kw
		}
		if kw, ok := parsed[string(classify.RoleLocation)]; ok {
			rules.Location = kw
		}
		opts = append(opts, pipeline.WithRules(rules))
	}

	if geminiAPIKey != "" {
		client, err := genai.NewClient(cmd.Context(), genai.Config{APIKey: geminiAPIKey, Model: cfg.GenAI.Model}, logger.Named("genai"))
		if err != nil {
			logger.Warn("Narrative disabled", zap.Error(err))
		} else {
			opts = append(opts, pipeline.WithNarrator(client))
			cleanup = func() { _ = client.Close() }
		}
	}
	return opts, cleanup, nil
}

func runPipeline(cmd *cobra.Command, args []string, mode string, f *outputFlags) error {
	cfg := config.Current()
	path, err := resolveInput(args)
	if err != nil {
		return err
	}

	format := cfg.Output.Format
	if f.format != "" {
		format = f.format
	}
	if format != output.FormatJSON && format != output.FormatYAML && format != output.FormatXLSX {
		return fmt.Errorf("unsupported format: %s (only json, yaml, xlsx are supported)", format)
	}

	opts, cleanup, err := serviceOptions(cmd, cfg, f.keywords)
	defer cleanup()
	if err != nil {
		return err
	}

	logger.Info("Starting extraction", zap.String("mode", mode), zap.String("path", path))
	svc := pipeline.New(cfg, appFs, logger, opts...)
	res, err := svc.Run(cmd.Context(), path, mode)
	if err != nil {
		logIngestFailure(err)
		return err
	}

	if dryRun {
		if format == output.FormatXLSX {
			format = output.FormatJSON
		}
		return output.WriteDocument(cmd.OutOrStdout(), res.Document, format)
	}

	exp := pipeline.ExportOptions{
		OutFile:     f.outFile,
		Format:      format,
		MarkdownOut: f.markdownOut,
		CleanCSVOut: f.cleanCSVOut,
		SQLOut:      f.sqlOut,
		SQLDialect:  firstNonEmpty(f.sqlDialect, cfg.Output.SQLDialect),
		SQLTable:    firstNonEmpty(f.sqlTable, cfg.Output.SQLTable),
		Force:       f.force,
		Confirm: func(p string) bool {
			return utils.ConfirmAction(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("%s already exists. Overwrite it?", p))
		},
	}
	if exp.OutFile == "" {
		exp.OutFile = utils.GetDefaultOutputFilePath(path, cmd.Name(), output.Extension(format))
	}

	written, err := svc.Export(res, exp)
	for _, p := range written {
		fmt.Fprintf(cmd.OutOrStdout(), "Written: %s\n", p)
	}
	if err != nil {
		return fmt.Errorf("failed to write outputs: %w", err)
	}

	for _, w := range res.Document.Metadata.Warnings {
		logger.Warn("Document warning", zap.String("warning", w))
	}
	logger.Info("Extraction completed",
		zap.Int("rows", res.Document.Metadata.TotalRows),
		zap.Int("aggregateGroups", len(res.Document.DataAggregates)))
	return nil
}

// logIngestFailure lists every attempted strategy and why it failed.
func logIngestFailure(err error) {
	var ierr *ingest.ErrIngest
	if !errors.As(err, &ierr) {
		return
	}
	for _, a := range ierr.Attempts {
		logger.Error("Load strategy failed", zap.String("strategy", a.Label()), zap.String("error", a.Error))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
