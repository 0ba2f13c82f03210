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
	"fmt"
	"os"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/config"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/logging"
	_ "github.com/GoogleCloudPlatform/csv-report-extraction/internal/sqlscript/mysql"
	_ "github.com/GoogleCloudPlatform/csv-report-extraction/internal/sqlscript/postgres"
	_ "github.com/GoogleCloudPlatform/csv-report-extraction/internal/sqlscript/sqlserver"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile   string
	dryRun       bool
	geminiAPIKey string

	// appFs is swapped for an in-memory filesystem in tests.
	appFs  afero.Fs = afero.NewOsFs()
	logger          = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "csv_report_extractor",
	Short: "A tool to aggregate messy CSV files into structured reports",
	Long: `csv_report_extractor is a CLI tool that loads delimited text files of unknown
delimiter and encoding, cleans them, and writes categorical and location frequency
aggregates or a fixed accident report as JSON, YAML or XLSX.`,
	PersistentPreRunE: initFlagsAndConfig,
	SilenceUsage:      true,
}

// initFlagsAndConfig layers the config file, environment and flags, then builds the logger.
func initFlagsAndConfig(cmd *cobra.Command, args []string) error {
	opts := config.LoadOptions{File: configFile, Fs: appFs}
	if cmd != nil {
		opts.Flags = cmd.Flags()
	}
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}

	if cfg.GenAI.APIKey == "" {
		cfg.GenAI.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	geminiAPIKey = cfg.GenAI.APIKey
	config.SetConfig(cfg)

	l, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = l
	zap.ReplaceGlobals(l)
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (YAML, JSON or TOML)")
	rootCmd.PersistentFlags().String("delimiter", "", "Force the field delimiter instead of sniffing it")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console or json)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Print the document to stdout and write no files")

	// Gemini flags
	rootCmd.PersistentFlags().String("gemini-api-key", "", "Gemini API key enabling the narrative (can also be set via GEMINI_API_KEY environment variable)")
	rootCmd.PersistentFlags().String("model", "", "Gemini model used for the narrative")

	// Add subcommands
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(inspectCmd)
}
