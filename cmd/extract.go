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
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/report"
	"github.com/spf13/cobra"
)

var extractFlags outputFlags

var extractCmd = &cobra.Command{
	Use:     "extract [file]",
	Short:   "Aggregate categorical and location columns of a CSV file",
	Long:    `Detects the delimiter, loads the file with encoding and repair fallbacks, cleans it and writes frequency aggregates for every categorical and location column.`,
	Example: `./csv_report_extractor extract vendas.csv --format yaml --markdown_out vendas_prompt.md`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, args, report.ModeGeneric, &extractFlags)
	},
}

func init() {
	addOutputFlags(extractCmd, &extractFlags, "aggregates")
}
