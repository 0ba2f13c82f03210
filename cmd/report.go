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

var reportFlags outputFlags

var reportCmd = &cobra.Command{
	Use:     "report [file]",
	Short:   "Build the fixed traffic accident report from a CSV file",
	Long:    `Runs the same pipeline as extract and adds the eight report slides: title, KPIs, accident types, causes, roads, weather, time of day and municipalities.`,
	Example: `./csv_report_extractor report acidentes2025.csv -o relatorio.json`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, args, report.ModeReport, &reportFlags)
	},
}

func init() {
	addOutputFlags(reportCmd, &reportFlags, "report")
}
