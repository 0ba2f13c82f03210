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
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/config"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/pipeline"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect [file]",
	Short:   "Show how a CSV file is detected, loaded and profiled",
	Long:    `Prints the detected delimiter, the load strategy and encoding, per-column profiles and the first 10 and last 5 rows of the cleaned table.`,
	Example: `./csv_report_extractor inspect acidentes2025.csv --delimiter ";"`,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	path, err := resolveInput(args)
	if err != nil {
		return err
	}
	in, err := pipeline.New(config.Current(), appFs, logger).Inspect(cmd.Context(), path)
	if err != nil {
		logIngestFailure(err)
		return err
	}
	return in.WriteText(cmd.OutOrStdout())
}
