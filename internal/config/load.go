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
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. CSV_REPORT_INGEST_DELIMITER.
const EnvPrefix = "CSV_REPORT"

// FlagBindings maps configuration keys to the CLI flags that override them.
var FlagBindings = map[string]string{
	"ingest.delimiter": "delimiter",
	"logging.level":    "log-level",
	"logging.format":   "log-format",
	"genai.api_key":    "gemini-api-key",
	"genai.model":      "model",
}

// LoadOptions describes where Load reads configuration from.
type LoadOptions struct {
	// File is an optional YAML, JSON or TOML config file.
	File string
	// Flags, when set, are bound according to FlagBindings. Only flags the user changed override.
	Flags *pflag.FlagSet
	// Fs is used to read File. Defaults to the OS filesystem.
	Fs afero.Fs
}

// Load layers defaults, an optional config file, CSV_REPORT_* environment variables and flags,
// then validates the result.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	if opts.Fs != nil {
		v.SetFs(opts.Fs)
	}
	setDefaults(v, GetConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.File, err)
		}
	}

	if opts.Flags != nil {
		for key, name := range FlagBindings {
			f := opts.Flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags of cfg.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// setDefaults registers every default so AutomaticEnv can see the keys during Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("ingest.delimiter", d.Ingest.Delimiter)
	v.SetDefault("ingest.default_delimiter", d.Ingest.DefaultDelimiter)
	v.SetDefault("ingest.candidates", d.Ingest.Candidates)
	v.SetDefault("ingest.sample_bytes", d.Ingest.SampleBytes)
	v.SetDefault("ingest.encodings", d.Ingest.Encodings)
	v.SetDefault("ingest.null_markers", d.Ingest.NullMarkers)
	v.SetDefault("ingest.max_recorded_issues", d.Ingest.MaxRecordedIssues)

	v.SetDefault("classifier.categorical", d.Classifier.Categorical)
	v.SetDefault("classifier.location", d.Classifier.Location)

	v.SetDefault("report.top_n", d.Report.TopN)
	v.SetDefault("report.timestamp_layout", d.Report.TimestampLayout)
	v.SetDefault("report.road_label_prefix", d.Report.RoadLabelPrefix)
	v.SetDefault("report.preview_chars", d.Report.PreviewChars)
	v.SetDefault("report.title", d.Report.Title)
	v.SetDefault("report.subtitle", d.Report.Subtitle)
	v.SetDefault("report.footer", d.Report.Footer)
	c := d.Report.Columns
	v.SetDefault("report.columns.fatalities", c.Fatalities)
	v.SetDefault("report.columns.severe_injuries", c.SevereInjuries)
	v.SetDefault("report.columns.minor_injuries", c.MinorInjuries)
	v.SetDefault("report.columns.unharmed", c.Unharmed)
	v.SetDefault("report.columns.accident_type", c.AccidentType)
	v.SetDefault("report.columns.cause", c.Cause)
	v.SetDefault("report.columns.road", c.Road)
	v.SetDefault("report.columns.weather", c.Weather)
	v.SetDefault("report.columns.time_of_day", c.TimeOfDay)
	v.SetDefault("report.columns.municipality", c.Municipality)

	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.sql_dialect", d.Output.SQLDialect)
	v.SetDefault("output.sql_table", d.Output.SQLTable)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("genai.api_key", d.GenAI.APIKey)
	v.SetDefault("genai.model", d.GenAI.Model)
}
