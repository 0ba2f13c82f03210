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

// Config holds all configuration for the application
type Config struct {
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Report     ReportConfig     `mapstructure:"report"`
	Output     OutputConfig     `mapstructure:"output"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	GenAI      GenAIConfig      `mapstructure:"genai"`
}

// IngestConfig controls delimiter detection and the loading strategies.
type IngestConfig struct {
	Delimiter         string   `mapstructure:"delimiter" validate:"max=1"` // empty means sniff
	DefaultDelimiter  string   `mapstructure:"default_delimiter" validate:"len=1"`
	Candidates        []string `mapstructure:"candidates" validate:"min=1,dive,len=1"`
	SampleBytes       int      `mapstructure:"sample_bytes" validate:"gte=64"`
	Encodings         []string `mapstructure:"encodings" validate:"dive,required"`
	NullMarkers       []string `mapstructure:"null_markers"`
	MaxRecordedIssues int      `mapstructure:"max_recorded_issues" validate:"gte=0"`
}

// ClassifierConfig is the keyword table used to assign column roles.
type ClassifierConfig struct {
	Categorical []string `mapstructure:"categorical" validate:"dive,required"`
	Location    []string `mapstructure:"location" validate:"dive,required"`
}

// ReportConfig configures the fixed-schema report mode.
type ReportConfig struct {
	TopN            int           `mapstructure:"top_n" validate:"gte=1"`
	TimestampLayout string        `mapstructure:"timestamp_layout" validate:"required"`
	RoadLabelPrefix string        `mapstructure:"road_label_prefix"`
	PreviewChars    int           `mapstructure:"preview_chars" validate:"gte=0"`
	Title           string        `mapstructure:"title"`
	Subtitle        string        `mapstructure:"subtitle"`
	Footer          string        `mapstructure:"footer"`
	Columns         ReportColumns `mapstructure:"columns"`
}

// ReportColumns lists, per semantic field, the column names accepted for it (first match wins).
type ReportColumns struct {
	Fatalities     []string `mapstructure:"fatalities"`
	SevereInjuries []string `mapstructure:"severe_injuries"`
	MinorInjuries  []string `mapstructure:"minor_injuries"`
	Unharmed       []string `mapstructure:"unharmed"`
	AccidentType   []string `mapstructure:"accident_type"`
	Cause          []string `mapstructure:"cause"`
	Road           []string `mapstructure:"road"`
	Weather        []string `mapstructure:"weather"`
	TimeOfDay      []string `mapstructure:"time_of_day"`
	Municipality   []string `mapstructure:"municipality"`
}

// OutputConfig holds exporter settings.
type OutputConfig struct {
	Format     string `mapstructure:"format" validate:"oneof=json yaml xlsx"`
	SQLDialect string `mapstructure:"sql_dialect" validate:"oneof=postgres mysql sqlserver"`
	SQLTable   string `mapstructure:"sql_table" validate:"required"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// GenAIConfig configures the optional narrative generation.
type GenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

var globalConfig *Config

// GetConfig returns a default configuration. Files, environment and flags are layered on top by Load.
func GetConfig() *Config {
	return &Config{
		Ingest: IngestConfig{
			DefaultDelimiter:  ";",
			Candidates:        []string{",", ";", "\t", "|", " "},
			SampleBytes:       4096,
			Encodings:         []string{"latin-1", "iso-8859-1", "windows-1252"},
			NullMarkers:       []string{"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan", "1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a", "nan", "null"},
			MaxRecordedIssues: 50,
		},
		Classifier: ClassifierConfig{
			Categorical: []string{"type", "category", "class", "accident", "cause", "reason", "tipo", "categoria", "classe", "acidente", "causa", "motivo"},
			Location:    []string{"place", "road", "highway", "route", "municipality", "region", "city", "local", "estrada", "rodovia", "br", "municipio", "regiao", "cidade"},
		},
		Report: ReportConfig{
			TopN:            5,
			TimestampLayout: "02/01/2006 15:04:05",
			RoadLabelPrefix: "BR-",
			PreviewChars:    500,
			Title:           "Traffic Accidents",
			Subtitle:        "Complete Analysis",
			Footer:          "Source: highway police open data",
			Columns: ReportColumns{
				Fatalities:     []string{"mortos", "fatalities", "deaths", "obitos"},
				SevereInjuries: []string{"feridos_graves", "severe_injuries", "seriously_injured"},
				MinorInjuries:  []string{"feridos_leves", "minor_injuries", "slightly_injured"},
				Unharmed:       []string{"ilesos", "unharmed", "uninjured"},
				AccidentType:   []string{"tipo_acidente", "accident_type"},
				Cause:          []string{"causa_acidente", "accident_cause", "cause"},
				Road:           []string{"br", "road", "highway"},
				Weather:        []string{"condicao_metereologica", "condicao_meteorologica", "weather", "weather_condition"},
				TimeOfDay:      []string{"fase_dia", "time_of_day", "day_phase"},
				Municipality:   []string{"municipio", "municipality", "city"},
			},
		},
		Output: OutputConfig{
			Format:     "json",
			SQLDialect: "postgres",
			SQLTable:   "cleaned_rows",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		GenAI: GenAIConfig{
			Model: "gemini-1.5-flash-latest",
		},
	}
}

// SetConfig sets the global configuration.
func SetConfig(cfg *Config) {
	globalConfig = cfg
}

// Current returns the global configuration, falling back to defaults when none was set.
func Current() *Config {
	if globalConfig == nil {
		return GetConfig()
	}
	return globalConfig
}
