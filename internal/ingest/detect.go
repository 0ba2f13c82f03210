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

// Package ingest turns a delimited text file of unknown shape into a table.Table.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/config"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/logging"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Where a detected delimiter came from.
const (
	SourceSniffed    = "sniffed"
	SourceConfigured = "configured"
	SourceDefault    = "default"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Detection is the outcome of delimiter inference. It is never an error.
type Detection struct {
	Delimiter   rune
	Source      string
	Degraded    bool
	Reason      string
	Consistency float64 // share of sampled lines agreeing on the field count
}

// Detector infers the field separator from a sample of the file.
type Detector struct {
	candidates  []rune
	fallback    rune
	explicit    rune
	sampleBytes int
	fs          afero.Fs
	logger      *zap.Logger
}

// NewDetector creates a Detector. A non-empty cfg.Delimiter disables sniffing.
func NewDetector(cfg config.IngestConfig, fs afero.Fs, logger *zap.Logger) *Detector {
	d := &Detector{
		fallback:    ';',
		sampleBytes: cfg.SampleBytes,
		fs:          fs,
		logger:      logging.OrNop(logger),
	}
	if d.fs == nil {
		d.fs = afero.NewOsFs()
	}
	if d.sampleBytes <= 0 {
		d.sampleBytes = 4096
	}
	if r, ok := singleRune(cfg.DefaultDelimiter); ok {
		d.fallback = r
	}
	if r, ok := singleRune(cfg.Delimiter); ok {
		d.explicit = r
	}
	for _, c := range cfg.Candidates {
		if r, ok := singleRune(c); ok {
			d.candidates = append(d.candidates, r)
		}
	}
	if len(d.candidates) == 0 {
		d.candidates = []rune{',', ';', '\t', '|', ' '}
	}
	return d
}

func singleRune(s string) (rune, bool) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, true
}

// DetectFile reads the first sample bytes of path and sniffs them. Read failures degrade to the default.
func (d *Detector) DetectFile(path string) Detection {
	if d.explicit != 0 {
		return d.configured()
	}
	f, err := d.fs.Open(path)
	if err != nil {
		return d.degrade("cannot read sample", err)
	}
	defer f.Close()

	buf := make([]byte, d.sampleBytes)
	n, err := io.ReadFull(f, buf)
	truncated := err == nil
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return d.degrade("cannot read sample", err)
	}
	return d.detect(string(bytes.TrimPrefix(buf[:n], utf8BOM)), truncated)
}

// Detect sniffs a complete sample.
func (d *Detector) Detect(sample string) Detection {
	if d.explicit != 0 {
		return d.configured()
	}
	return d.detect(string(bytes.TrimPrefix([]byte(sample), utf8BOM)), false)
}

func (d *Detector) configured() Detection {
	return Detection{Delimiter: d.explicit, Source: SourceConfigured, Consistency: 1}
}

func (d *Detector) detect(sample string, truncated bool) Detection {
	records := splitRecords(sample)
	if truncated && len(records) > 1 {
		records = records[:len(records)-1]
	}
	if len(records) == 0 {
		return d.degrade("empty sample", nil)
	}

	modes := make([]int, len(d.candidates))
	hits := make([]int, len(d.candidates))
	for i, c := range d.candidates {
		modes[i], hits[i] = modalCount(records, c)
	}

	// thresholds are whole percents so 1.0 relaxes to 0.9 without float drift
	for pct := 100; pct >= 90; pct-- {
		for i, c := range d.candidates {
			if modes[i] > 0 && hits[i]*100 >= pct*len(records) {
				det := Detection{
					Delimiter:   c,
					Source:      SourceSniffed,
					Consistency: float64(hits[i]) / float64(len(records)),
				}
				d.logger.Info("Delimiter detected",
					zap.String("delimiter", string(c)),
					zap.Int("fieldsPerLine", modes[i]+1),
					zap.Float64("consistency", det.Consistency))
				return det
			}
		}
	}
	return d.degrade(fmt.Sprintf("no candidate is consistent across %d sampled lines", len(records)), nil)
}

func (d *Detector) degrade(msg string, cause error) Detection {
	derr := &ErrDetectionDegraded{Msg: msg, Err: cause}
	d.logger.Warn("Falling back to default delimiter",
		zap.String("delimiter", string(d.fallback)),
		zap.Error(derr))
	return Detection{Delimiter: d.fallback, Source: SourceDefault, Degraded: true, Reason: derr.Error()}
}

// splitRecords splits on newlines that are outside double quotes and drops blank records.
func splitRecords(s string) []string {
	var out []string
	inQuotes := false
	start := 0
	flush := func(end int) {
		rec := s[start:end]
		if len(rec) > 0 && rec[len(rec)-1] == '\r' {
			rec = rec[:len(rec)-1]
		}
		if len(rec) > 0 {
			out = append(out, rec)
		}
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuotes = !inQuotes
		case '\n':
			if !inQuotes {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(s))
	return out
}

// modalCount returns the most common per-record count of c outside quotes and how many records
// share it. Ties prefer the larger count.
func modalCount(records []string, c rune) (mode, hits int) {
	freq := make(map[int]int)
	for _, rec := range records {
		n := 0
		inQuotes := false
		for _, r := range rec {
			switch {
			case r == '"':
				inQuotes = !inQuotes
			case r == c && !inQuotes:
				n++
			}
		}
		freq[n]++
	}
	for n, f := range freq {
		if f > hits || (f == hits && n > mode) {
			mode, hits = n, f
		}
	}
	return mode, hits
}
