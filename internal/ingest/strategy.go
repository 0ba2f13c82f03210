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
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/table"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// Strategy names, in the order the default loader tries them.
const (
	StrategyPrimary          = "primary"
	StrategyEncodingFallback = "encoding-fallback"
	StrategyManualRepair     = "manual-repair"
)

const encodingUTF8 = "utf-8"

// Strategy is one way of turning the file at path into a table.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, path string, delimiter rune) (*Result, error)
}

// parseOptions are shared by the built-in strategies.
type parseOptions struct {
	fs          afero.Fs
	nullMarkers map[string]bool
	maxIssues   int
	logger      *zap.Logger
}

func (o parseOptions) read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(o.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// recordLine appends line unless the cap is reached.
func (o parseOptions) recordLine(lines []int, line int) []int {
	if len(lines) >= o.maxIssues {
		return lines
	}
	return append(lines, line)
}

// PrimaryStrategy parses strict UTF-8 with the field count fixed by the header.
type PrimaryStrategy struct {
	opts parseOptions
}

func (s *PrimaryStrategy) Name() string { return StrategyPrimary }

func (s *PrimaryStrategy) Attempt(ctx context.Context, path string, delimiter rune) (*Result, error) {
	data, err := s.opts.read(ctx, path)
	if err != nil {
		return nil, err
	}
	text, err := decode(data, encodingUTF8, nil)
	if err != nil {
		return nil, err
	}
	res, err := parseStrict(text, delimiter, s.opts)
	if err != nil {
		return nil, err
	}
	res.Provenance.Strategy = StrategyPrimary
	res.Provenance.Encoding = encodingUTF8
	return res, nil
}

// EncodingFallbackStrategy re-runs the strict parse under each configured encoding in turn.
type EncodingFallbackStrategy struct {
	opts      parseOptions
	encodings []string
}

func (s *EncodingFallbackStrategy) Name() string { return StrategyEncodingFallback }

func (s *EncodingFallbackStrategy) Attempt(ctx context.Context, path string, delimiter rune) (*Result, error) {
	data, err := s.opts.read(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(s.encodings) == 0 {
		return nil, errors.New("no fallback encodings configured")
	}
	var errs []error
	for _, name := range s.encodings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		enc, err := LookupEncoding(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		text, err := decode(data, name, enc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		res, err := parseStrict(text, delimiter, s.opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		res.Provenance.Strategy = StrategyEncodingFallback
		res.Provenance.Encoding = name
		return res, nil
	}
	return nil, errors.Join(errs...)
}

// ManualRepairStrategy tokenizes leniently and forces every row to the header width.
// Short rows are padded with empty strings and long rows are truncated, which loses data.
type ManualRepairStrategy struct {
	opts      parseOptions
	encodings []string
}

func (s *ManualRepairStrategy) Name() string { return StrategyManualRepair }

func (s *ManualRepairStrategy) Attempt(ctx context.Context, path string, delimiter rune) (*Result, error) {
	data, err := s.opts.read(ctx, path)
	if err != nil {
		return nil, err
	}

	encName := encodingUTF8
	var text string
	if utf8.Valid(bytes.TrimPrefix(data, utf8BOM)) {
		text, _ = decode(data, encodingUTF8, nil)
	} else {
		if len(s.encodings) == 0 {
			return nil, &ErrDecode{Encoding: encodingUTF8, Offset: invalidOffset(data)}
		}
		encName = s.encodings[0]
		enc, err := LookupEncoding(encName)
		if err != nil {
			return nil, err
		}
		if text, err = decode(data, encName, enc); err != nil {
			return nil, err
		}
	}

	r := newReader(text, delimiter)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, headerError(err)
	}
	width := len(header)
	tbl := table.New(table.UniqueNames(header))
	prov := Provenance{Strategy: StrategyManualRepair, Encoding: encName}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			prov.RowsSkipped++
			prov.SkippedLines = s.opts.recordLine(prov.SkippedLines, line)
			s.opts.logger.Debug("Skipping unreadable row", zap.Int("line", line), zap.Error(err))
			continue
		}
		line, _ := r.FieldPos(0)
		if len(rec) != width {
			s.opts.logger.Debug("Repairing row", zap.Error(&ErrRowShape{Line: line, Expected: width, Got: len(rec)}))
			prov.RepairedLines = s.opts.recordLine(prov.RepairedLines, line)
		}
		row := make(table.Row, width)
		for i := range row {
			if i < len(rec) {
				row[i] = table.String(rec[i])
			} else {
				row[i] = table.String("")
			}
		}
		switch {
		case len(rec) < width:
			prov.RowsPadded++
		case len(rec) > width:
			prov.RowsTruncated++
		}
		if err := tbl.Append(row); err != nil {
			return nil, err
		}
	}
	prov.RowsLoaded = tbl.Len()
	return &Result{Table: tbl, Provenance: prov}, nil
}

// parseStrict tokenizes text with the field count fixed by the header. Stray quotes are kept
// literally. Rows of another width, or rows the tokenizer rejects, are skipped and recorded.
func parseStrict(text string, delimiter rune, opts parseOptions) (*Result, error) {
	r := newReader(text, delimiter)
	r.LazyQuotes = true
	r.FieldsPerRecord = 0

	header, err := r.Read()
	if err != nil {
		return nil, headerError(err)
	}
	width := len(header)
	var prov Provenance
	var records [][]string

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, fmt.Errorf("failed to tokenize: %w", err)
			}
			if errors.Is(pe.Err, csv.ErrFieldCount) {
				err = &ErrRowShape{Line: pe.StartLine, Expected: width, Got: len(rec)}
			}
			opts.logger.Debug("Skipping row", zap.Error(err))
			prov.RowsSkipped++
			prov.SkippedLines = opts.recordLine(prov.SkippedLines, pe.StartLine)
			continue
		}
		records = append(records, rec)
	}

	tbl := table.New(table.UniqueNames(header))
	tbl.Rows = typedRows(records, width, opts.nullMarkers)
	prov.RowsLoaded = tbl.Len()
	return &Result{Table: tbl, Provenance: prov}, nil
}

// typedRows maps null markers to null cells and turns columns whose every non-null value is
// numeric into number cells.
func typedRows(records [][]string, width int, nullMarkers map[string]bool) []table.Row {
	numeric := make([]bool, width)
	for c := range numeric {
		seen := false
		numeric[c] = true
		for _, rec := range records {
			v := rec[c]
			if nullMarkers[v] {
				continue
			}
			seen = true
			if _, ok := table.ParseNumber(v); !ok {
				numeric[c] = false
				break
			}
		}
		numeric[c] = numeric[c] && seen
	}

	rows := make([]table.Row, len(records))
	for i, rec := range records {
		row := make(table.Row, width)
		for c, v := range rec {
			switch {
			case nullMarkers[v]:
				row[c] = table.Null()
			case numeric[c]:
				f, _ := table.ParseNumber(v)
				row[c] = table.Number(f)
			default:
				row[c] = table.String(v)
			}
		}
		rows[i] = row
	}
	return rows
}

func newReader(text string, delimiter rune) *csv.Reader {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delimiter
	return r
}

func headerError(err error) error {
	if errors.Is(err, io.EOF) {
		return errors.New("file has no header row")
	}
	return fmt.Errorf("failed to read header: %w", err)
}

// decode converts data to a UTF-8 string. A nil enc means strict UTF-8 validation.
func decode(data []byte, name string, enc encoding.Encoding) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if enc == nil {
		if !utf8.Valid(data) {
			return "", &ErrDecode{Encoding: name, Offset: invalidOffset(data)}
		}
		return string(data), nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", &ErrDecode{Encoding: name, Err: err}
	}
	return string(out), nil
}

func invalidOffset(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(data)
}

// LookupEncoding resolves an encoding name. A nil encoding with no error means UTF-8.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		return nil, nil
	case "latin-1", "latin1", "iso-8859-1", "iso8859-1", "l1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("encoding %q is not supported", name)
	}
	return enc, nil
}
