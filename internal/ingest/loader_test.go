package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/config"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/table"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeFiles(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func newTestLoader(t *testing.T, fs afero.Fs) *Loader {
	return NewLoader(config.GetConfig().Ingest, fs, zaptest.NewLogger(t))
}

func testOptions(t *testing.T, fs afero.Fs) parseOptions {
	markers := map[string]bool{}
	for _, m := range config.GetConfig().Ingest.NullMarkers {
		markers[m] = true
	}
	return parseOptions{fs: fs, nullMarkers: markers, maxIssues: 50, logger: zaptest.NewLogger(t)}
}

func texts(row table.Row) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = c.Text()
	}
	return out
}

func TestLoadPrimary(t *testing.T) {
	fs := writeFiles(t, map[string]string{
		"/in/basic.csv":    "type;cause\nA;X\nA;X\nB;Y\n",
		"/in/ragged.csv":   "a;b;c\nv\n1;2;3\n4;5;6;7\n",
		"/in/header.csv":   "a;b;c\n",
		"/in/nulls.csv":    "a;b\nNA;1\nx;\n",
		"/in/bom.csv":      "\xef\xbb\xbfid;name\n1;ok\n",
		"/in/dupnames.csv": "x;x;\n1;2;3\n",
		"/in/quote.csv":    "tipo;causa\n\"a;b\";x\nfoo\"bar;y\nz;NA\n",
	})
	l := newTestLoader(t, fs)
	ctx := context.Background()

	t.Run("scenario rows", func(t *testing.T) {
		res, err := l.Load(ctx, "/in/basic.csv", ';')
		require.NoError(t, err)
		assert.Equal(t, StrategyPrimary, res.Provenance.Strategy)
		assert.Equal(t, "utf-8", res.Provenance.Encoding)
		assert.Equal(t, []string{"type", "cause"}, res.Table.Columns)
		assert.Equal(t, 3, res.Table.Len())
		assert.Equal(t, 3, res.Provenance.RowsLoaded)
		require.Len(t, res.Provenance.Attempts, 1)
		assert.Empty(t, res.Provenance.Attempts[0].Error)
	})

	t.Run("wrong field counts are skipped", func(t *testing.T) {
		res, err := l.Load(ctx, "/in/ragged.csv", ';')
		require.NoError(t, err)
		assert.Equal(t, StrategyPrimary, res.Provenance.Strategy)
		assert.Equal(t, 1, res.Table.Len())
		assert.Equal(t, 2, res.Provenance.RowsSkipped)
		assert.Equal(t, []int{2, 4}, res.Provenance.SkippedLines)
		assert.Equal(t, table.Row{table.Number(1), table.Number(2), table.Number(3)}, res.Table.Rows[0])
	})

	t.Run("stray quote kept literally", func(t *testing.T) {
		res, err := l.Load(ctx, "/in/quote.csv", ';')
		require.NoError(t, err)
		assert.Equal(t, StrategyPrimary, res.Provenance.Strategy)
		require.Equal(t, 3, res.Table.Len())
		assert.Zero(t, res.Provenance.RowsSkipped)
		assert.Equal(t, []string{"a;b", "x"}, texts(res.Table.Rows[0]))
		assert.Equal(t, []string{"foo\"bar", "y"}, texts(res.Table.Rows[1]))
		assert.Equal(t, table.Row{table.String("z"), table.Null()}, res.Table.Rows[2])
	})

	t.Run("header only", func(t *testing.T) {
		res, err := l.Load(ctx, "/in/header.csv", ';')
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, res.Table.Columns)
		assert.Equal(t, 0, res.Table.Len())
	})

	t.Run("null markers and numeric inference", func(t *testing.T) {
		res, err := l.Load(ctx, "/in/nulls.csv", ';')
		require.NoError(t, err)
		assert.Equal(t, table.Row{table.Null(), table.Number(1)}, res.Table.Rows[0])
		assert.Equal(t, table.Row{table.String("x"), table.Null()}, res.Table.Rows[1])
	})

	t.Run("bom stripped from header", func(t *testing.T) {
		res, err := l.Load(ctx, "/in/bom.csv", ';')
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "name"}, res.Table.Columns)
	})

	t.Run("duplicate and blank header names", func(t *testing.T) {
		res, err := l.Load(ctx, "/in/dupnames.csv", ';')
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "x.1", "Unnamed: 2"}, res.Table.Columns)
	})
}

func TestLoadEncodingFallback(t *testing.T) {
	fs := writeFiles(t, map[string]string{
		"/in/latin.csv": "nome;cidade\nJos\xe9;S\xe3o Paulo\n",
	})
	res, err := newTestLoader(t, fs).Load(context.Background(), "/in/latin.csv", ';')
	require.NoError(t, err)

	assert.Equal(t, StrategyEncodingFallback, res.Provenance.Strategy)
	assert.Equal(t, "latin-1", res.Provenance.Encoding)
	assert.Equal(t, []string{"José", "São Paulo"}, texts(res.Table.Rows[0]))

	require.Len(t, res.Provenance.Attempts, 2)
	var decodeErr *ErrDecode
	require.True(t, errors.As(res.Provenance.Attempts[0].Err, &decodeErr))
	assert.Equal(t, "utf-8", decodeErr.Encoding)
	assert.Equal(t, 15, decodeErr.Offset)
}

func TestLoadManualRepair(t *testing.T) {
	fs := writeFiles(t, map[string]string{
		"/in/latin.csv": "a;b;c\nx\"y;1;2\nv\n1;2;3;4\nJos\xe9;1;2\n",
	})
	opts := testOptions(t, fs)
	// no encoding fallback, so the invalid UTF-8 falls through to repair
	l := NewLoaderWithStrategies(zaptest.NewLogger(t),
		&PrimaryStrategy{opts: opts},
		&ManualRepairStrategy{opts: opts, encodings: []string{"latin-1"}},
	)
	res, err := l.Load(context.Background(), "/in/latin.csv", ';')
	require.NoError(t, err)

	assert.Equal(t, StrategyManualRepair, res.Provenance.Strategy)
	assert.Equal(t, "latin-1", res.Provenance.Encoding)
	require.Len(t, res.Provenance.Attempts, 2)
	assert.NotEmpty(t, res.Provenance.Attempts[0].Error)
	assert.Empty(t, res.Provenance.Attempts[1].Error)

	require.Equal(t, 4, res.Table.Len())
	assert.Equal(t, []string{"x\"y", "1", "2"}, texts(res.Table.Rows[0]))
	assert.Equal(t, []string{"v", "", ""}, texts(res.Table.Rows[1]))
	assert.Equal(t, []string{"1", "2", "3"}, texts(res.Table.Rows[2]))
	assert.Equal(t, []string{"José", "1", "2"}, texts(res.Table.Rows[3]))
	assert.Equal(t, 1, res.Provenance.RowsPadded)
	assert.Equal(t, 1, res.Provenance.RowsTruncated)
	assert.Equal(t, []int{3, 4}, res.Provenance.RepairedLines)
	for _, row := range res.Table.Rows {
		assert.Len(t, row, 3)
		for _, c := range row {
			assert.Equal(t, table.KindString, c.Kind)
		}
	}
}

func TestManualRepairPadsShortRow(t *testing.T) {
	fs := writeFiles(t, map[string]string{"/in/short.csv": "a;b;c\nv\n"})
	l := NewLoaderWithStrategies(zaptest.NewLogger(t), &ManualRepairStrategy{opts: testOptions(t, fs)})

	res, err := l.Load(context.Background(), "/in/short.csv", ';')
	require.NoError(t, err)
	assert.Equal(t, StrategyManualRepair, res.Provenance.Strategy)
	assert.Equal(t, []table.Row{{table.String("v"), table.String(""), table.String("")}}, res.Table.Rows)
}

func TestManualRepairFallsBackToFirstEncoding(t *testing.T) {
	fs := writeFiles(t, map[string]string{"/in/latin.csv": "a;b\n\xe9;1;9\n"})
	s := &ManualRepairStrategy{opts: testOptions(t, fs), encodings: []string{"windows-1252"}}

	res, err := s.Attempt(context.Background(), "/in/latin.csv", ';')
	require.NoError(t, err)
	assert.Equal(t, "windows-1252", res.Provenance.Encoding)
	assert.Equal(t, []string{"é", "1"}, texts(res.Table.Rows[0]))
}

func TestRecordedLinesAreCapped(t *testing.T) {
	fs := writeFiles(t, map[string]string{"/in/bad.csv": "a;b\n1\n2\n3\n4;5\n"})
	opts := testOptions(t, fs)
	opts.maxIssues = 2
	res, err := (&PrimaryStrategy{opts: opts}).Attempt(context.Background(), "/in/bad.csv", ';')
	require.NoError(t, err)
	assert.Equal(t, 3, res.Provenance.RowsSkipped)
	assert.Equal(t, []int{2, 3}, res.Provenance.SkippedLines)
}

func TestLoadFailures(t *testing.T) {
	fs := writeFiles(t, map[string]string{"/in/empty.csv": ""})
	l := newTestLoader(t, fs)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name         string
		ctx          context.Context
		path         string
		wantAttempts int
	}{
		{"empty file", context.Background(), "/in/empty.csv", 3},
		{"missing file", context.Background(), "/in/missing.csv", 3},
		{"cancelled context", cancelled, "/in/empty.csv", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := l.Load(tt.ctx, tt.path, ';')
			assert.Nil(t, res)
			var ierr *ErrIngest
			require.True(t, errors.As(err, &ierr))
			assert.Equal(t, tt.path, ierr.Path)
			assert.Len(t, ierr.Attempts, tt.wantAttempts)
			for _, a := range ierr.Attempts {
				assert.Error(t, a.Err)
			}
		})
	}
}

func TestLookupEncoding(t *testing.T) {
	tests := []struct {
		name    string
		wantNil bool
		wantErr bool
	}{
		{"utf-8", true, false},
		{"latin-1", false, false},
		{"ISO-8859-1", false, false},
		{"cp1252", false, false},
		{"ISO-8859-15", false, false},
		{"klingon", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := LookupEncoding(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNil, enc == nil)
		})
	}
}
