package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/classify"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/config"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/ingest"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/output"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/report"
	_ "github.com/GoogleCloudPlatform/csv-report-extraction/internal/sqlscript/postgres"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const accidentsCSV = "id;tipo_acidente;municipio;mortos\n" +
	"1;Colisão;CURITIBA;1\n" +
	"2;Colisão;CURITIBA;0\n" +
	"2;Colisão;CURITIBA;0\n" +
	"3;Tombamento;LONDRINA;0\n" +
	"4;Colisão;MARINGÁ;2\n"

func newTestService(t *testing.T, fs afero.Fs) *Service {
	t.Helper()
	return New(config.GetConfig(), fs, zaptest.NewLogger(t), WithAssemblerOptions(
		report.WithClock(func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }),
		report.WithIDGenerator(func() string { return "run-test" }),
	))
}

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func TestRunGeneric(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/data/acidentes.csv", accidentsCSV)

	res, err := newTestService(t, fs).Run(context.Background(), "/data/acidentes.csv", report.ModeGeneric)
	require.NoError(t, err)

	assert.Equal(t, ';', res.Detection.Delimiter)
	assert.Equal(t, ingest.StrategyPrimary, res.Load.Provenance.Strategy)
	assert.Equal(t, 5, res.Load.Provenance.RowsLoaded)
	assert.Equal(t, 1, res.Cleaning.DuplicatesRemoved)

	doc := res.Document
	assert.Equal(t, "run-test", doc.Metadata.RunID)
	assert.Equal(t, "acidentes.csv", doc.Metadata.SourceFile)
	assert.Equal(t, 4, doc.Metadata.TotalRows)
	assert.Nil(t, doc.Slides)

	require.Len(t, doc.DataAggregates, 2)
	assert.Equal(t, "tipo_acidente", doc.DataAggregates[0].Column)
	assert.Equal(t, "Colisão", doc.DataAggregates[0].Records[0].Value)
	assert.Equal(t, 3, doc.DataAggregates[0].Records[0].Count)
	assert.Equal(t, 75.0, doc.DataAggregates[0].Records[0].Percentage)
	assert.Equal(t, "municipio", doc.DataAggregates[1].Column)
}

func TestRunDeduplicatesBeforeAggregating(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/data/scenario.csv", "type;cause\nA;X\nA;X\nB;Y\n")

	res, err := newTestService(t, fs).Run(context.Background(), "/data/scenario.csv", report.ModeGeneric)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Load.Provenance.RowsLoaded)
	assert.Equal(t, 1, res.Cleaning.DuplicatesRemoved)
	assert.Equal(t, 2, res.Document.Metadata.TotalRows)
	require.Len(t, res.Document.DataAggregates, 2)
	assert.Equal(t, "type", res.Document.DataAggregates[0].Column)
	assert.Equal(t, []classify.AggregateRecord{
		{Value: "A", Count: 1, Percentage: 50},
		{Value: "B", Count: 1, Percentage: 50},
	}, res.Document.DataAggregates[0].Records)
}

func TestRunReport(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/data/acidentes.csv", accidentsCSV)

	res, err := newTestService(t, fs).Run(context.Background(), "/data/acidentes.csv", report.ModeReport)
	require.NoError(t, err)
	require.NotNil(t, res.Document.Slides)
	assert.Equal(t, 4, res.Document.Slides.Slide2.KPIs.TotalAccidents)
	assert.Equal(t, 3, res.Document.Slides.Slide2.KPIs.Fatalities)
	assert.NotEmpty(t, res.Document.Metadata.Warnings, "missing report columns are reported as warnings")
}

func TestRunEncodingFallback(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/latin.csv", "id;tipo\n1;Colis\xe3o\n2;Colis\xe3o\n")

	res, err := newTestService(t, fs).Run(context.Background(), "/latin.csv", report.ModeGeneric)
	require.NoError(t, err)
	assert.Equal(t, ingest.StrategyEncodingFallback, res.Load.Provenance.Strategy)
	assert.Equal(t, "latin-1", res.Load.Provenance.Encoding)
	require.Len(t, res.Document.DataAggregates, 1)
	assert.Equal(t, "Colisão", res.Document.DataAggregates[0].Records[0].Value)
}

func TestRunFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/empty.csv", "")
	svc := newTestService(t, fs)

	_, err := svc.Run(context.Background(), "/empty.csv", report.ModeGeneric)
	var ierr *ingest.ErrIngest
	require.True(t, errors.As(err, &ierr))
	assert.Len(t, ierr.Attempts, 3)

	_, err = svc.Run(context.Background(), "/empty.csv", "slides")
	assert.ErrorContains(t, err, "unknown mode")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Run(ctx, "/empty.csv", report.ModeGeneric)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInspect(t *testing.T) {
	fs := afero.NewMemMapFs()
	var b strings.Builder
	b.WriteString("id,tipo\n")
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&b, "%d,T%d\n", i, i%2)
	}
	writeFile(t, fs, "/many.csv", b.String())

	in, err := newTestService(t, fs).Inspect(context.Background(), "/many.csv")
	require.NoError(t, err)
	assert.Len(t, in.Head, 10)
	assert.Len(t, in.Tail, 5)
	assert.Equal(t, "1", in.Head[0][0].Text())
	assert.Equal(t, "8", in.Tail[0][0].Text())
	require.Len(t, in.Profiles, 2)
	assert.Equal(t, "number", in.Profiles[0].Kind)

	var out bytes.Buffer
	require.NoError(t, in.WriteText(&out))
	assert.Contains(t, out.String(), "First 10 rows:")
	assert.Contains(t, out.String(), "Last 5 rows:")
	assert.Contains(t, out.String(), "categorical")
}

func TestInspectShortTable(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/short.csv", "a,b\n1,2\n")

	in, err := newTestService(t, fs).Inspect(context.Background(), "/short.csv")
	require.NoError(t, err)
	assert.Len(t, in.Head, 1)
	assert.Len(t, in.Tail, 1)
}

func TestExport(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/data/acidentes.csv", accidentsCSV)
	svc := newTestService(t, fs)
	res, err := svc.Run(context.Background(), "/data/acidentes.csv", report.ModeGeneric)
	require.NoError(t, err)

	opts := ExportOptions{
		OutFile:     "/out/doc.json",
		Format:      output.FormatJSON,
		MarkdownOut: "/out/prompt.md",
		CleanCSVOut: "/out/clean.csv",
		SQLOut:      "/out/rows.sql",
		SQLDialect:  "postgres",
		SQLTable:    "acidentes",
	}
	written, err := svc.Export(res, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"/out/doc.json", "/out/prompt.md", "/out/clean.csv", "/out/rows.sql"}, written)

	sql, err := afero.ReadFile(fs, "/out/rows.sql")
	require.NoError(t, err)
	assert.Contains(t, string(sql), `CREATE TABLE "acidentes"`)
	assert.Equal(t, 4, strings.Count(string(sql), "INSERT INTO"))

	md, err := afero.ReadFile(fs, "/out/prompt.md")
	require.NoError(t, err)
	assert.Equal(t, res.Document.Markdown(), string(md))

	t.Run("existing files need force or confirmation", func(t *testing.T) {
		_, err := svc.Export(res, ExportOptions{OutFile: "/out/doc.json", Format: output.FormatJSON})
		assert.ErrorIs(t, err, output.ErrExists)

		asked := ""
		written, err := svc.Export(res, ExportOptions{OutFile: "/out/doc.json", Format: output.FormatJSON, Confirm: func(p string) bool {
			asked = p
			return true
		}})
		require.NoError(t, err)
		assert.Equal(t, "/out/doc.json", asked)
		assert.Equal(t, []string{"/out/doc.json"}, written)
	})

	t.Run("unknown dialect", func(t *testing.T) {
		_, err := svc.Export(res, ExportOptions{SQLOut: "/out/x.sql", SQLDialect: "oracle", Force: true})
		assert.ErrorContains(t, err, "unsupported SQL dialect")
	})
}
