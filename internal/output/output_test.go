package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/classify"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/config"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/ingest"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/report"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/table"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

func testDocument(t *testing.T, mode string) *report.Document {
	t.Helper()
	tbl := table.New([]string{"tipo_acidente", "br", "mortos"})
	require.NoError(t, tbl.Append(table.Row{table.String("Colisão <traseira>"), table.Number(116), table.Number(1)}))
	require.NoError(t, tbl.Append(table.Row{table.String("Tombamento"), table.Number(277), table.Number(0)}))
	require.NoError(t, tbl.Append(table.Row{table.String("Colisão <traseira>"), table.Number(116), table.Number(2)}))
	profiles, groups := classify.New(classify.DefaultRules(), nil).Classify(tbl)

	a := report.NewAssembler(config.GetConfig().Report, nil,
		report.WithClock(func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }),
		report.WithIDGenerator(func() string { return "run-1" }))
	in := report.Input{
		SourcePath: "acidentes.csv",
		Detection:  ingest.Detection{Delimiter: ';'},
		Table:      tbl,
		Profiles:   profiles,
		Groups:     groups,
	}
	var doc *report.Document
	var err error
	if mode == report.ModeReport {
		doc, err = a.Report(context.Background(), in)
	} else {
		doc, err = a.Generic(context.Background(), in)
	}
	require.NoError(t, err)
	return doc
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDocument(&buf, testDocument(t, report.ModeReport), FormatJSON))

	out := buf.String()
	assert.Contains(t, out, "\n  \"metadata\": {")
	assert.Contains(t, out, "Colisão <traseira>", "HTML characters must not be escaped")
	assert.Less(t, strings.Index(out, `"BR-116"`), strings.Index(out, `"BR-277"`))

	var back map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "run-1", back["metadata"].(map[string]any)["runId"])
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDocument(&buf, testDocument(t, report.ModeReport), FormatYAML))

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	meta := back["metadata"].(map[string]any)
	assert.Equal(t, "acidentes.csv", meta["sourceFile"])
	assert.Equal(t, "02/01/2025 03:04:05", meta["extractedAt"])

	slides := back["slides"].(map[string]any)
	s5 := slides["slide_5"].(map[string]any)["data"].(map[string]any)
	assert.Equal(t, 2, s5["BR-116"].(map[string]any)["count"])
	assert.Less(t, strings.Index(buf.String(), "BR-116:"), strings.Index(buf.String(), "BR-277:"))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDocument(&buf, testDocument(t, report.ModeReport), FormatXLSX))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetMetadata, SheetAggregates, SheetKPIs, SheetSlides}, f.GetSheetList())

	v, err := f.GetCellValue(SheetMetadata, "B5")
	require.NoError(t, err)
	assert.Equal(t, "acidentes.csv", v)

	rows, err := f.GetRows(SheetAggregates)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, []string{"Column", "Role", "Value", "Count", "Percentage"}, rows[0])
	assert.Equal(t, []string{"tipo_acidente", "categorical", "Colisão <traseira>", "2", "66.67"}, rows[1])

	kpis, err := f.GetRows(SheetKPIs)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fatalities", "3"}, kpis[2])
}

func TestWriteXLSXGenericHasNoSlideSheets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, testDocument(t, report.ModeGeneric)))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetMetadata, SheetAggregates}, f.GetSheetList())
}

func TestWriteDocumentUnknownFormat(t *testing.T) {
	err := WriteDocument(io.Discard, testDocument(t, report.ModeGeneric), "pdf")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestWriteCSV(t *testing.T) {
	tbl := table.New([]string{"a", "b,c"})
	require.NoError(t, tbl.Append(table.Row{table.Number(1.5), table.String("x \"y\"")}))
	require.NoError(t, tbl.Append(table.Row{table.Null(), table.String("São")}))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))
	assert.Equal(t, "a,\"b,c\"\n1.5,\"x \"\"y\"\"\"\n,São\n", buf.String())
}

func TestWriteFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	write := func(s string) func(io.Writer) error {
		return func(w io.Writer) error {
			_, err := io.WriteString(w, s)
			return err
		}
	}

	require.NoError(t, WriteFile(fs, "/out/doc.json", false, write("first")))

	err := WriteFile(fs, "/out/doc.json", false, write("second"))
	assert.True(t, errors.Is(err, ErrExists))
	got, _ := afero.ReadFile(fs, "/out/doc.json")
	assert.Equal(t, "first", string(got))

	require.NoError(t, WriteFile(fs, "/out/doc.json", true, write("2nd")))
	got, _ = afero.ReadFile(fs, "/out/doc.json")
	assert.Equal(t, "2nd", string(got))

	boom := errors.New("boom")
	assert.ErrorIs(t, WriteFile(fs, "/out/other.json", false, func(io.Writer) error { return boom }), boom)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "json", Extension(FormatJSON))
	assert.Equal(t, "yaml", Extension(FormatYAML))
	assert.Equal(t, "xlsx", Extension(FormatXLSX))
	assert.Equal(t, "json", Extension(""))
}
