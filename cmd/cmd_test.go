package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/ingest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const accidentsCSV = "id;tipo_acidente;causa_acidente;br;municipio;mortos;feridos_graves\n" +
	"1;Colisão traseira;Velocidade;116;CURITIBA;1;0\n" +
	"2;Colisão traseira;Sono;116;CURITIBA;0;1\n" +
	"3;Tombamento;Velocidade;277;LONDRINA;0;0\n"

func executeCommand(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "")
	appFs = fs
	dryRun = false
	configFile = ""
	extractFlags = outputFlags{}
	reportFlags = outputFlags{}
	t.Cleanup(func() { appFs = afero.NewOsFs() })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func newFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/acidentes.csv", []byte(accidentsCSV), 0o644))
	return fs
}

func TestExtractDryRun(t *testing.T) {
	fs := newFs(t)
	out, err := executeCommand(t, fs, "extract", "/data/acidentes.csv", "--format", "yaml", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "dataAggregates:")
	assert.Contains(t, out, "Colisão traseira")

	exists, err := afero.Exists(fs, "/data/acidentes_aggregates.yaml")
	require.NoError(t, err)
	assert.False(t, exists, "dry run writes nothing")
}

func TestReportWritesDefaultFile(t *testing.T) {
	fs := newFs(t)
	out, err := executeCommand(t, fs, "report", "/data/acidentes.csv", "--sql_out", "/data/rows.sql", "--sql_dialect", "mysql")
	require.NoError(t, err)
	assert.Contains(t, out, "Written: /data/acidentes_report.json")
	assert.Contains(t, out, "Written: /data/rows.sql")

	doc, err := afero.ReadFile(fs, "/data/acidentes_report.json")
	require.NoError(t, err)
	assert.Contains(t, string(doc), `"slide_2"`)
	assert.Contains(t, string(doc), `"BR-116"`)

	sql, err := afero.ReadFile(fs, "/data/rows.sql")
	require.NoError(t, err)
	assert.Contains(t, string(sql), "CREATE TABLE `cleaned_rows`")
}

func TestExtractRefusesOverwrite(t *testing.T) {
	fs := newFs(t)
	require.NoError(t, afero.WriteFile(fs, "/data/out.json", []byte("{}"), 0o644))

	_, err := executeCommand(t, fs, "extract", "/data/acidentes.csv", "-o", "/data/out.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = executeCommand(t, fs, "extract", "/data/acidentes.csv", "-o", "/data/out.json", "--force")
	require.NoError(t, err)
	content, err := afero.ReadFile(fs, "/data/out.json")
	require.NoError(t, err)
	assert.Contains(t, string(content), `"dataAggregates"`)
}

func TestExtractKeywordsOverride(t *testing.T) {
	fs := newFs(t)
	out, err := executeCommand(t, fs, "extract", "/data/acidentes.csv", "--dry-run", "--keywords", "categorical[causa],location[municipio]")
	require.NoError(t, err)
	assert.Contains(t, out, `"column": "causa_acidente"`)
	assert.NotContains(t, out, `"column": "tipo_acidente"`)

	_, err = executeCommand(t, fs, "extract", "/data/acidentes.csv", "--dry-run", "--keywords", "numeric[x]")
	assert.ErrorContains(t, err, "invalid --keywords")
}

func TestInspectCommand(t *testing.T) {
	fs := newFs(t)
	out, err := executeCommand(t, fs, "inspect", "/data/acidentes.csv")
	require.NoError(t, err)
	assert.Contains(t, out, "Strategy:")
	assert.Contains(t, out, "First 3 rows:")
}

func TestCommandErrors(t *testing.T) {
	fs := newFs(t)
	require.NoError(t, afero.WriteFile(fs, "/data/empty.csv", nil, 0o644))

	_, err := executeCommand(t, fs, "extract", "/data/empty.csv")
	var ierr *ingest.ErrIngest
	assert.True(t, errors.As(err, &ierr))
	exists, _ := afero.Exists(fs, "/data/empty_aggregates.json")
	assert.False(t, exists, "no document is written when ingestion fails")

	_, err = executeCommand(t, fs, "extract", "/data/acidentes.csv", "--format", "pdf")
	assert.ErrorContains(t, err, "unsupported format")
}
