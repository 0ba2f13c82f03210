package sqlscript_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/sqlscript"
	_ "github.com/GoogleCloudPlatform/csv-report-extraction/internal/sqlscript/mysql"
	_ "github.com/GoogleCloudPlatform/csv-report-extraction/internal/sqlscript/postgres"
	_ "github.com/GoogleCloudPlatform/csv-report-extraction/internal/sqlscript/sqlserver"
	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New([]string{"id", "name", "score", "code"})
	require.NoError(t, tbl.Append(table.Row{table.Number(1), table.String("O'Neil"), table.Number(2.5), table.Number(7)}))
	require.NoError(t, tbl.Append(table.Row{table.Number(2), table.Null(), table.Null(), table.String("X1")}))
	return tbl
}

func TestDialectsRegistered(t *testing.T) {
	assert.Equal(t, []string{"mysql", "postgres", "sqlserver"}, sqlscript.Dialects())
	_, err := sqlscript.GetDialectHandler("oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported SQL dialect: oracle")
}

func TestInferColumnTypes(t *testing.T) {
	got := sqlscript.InferColumnTypes(sampleTable(t))
	assert.Equal(t, []sqlscript.ColumnType{sqlscript.TypeInteger, sqlscript.TypeText, sqlscript.TypeDecimal, sqlscript.TypeText}, got)

	empty := table.New([]string{"only_nulls"})
	require.NoError(t, empty.Append(table.Row{table.Null()}))
	assert.Equal(t, []sqlscript.ColumnType{sqlscript.TypeText}, sqlscript.InferColumnTypes(empty))
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		dialect string
		want    string
	}{
		{
			dialect: "postgres",
			want: `CREATE TABLE "cleaned_rows" (
    "id" BIGINT,
    "name" TEXT,
    "score" DOUBLE PRECISION,
    "code" TEXT
);
INSERT INTO "cleaned_rows" ("id", "name", "score", "code") VALUES (1, 'O''Neil', 2.5, '7');
INSERT INTO "cleaned_rows" ("id", "name", "score", "code") VALUES (2, NULL, NULL, 'X1');
`,
		},
		{
			dialect: "mysql",
			want: "CREATE TABLE `cleaned_rows` (\n" +
				"    `id` BIGINT,\n" +
				"    `name` TEXT,\n" +
				"    `score` DOUBLE,\n" +
				"    `code` TEXT\n" +
				");\n" +
				"INSERT INTO `cleaned_rows` (`id`, `name`, `score`, `code`) VALUES (1, 'O''Neil', 2.5, '7');\n" +
				"INSERT INTO `cleaned_rows` (`id`, `name`, `score`, `code`) VALUES (2, NULL, NULL, 'X1');\n",
		},
		{
			dialect: "sqlserver",
			want: `CREATE TABLE [cleaned_rows] (
    [id] BIGINT,
    [name] NVARCHAR(MAX),
    [score] FLOAT,
    [code] NVARCHAR(MAX)
);
INSERT INTO [cleaned_rows] ([id], [name], [score], [code]) VALUES (1, N'O''Neil', 2.5, N'7');
INSERT INTO [cleaned_rows] ([id], [name], [score], [code]) VALUES (2, NULL, NULL, N'X1');
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			h, err := sqlscript.GetDialectHandler(tt.dialect)
			require.NoError(t, err)
			var buf bytes.Buffer
			require.NoError(t, sqlscript.Generate(&buf, h, "cleaned_rows", sampleTable(t)))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	h, err := sqlscript.GetDialectHandler("postgres")
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.Error(t, sqlscript.Generate(&buf, nil, "t", sampleTable(t)))
	assert.Error(t, sqlscript.Generate(&buf, h, " ", sampleTable(t)))
	assert.Error(t, sqlscript.Generate(&buf, h, "t", table.New(nil)))
	assert.Empty(t, buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestGenerateReportsWriteErrors(t *testing.T) {
	h, err := sqlscript.GetDialectHandler("mysql")
	require.NoError(t, err)
	err = sqlscript.Generate(failingWriter{}, h, "t", sampleTable(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
