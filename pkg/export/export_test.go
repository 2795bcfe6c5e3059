package export_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/export"
	"github.com/thomasrohde/mashd/pkg/value"
)

func sample() *value.Dataset {
	s := value.NewSchema()
	s.Add("id", value.SchemaField{Type: ast.TypeInteger, Name: "ID"})
	s.Add("seen", value.SchemaField{Type: ast.TypeDate, Name: "Seen"})
	s.Add("note", value.SchemaField{Type: ast.TypeText, Name: "Note"})
	return &value.Dataset{Schema: s, Rows: []*value.Row{
		value.NewRow(
			value.Cell{Column: "id", Value: int64(1)},
			value.Cell{Column: "seen", Value: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
			value.Cell{Column: "note", Value: "a, b"},
		),
		value.NewRow(value.Cell{Column: "id", Value: int64(2)}),
	}}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, sample()))
	assert.Equal(t, "id,seen,note\n1,2024-05-01,\"a, b\"\n2,,\n", buf.String())
}

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, export.WriteCSVFile(path, sample()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,seen,note\n"))
}

func TestWriteCSVFileInvalidPath(t *testing.T) {
	for _, path := range []string{"", "   ", filepath.Join(t.TempDir(), "missing", "out.csv"), t.TempDir()} {
		err := export.WriteCSVFile(path, sample())
		assert.True(t, errors.Is(err, export.ErrInvalidFilePath), "path %q: %v", path, err)
	}
}

func TestColumnsFallBackToRows(t *testing.T) {
	ds := &value.Dataset{Schema: value.NewSchema(), Rows: []*value.Row{
		value.NewRow(value.Cell{Column: "a.id", Value: int64(1)}, value.Cell{Column: "b.id", Value: int64(1)}),
	}}
	assert.Equal(t, []string{"a.id", "b.id"}, export.Columns(ds))
}

func TestTable(t *testing.T) {
	out := export.Table(sample())
	for _, want := range []string{"id", "seen", "note", "2024-05-01", "a, b", "2 rows"} {
		assert.Contains(t, out, want)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteJSON(&buf, value.Integer{Value: 3}))
	assert.Equal(t, "3\n", buf.String())
}
