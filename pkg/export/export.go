// Package export writes datasets out: CSV files, terminal tables, JSON.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/thomasrohde/mashd/pkg/value"
)

var ErrInvalidFilePath = errors.New("invalid file path")

// Columns returns the output columns of ds: its schema keys, or the
// columns of its first row when the schema is empty.
func Columns(ds *value.Dataset) []string {
	if keys := ds.Schema.Keys(); len(keys) > 0 {
		return keys
	}
	if len(ds.Rows) > 0 {
		return ds.Rows[0].Columns()
	}
	return nil
}

// Cells renders one row as text, in column order.
func Cells(r *value.Row, columns []string) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		v, _ := r.Get(col)
		out[i] = value.FormatScalar(v)
	}
	return out
}

// CheckPath validates an output file path: it must be non-blank, and its
// directory must exist.
func CheckPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidFilePath)
	}
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: directory %s does not exist", ErrInvalidFilePath, dir)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidFilePath, path)
	}
	return nil
}

// WriteCSVFile writes ds to path as comma-separated values with a header.
func WriteCSVFile(path string, ds *value.Dataset) error {
	if err := CheckPath(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFilePath, err)
	}
	if err := WriteCSV(f, ds); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteCSV writes ds to w with a header row.
func WriteCSV(w io.Writer, ds *value.Dataset) error {
	cols := Columns(ds)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	for _, r := range ds.Rows {
		if err := cw.Write(Cells(r, cols)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v value.Value) error {
	raw, err := value.ToJSON(v)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}
