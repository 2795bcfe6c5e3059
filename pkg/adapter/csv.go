package adapter

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/thomasrohde/mashd/pkg/value"
)

// CSV reads delimited text files. The first record is the header; every
// cell is read as Text.
type CSV struct{}

func (CSV) Name() string        { return "csv" }
func (CSV) RequiresQuery() bool { return false }

func (c CSV) Read(ctx context.Context, cfg Config) ([]*value.Row, error) {
	if strings.TrimSpace(cfg.Source) == "" {
		return nil, fmt.Errorf("csv: %w: empty source", ErrInvalidFilePath)
	}
	comma, err := delimiterRune(cfg.Delimiter)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(cfg.Source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("csv: %w: %s", ErrInvalidFilePath, cfg.Source)
		}
		return nil, fmt.Errorf("csv: %w", err)
	}
	defer f.Close()

	return readCSV(ctx, f, comma)
}

func readCSV(ctx context.Context, r io.Reader, comma rune) ([]*value.Row, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: reading header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows []*value.Row
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		cells := make([]value.Cell, 0, len(header))
		for i, col := range header {
			if i >= len(rec) {
				break
			}
			cells = append(cells, value.Cell{Column: col, Value: rec[i]})
		}
		rows = append(rows, value.NewRow(cells...))
	}
	return rows, nil
}

func delimiterRune(d string) (rune, error) {
	if d == "" {
		d = DefaultDelimiter
	}
	if d == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(d)
	if size != len(d) || r == utf8.RuneError || r == '"' || r == '\n' || r == '\r' {
		return 0, fmt.Errorf("csv: invalid delimiter %q", d)
	}
	return r, nil
}
