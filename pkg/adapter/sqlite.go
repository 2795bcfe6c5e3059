package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/thomasrohde/mashd/pkg/value"
)

// SQLite runs a query against a SQLite database. Source is the driver DSN,
// e.g. a file path or "file:data.db?mode=ro".
type SQLite struct{}

func (SQLite) Name() string        { return "sqlite" }
func (SQLite) RequiresQuery() bool { return true }

func (SQLite) Read(ctx context.Context, cfg Config) ([]*value.Row, error) {
	if strings.TrimSpace(cfg.Query) == "" {
		return nil, fmt.Errorf("sqlite: %w", ErrMissingQuery)
	}
	if strings.TrimSpace(cfg.Source) == "" {
		return nil, fmt.Errorf("sqlite: %w: empty source", ErrInvalidFilePath)
	}

	db, err := sql.Open("sqlite3", cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", cfg.Source, err)
	}
	defer db.Close()

	rs, err := db.QueryContext(ctx, cfg.Query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rs.Close()

	cols, err := rs.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlite: columns: %w", err)
	}

	var rows []*value.Row
	for rs.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		cells := make([]value.Cell, len(cols))
		for i, col := range cols {
			v := dest[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			cells[i] = value.Cell{Column: col, Value: v}
		}
		rows = append(rows, value.NewRow(cells...))
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return rows, nil
}
