package export

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/thomasrohde/mashd/pkg/value"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// Table renders ds as a bordered table followed by a row count line.
func Table(ds *value.Dataset) string {
	cols := Columns(ds)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(cols...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, r := range ds.Rows {
		t.Row(Cells(r, cols)...)
	}

	noun := "rows"
	if len(ds.Rows) == 1 {
		noun = "row"
	}
	return t.String() + "\n" + footerStyle.Render(fmt.Sprintf("%d %s", len(ds.Rows), noun))
}

// WriteTable writes Table(ds) and a newline to w.
func WriteTable(w io.Writer, ds *value.Dataset) error {
	_, err := fmt.Fprintln(w, Table(ds))
	return err
}
