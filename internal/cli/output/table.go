package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table accumulates rows and renders them as a borderless table.
type Table struct {
	w        io.Writer
	renderer *lipgloss.Renderer
	headers  []string
	rows     [][]string
}

func newTable(w io.Writer, r *lipgloss.Renderer) *Table {
	return &Table{w: w, renderer: r}
}

// SetHeaders sets the header row.
func (t *Table) SetHeaders(headers ...string) {
	t.headers = headers
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// String renders the table.
func (t *Table) String() string {
	cell := t.renderer.NewStyle().PaddingRight(2)
	tbl := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(false).
		Headers(t.headers...).
		Rows(t.rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			return cell
		})
	return tbl.String()
}

// Render writes the table.
func (t *Table) Render() {
	fmt.Fprintln(t.w, t.String())
}
