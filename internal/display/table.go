// Package display renders procwatch output for terminals.
package display

import (
	"fmt"
	"io"
	"strings"
)

// Table renders bordered tables. Cells may carry ANSI colors; widths are
// measured on the visible text.
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable creates a new table with the given headers.
func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = visibleLen(h)
	}
	return &Table{headers: headers, widths: widths}
}

// AddRow appends a row. Cells beyond the header count are ignored.
func (t *Table) AddRow(cells ...string) {
	for i, c := range cells {
		if i < len(t.widths) {
			t.widths[i] = max(t.widths[i], visibleLen(c))
		}
	}
	t.rows = append(t.rows, cells)
}

// Render writes the table with dim borders and bold headers.
func (t *Table) Render(w io.Writer) {
	if len(t.headers) == 0 {
		return
	}
	t.border(w, "┌", "┬", "┐")
	bolded := make([]string, len(t.headers))
	for i, h := range t.headers {
		bolded[i] = Bold(h)
	}
	t.row(w, bolded)
	t.border(w, "├", "┼", "┤")
	for _, r := range t.rows {
		t.row(w, r)
	}
	t.border(w, "└", "┴", "┘")
}

func (t *Table) border(w io.Writer, left, mid, right string) {
	var b strings.Builder
	b.WriteString(dim + left)
	for i, width := range t.widths {
		b.WriteString(strings.Repeat("─", width+2))
		if i < len(t.widths)-1 {
			b.WriteString(mid)
		}
	}
	b.WriteString(right + reset)
	fmt.Fprintln(w, b.String())
}

func (t *Table) row(w io.Writer, cells []string) {
	var b strings.Builder
	b.WriteString(Dim("│"))
	for i, width := range t.widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		b.WriteString(" " + padRight(cell, width) + " " + Dim("│"))
	}
	fmt.Fprintln(w, b.String())
}
