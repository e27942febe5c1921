package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
)

// Table outputs tabular data in text format. Column widths are measured in
// terminal cells, so wide runes in paths and commands stay aligned.
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	widths  []int

	// Style, when set, decorates a cell after it has been padded.
	Style func(col int, cell string) string
}

// NewTable creates a new table with headers
func NewTable(w io.Writer, headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	return &Table{
		writer:  w,
		headers: headers,
		rows:    [][]string{},
		widths:  widths,
	}
}

// AddRow adds a row to the table
func (t *Table) AddRow(cols ...string) {
	for i, c := range cols {
		if i < len(t.widths) {
			if w := runewidth.StringWidth(c); w > t.widths[i] {
				t.widths[i] = w
			}
		}
	}
	t.rows = append(t.rows, cols)
}

// Render outputs the table
func (t *Table) Render() {
	seps := make([]string, len(t.widths))
	for i, w := range t.widths {
		seps[i] = strings.Repeat("-", w)
	}
	t.renderRow(t.headers, false)
	t.renderRow(seps, false)
	for _, row := range t.rows {
		t.renderRow(row, true)
	}
}

func (t *Table) renderRow(row []string, styled bool) {
	var b strings.Builder
	b.WriteString("  ")
	for i := range t.headers {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		padded := runewidth.FillRight(cell, t.widths[i])
		if i == len(t.headers)-1 {
			padded = strings.TrimRight(padded, " ")
		}
		if styled && t.Style != nil {
			padded = t.Style(i, padded)
		}
		b.WriteString(padded)
		if i < len(t.headers)-1 {
			b.WriteString("  ")
		}
	}
	fmt.Fprintln(t.writer, b.String())
}

// Truncate shortens s to at most width terminal cells, ending in "...".
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return truncate.String(s, uint(width))
	}
	return truncate.StringWithTail(s, uint(width), "...")
}

// Pluralize returns singular or plural form based on count
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// CountStr returns "N item(s)" string
func CountStr(count int, singular, plural string) string {
	return fmt.Sprintf("%d %s", count, Pluralize(count, singular, plural))
}
