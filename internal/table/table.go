// Package table renders rows of text as a bordered ASCII table. Widths are
// measured without ANSI escape sequences, so colored cells stay aligned.
package table

import (
	"io"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Alignment of the text within a cell.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripAnsi(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func visibleWidth(s string) int {
	return utf8.RuneCountInString(stripAnsi(s))
}

// Table accumulates a header and rows and writes them on Render.
type Table struct {
	w           io.Writer
	header      []string
	headerAlign []Alignment
	columnAlign []Alignment
	rows        [][]string
}

func NewTable(w io.Writer) *Table {
	return &Table{w: w}
}

func (t *Table) WithHeader(header []string) *Table {
	t.header = header
	return t
}

func (t *Table) WithHeaderAlignment(align []Alignment) *Table {
	t.headerAlign = align
	return t
}

func (t *Table) WithColumnAlignment(align []Alignment) *Table {
	t.columnAlign = align
	return t
}

// Append adds a row.
func (t *Table) Append(row []string) {
	t.rows = append(t.rows, row)
}

func (t *Table) columnCount() int {
	n := len(t.header)
	for _, row := range t.rows {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

func (t *Table) widths(n int) []int {
	widths := make([]int, n)
	measure := func(row []string) {
		for i, cell := range row {
			if w := visibleWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.header)
	for _, row := range t.rows {
		measure(row)
	}
	return widths
}

// Render writes the table.
func (t *Table) Render() error {
	n := t.columnCount()
	if n == 0 {
		return nil
	}
	widths := t.widths(n)
	var b strings.Builder
	border := borderLine(widths)
	b.WriteString(border)
	if len(t.header) > 0 {
		writeRow(&b, t.header, widths, t.headerAlign)
		b.WriteString(border)
	}
	for _, row := range t.rows {
		writeRow(&b, row, widths, t.columnAlign)
	}
	if len(t.rows) > 0 {
		b.WriteString(border)
	}
	_, err := io.WriteString(t.w, b.String())
	return err
}

func borderLine(widths []int) string {
	var b strings.Builder
	b.WriteString("+")
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteString("+")
	}
	b.WriteString("\n")
	return b.String()
}

func writeRow(b *strings.Builder, row []string, widths []int, align []Alignment) {
	b.WriteString("|")
	for i, w := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		a := AlignLeft
		if i < len(align) {
			a = align[i]
		}
		b.WriteString(" ")
		b.WriteString(pad(cell, w, a))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

func pad(cell string, width int, align Alignment) string {
	space := width - visibleWidth(cell)
	if space <= 0 {
		return cell
	}
	switch align {
	case AlignRight:
		return strings.Repeat(" ", space) + cell
	case AlignCenter:
		left := space / 2
		return strings.Repeat(" ", left) + cell + strings.Repeat(" ", space-left)
	default:
		return cell + strings.Repeat(" ", space)
	}
}
