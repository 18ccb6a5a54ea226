// Package ui renders fhirgen command output: aligned tables, entity trees
// and coloured status messages.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Table represents a simple table for displaying tabular data.
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// TableOptions configures table behavior.
type TableOptions struct {
	NoColor bool
	// Plain renders "a | b | c" lines without alignment or color.
	Plain bool
}

// NewTable creates a new table with the given headers.
func NewTable(w io.Writer, headers []string, opts *TableOptions) *Table {
	t := &Table{
		writer:  w,
		headers: headers,
	}
	if opts != nil {
		t.noColor = opts.NoColor || opts.Plain
	}
	return t
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render renders the table to the writer.
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)
	if t.noColor {
		bold.DisableColor()
		gray.DisableColor()
	}

	for i, header := range t.headers {
		if i == len(t.headers)-1 {
			bold.Fprint(t.writer, header)
			continue
		}
		bold.Fprint(t.writer, padRight(header, widths[i]))
		fmt.Fprint(t.writer, "  ")
	}
	fmt.Fprintln(t.writer)

	for i, width := range widths {
		gray.Fprint(t.writer, strings.Repeat("─", width))
		if i < len(widths)-1 {
			gray.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)

	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if i == len(row)-1 || i == len(widths)-1 {
				fmt.Fprint(t.writer, cell)
				continue
			}
			fmt.Fprint(t.writer, padRight(cell, widths[i]), "  ")
		}
		fmt.Fprintln(t.writer)
	}
}

// RenderPlain writes the header and every row as " | " separated lines.
func (t *Table) RenderPlain() {
	fmt.Fprintln(t.writer, strings.Join(t.headers, " | "))
	for _, row := range t.rows {
		fmt.Fprintln(t.writer, strings.Join(row, " | "))
	}
}

// padRight pads a string with spaces on the right to reach the target width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
