package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
)

// outputWriter is used for printing output, can be overridden in tests
var outputWriter io.Writer = os.Stdout

// errorWriter receives status lines that must not mix with records on stdout
var errorWriter io.Writer = os.Stderr

// setOutputWriter sets the output writer (used for testing)
func setOutputWriter(w io.Writer) {
	outputWriter = w
}

// resetOutputWriter resets output to stdout (used for testing)
func resetOutputWriter() {
	outputWriter = os.Stdout
}

// printHeader prints a formatted header
func printHeader(format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	width := runewidth.StringWidth(title) + 4
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
	fmt.Fprintf(outputWriter, "  %s\n", color.Bold.Sprint(title))
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
}

// printSection prints a section header
func printSection(title string) {
	fmt.Fprintf(outputWriter, "[%s]\n", color.Cyan.Sprint(title))
	fmt.Fprintln(outputWriter, strings.Repeat("-", runewidth.StringWidth(title)+2))
}

// printKV prints an aligned key/value line
func printKV(key string, value interface{}) {
	fmt.Fprintf(outputWriter, "  %s %v\n", runewidth.FillRight(key+":", 18), value)
}

// table renders left-aligned columns. Widths are measured in terminal cells,
// so labels with wide characters stay aligned.
type table struct {
	header []string
	rows   [][]string
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) widths() []int {
	widths := make([]int, len(t.header))
	for i, h := range t.header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				if w := runewidth.StringWidth(cell); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}
	return widths
}

// render writes the table; style, if set, colors a cell after padding.
func (t *table) render(w io.Writer, style func(col int, cell string) string) {
	widths := t.widths()

	line := func(cells []string, styled bool) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			padded := cell
			if i < len(cells)-1 && i < len(widths) {
				padded = runewidth.FillRight(cell, widths[i])
			}
			if styled && style != nil {
				padded = style(i, padded)
			}
			parts[i] = padded
		}
		fmt.Fprintln(w, "  "+strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	line(t.header, false)
	sep := make([]string, len(widths))
	for i, wd := range widths {
		sep[i] = strings.Repeat("-", wd)
	}
	line(sep, false)
	for _, row := range t.rows {
		line(row, true)
	}
}

// truncate shortens long type identifiers for tabular output.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}

func statusText(ok bool) string {
	if ok {
		return color.Green.Sprint("OK")
	}
	return color.Red.Sprint("FAILED")
}

// statusPlain is the uncolored status; coloring happens after padding.
func statusPlain(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAILED"
}

// statusColor colors a padded status cell.
func statusColor(cell string) string {
	if strings.HasPrefix(cell, "OK") {
		return color.Green.Sprint(cell)
	}
	return color.Red.Sprint(cell)
}
