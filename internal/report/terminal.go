package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	averageStyle = cellStyle.
			Foreground(lipgloss.Color("214"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// DailyTable renders the per-day statistics with the trailing average row.
func DailyTable(rows [][]string) string {
	last := len(rows) - 1
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(DailyHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == last:
				return averageStyle
			default:
				return cellStyle
			}
		}).
		String()
}

// GlobalTable renders the influence/sentiment correlation.
func GlobalTable(row []string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(GlobalHeaders...).
		Row(row...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

// WriteTerminal prints the run summary and both tables.
func WriteTerminal(w io.Writer, d Data) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Daily sentiment"))
	b.WriteString("\n")
	if d.Result.ExcludeNeutral {
		b.WriteString(mutedStyle.Render("Neutral records excluded from statistics"))
	} else {
		b.WriteString(mutedStyle.Render("Neutral records included in statistics"))
	}
	b.WriteString("\n")
	b.WriteString(DailyTable(DailyRows(d.Result)))
	b.WriteString("\n")

	if skipped := d.SkippedDates(); len(skipped) > 0 {
		names := make([]string, len(skipped))
		for i, s := range skipped {
			names[i] = s.String()
		}
		b.WriteString(mutedStyle.Render("No eligible records on: " + strings.Join(names, ", ")))
		b.WriteString("\n")
	}

	if notes := dayNotes(d); len(notes) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Notes"))
		b.WriteString("\n")
		for _, n := range notes {
			b.WriteString(n)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Influence vs sentiment"))
	b.WriteString("\n")
	b.WriteString(GlobalTable(GlobalRow(d.Result.Global)))
	b.WriteString("\n")

	if len(d.GraphFiles) > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%d graph files written", len(d.GraphFiles))))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// dayNotes lists the annotations of the reported days, oldest day first.
func dayNotes(d Data) []string {
	var lines []string
	for _, day := range d.Result.Days {
		for _, note := range d.Annotations.ForDate(day.Date) {
			lines = append(lines, fmt.Sprintf("%s  %s", day.Date, note))
		}
	}
	return lines
}
