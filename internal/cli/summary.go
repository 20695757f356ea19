package cli

import (
	"fmt"
	"strings"

	"github.com/Veraticus/biweekly/internal/model"
	"github.com/charmbracelet/lipgloss"
)

const dateLayout = "Jan 2, 2006"

// RenderGeneration summarizes a generated workbook in a box.
func RenderGeneration(gen *model.Generation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s Workbook: %s\n", LedgerIcon, gen.OutputPath)
	switch gen.AnchorKind {
	case model.AnchorPredecessor:
		fmt.Fprintf(&b, "%s Continues %s (%s)\n", CalendarIcon, gen.PredecessorPath, gen.SourceSheet)
	default:
		fmt.Fprintf(&b, "%s Start day entered by operator\n", CalendarIcon)
		if gen.HasPredecessor() {
			fmt.Fprintf(&b, "  Balances from %s (%s)\n", gen.PredecessorPath, gen.SourceSheet)
		}
	}

	b.WriteString("\nPay periods:\n")
	for _, sp := range gen.SubPeriods {
		line := fmt.Sprintf("  %d. %s to %s", sp.Index, sp.Start.Format(dateLayout), sp.End.Format(dateLayout))
		if sp.Retained {
			b.WriteString(SuccessStyle.Render(line))
		} else {
			b.WriteString(SubtleStyle.Render(line + " (removed, ends next month)"))
		}
		b.WriteString("\n")
	}

	if gen.HasPredecessor() {
		carried := 0
		for _, bal := range gen.Balances {
			if !bal.IsBlank() {
				carried++
			}
		}
		fmt.Fprintf(&b, "\nCarried %d balances, total %s\n", carried, gen.CarriedTotal().StringFixed(2))
	}

	return RenderBox(fmt.Sprintf("Budget for %s", gen.Period), strings.TrimRight(b.String(), "\n"))
}

// RenderHistory renders recorded generations as a table, most recent first.
func RenderHistory(gens []model.Generation) string {
	if len(gens) == 0 {
		return FormatInfo("No budget workbooks have been generated yet.")
	}

	headers := []string{"Period", "Start", "Pay periods", "Anchor", "Carried", "Workbook"}
	rows := make([][]string, 0, len(gens))
	for _, g := range gens {
		rows = append(rows, []string{
			g.Period.String(),
			g.AnchorDate.Format("2006-01-02"),
			fmt.Sprintf("%d/%d", len(g.RetainedSubPeriods()), len(g.SubPeriods)),
			string(g.AnchorKind),
			g.CarriedTotal().StringFixed(2),
			g.OutputPath,
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	render := func(style lipgloss.Style, cells []string) string {
		out := make([]string, len(cells))
		for i, cell := range cells {
			out[i] = style.Width(widths[i] + TableCellStyle.GetPaddingRight()).Render(cell)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, out...)
	}

	lines := []string{render(TableHeaderStyle, headers)}
	for _, row := range rows {
		lines = append(lines, render(TableCellStyle, row))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
