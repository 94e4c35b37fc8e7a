package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/framebudget/internal/domain"
)

// FormatSeries renders one series as a titled year table.
func FormatSeries(s *domain.Series) string {
	var b strings.Builder

	title := fmt.Sprintf("%s  %s", Bold(s.Name), Dim(fmt.Sprintf("%s %s · %s", s.View, s.Kind, s.NodeID)))
	b.WriteString(title)
	b.WriteString("\n")

	var flags []string
	if s.FrameView {
		flags = append(flags, "frame view")
	}
	if s.CoordinatorView {
		flags = append(flags, "coordinator view")
	}
	if s.ProjectBudgets != nil {
		flags = append(flags, "project budgets "+Money(*s.ProjectBudgets))
	}
	if len(flags) > 0 {
		b.WriteString(Dim(strings.Join(flags, " · ")))
		b.WriteString("\n")
	}
	if s.Degraded {
		b.WriteString(StyleYellow.Render("partial result: some branches could not be resolved and count as zero"))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	headers := []string{"YEAR", "PLANNED", "FRAME", "CHANGE", "OVERLAP"}
	rows := make([][]string, 0, len(s.Years))
	for _, y := range s.Years {
		rows = append(rows, []string{
			strconv.Itoa(y.Year),
			Money(y.PlannedBudget),
			Money(y.FrameBudget),
			Money(y.BudgetChange),
			OverlapIndicator(y.OverlapsFrame),
		})
	}
	b.WriteString(RenderTable(headers, rows, 1, 2, 3))
	return b.String()
}

// FormatSeriesList renders several series separated by blank lines.
func FormatSeriesList(list []*domain.Series) string {
	parts := make([]string, 0, len(list))
	for _, s := range list {
		parts = append(parts, FormatSeries(s))
	}
	return strings.Join(parts, "\n")
}
