package formatter

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alexanderramin/framebudget/internal/cache"
	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/alexanderramin/framebudget/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ansiPattern matches ANSI escape sequences.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func TestMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"999", "999"},
		{"58000", "58,000"},
		{"1234567.5", "1,234,567.50"},
		{"-1200", "-1,200"},
		{"0.125", "0.13"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Money(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestStyleHelpers(t *testing.T) {
	assert.Equal(t, "▲ over", stripANSI(OverlapIndicator(true)))
	assert.Equal(t, "·", stripANSI(OverlapIndicator(false)))
	assert.Equal(t, "note", stripANSI(Dim("note")))
	assert.Equal(t, "total", stripANSI(Bold("total")))
}

func TestRenderTable_AlignsColumns(t *testing.T) {
	out := stripANSI(RenderTable(
		[]string{"YEAR", "AMOUNT"},
		[][]string{{"2030", "5"}, {"2031", "58,000"}},
		1,
	))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "YEAR  AMOUNT", lines[0])
	assert.Equal(t, "2030       5", lines[2])
	assert.Equal(t, "2031  58,000", lines[3])
}

func TestRenderTable_NoHeaders(t *testing.T) {
	assert.Empty(t, RenderTable(nil, nil))
}

func TestFormatSeries(t *testing.T) {
	node := &domain.Node{ID: "c-main", Name: "8 Streets", View: domain.ViewCoordinator, Kind: domain.NodeClass}
	s := domain.NewSeries(node, 2030, false, true)
	s.Years[0].PlannedBudget = decimal.RequireFromString("450")
	s.Years[0].FrameBudget = decimal.RequireFromString("58000")
	s.Years[1].OverlapsFrame = true
	s.Degraded = true

	out := stripANSI(FormatSeries(s))
	assert.Contains(t, out, "8 Streets")
	assert.Contains(t, out, "coordinator class")
	assert.Contains(t, out, "coordinator view")
	assert.Contains(t, out, "partial result")
	assert.Contains(t, out, "58,000")
	assert.Contains(t, out, "▲ over")
	assert.Contains(t, out, "2040")
	assert.NotContains(t, out, "2041")
}

func TestFormatSeries_GroupShowsProjectBudgets(t *testing.T) {
	node := &domain.Node{ID: "g", Name: "Bridges", View: domain.ViewPlanning, Kind: domain.NodeGroup}
	s := domain.NewSeries(node, 2030, false, false)
	total := decimal.RequireFromString("1500")
	s.ProjectBudgets = &total

	assert.Contains(t, stripANSI(FormatSeries(s)), "project budgets 1,500")
}

func TestFormatCacheStatus(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	open := stripANSI(FormatCacheStatus(cache.BreakerStatus{
		State: cache.StateOpen, Failures: 3, OpenedAt: now.Add(-90 * time.Second),
	}, now))
	assert.Contains(t, open, "OPEN")
	assert.Contains(t, open, "1m30s ago")

	disabled := stripANSI(FormatCacheStatus(cache.BreakerStatus{State: cache.StateOpen, Disabled: true}, now))
	assert.Contains(t, disabled, "DISABLED")

	closed := stripANSI(FormatCacheStatus(cache.BreakerStatus{}, now))
	assert.Contains(t, closed, "CLOSED")
	assert.NotContains(t, closed, "Opened")
}

func TestFormatImportResult(t *testing.T) {
	out := stripANSI(FormatImportResult(&service.ImportResult{NodeCount: 4, LinkCount: 1, ProjectCount: 2}))
	assert.Equal(t, "Imported 4 nodes, 1 links, 2 projects, 0 frame records, 0 project records", out)
}
