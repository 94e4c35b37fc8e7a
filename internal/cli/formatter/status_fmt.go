package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/framebudget/internal/cache"
	"github.com/alexanderramin/framebudget/internal/service"
)

// FormatCacheStatus renders the circuit breaker state.
func FormatCacheStatus(st cache.BreakerStatus, now time.Time) string {
	var state string
	switch {
	case st.Disabled:
		state = StyleDim.Render("○ DISABLED")
	case st.State == cache.StateOpen:
		state = StyleRed.Render("● OPEN")
	default:
		state = StyleGreen.Render("● CLOSED")
	}

	lines := []string{
		fmt.Sprintf("%-10s %s", "State", state),
		fmt.Sprintf("%-10s %d", "Failures", st.Failures),
	}
	if st.State == cache.StateOpen && !st.OpenedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("%-10s %s ago", "Opened", now.Sub(st.OpenedAt).Round(time.Second)))
	}
	return RenderBox("cache", strings.Join(lines, "\n"))
}

// FormatImportResult summarises a completed import.
func FormatImportResult(r *service.ImportResult) string {
	return fmt.Sprintf("%s %d nodes, %d links, %d projects, %d frame records, %d project records",
		StyleGreen.Render("Imported"),
		r.NodeCount, r.LinkCount, r.ProjectCount, r.FrameRecordCount, r.ProjectRecordCount)
}
