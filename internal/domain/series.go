package domain

import "github.com/shopspring/decimal"

// YearSummary is one entry of a rolling series.
type YearSummary struct {
	Year          int             `json:"year"`
	PlannedBudget decimal.Decimal `json:"plannedBudget"`
	FrameBudget   decimal.Decimal `json:"frameBudget"`
	BudgetChange  decimal.Decimal `json:"budgetChange"`
	OverlapsFrame bool            `json:"overlapsFrame"`
}

// Series is the aggregation result for one node over SeriesYears years.
// ProjectBudgets is only set for group nodes. Degraded marks a series where
// at least one branch could not be resolved and was counted as zero; such
// series are never cached.
type Series struct {
	NodeID          string           `json:"nodeId"`
	Name            string           `json:"name"`
	Kind            NodeKind         `json:"kind"`
	View            View             `json:"view"`
	StartYear       int              `json:"startYear"`
	FrameView       bool             `json:"frameView"`
	CoordinatorView bool             `json:"coordinatorView"`
	Years           []YearSummary    `json:"years"`
	ProjectBudgets  *decimal.Decimal `json:"projectBudgets,omitempty"`
	Degraded        bool             `json:"degraded,omitempty"`
}

// NewSeries returns a series with SeriesYears zeroed entries starting at
// startYear.
func NewSeries(n *Node, startYear int, frameView, coordinatorView bool) *Series {
	s := &Series{
		NodeID:          n.ID,
		Name:            n.Name,
		Kind:            n.Kind,
		View:            n.View,
		StartYear:       startYear,
		FrameView:       frameView,
		CoordinatorView: coordinatorView,
		Years:           make([]YearSummary, SeriesYears),
	}
	for i := range s.Years {
		s.Years[i] = YearSummary{
			Year:          startYear + i,
			PlannedBudget: decimal.Zero,
			FrameBudget:   decimal.Zero,
			BudgetChange:  decimal.Zero,
		}
	}
	return s
}

// Year returns the entry for year, or nil when year is outside the window.
func (s *Series) Year(year int) *YearSummary {
	i := year - s.StartYear
	if i < 0 || i >= len(s.Years) {
		return nil
	}
	return &s.Years[i]
}

// YearRange returns the first and last year of a window starting at start.
func YearRange(start int) (int, int) {
	return start, start + SeriesYears - 1
}
