package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeries_ElevenZeroedYears(t *testing.T) {
	n := &Node{ID: "n1", Name: "Streets", View: ViewCoordinator, Kind: NodeClass}
	s := NewSeries(n, 2030, true, true)

	require.Len(t, s.Years, SeriesYears)
	for i, y := range s.Years {
		assert.Equal(t, 2030+i, y.Year)
		assert.True(t, y.PlannedBudget.IsZero())
		assert.True(t, y.FrameBudget.IsZero())
		assert.True(t, y.BudgetChange.IsZero())
		assert.False(t, y.OverlapsFrame)
	}
	assert.Nil(t, s.ProjectBudgets)
	assert.True(t, s.FrameView)
}

func TestSeries_Year(t *testing.T) {
	s := NewSeries(&Node{ID: "n1"}, 2030, false, false)

	assert.Nil(t, s.Year(2029))
	assert.Nil(t, s.Year(2041))
	require.NotNil(t, s.Year(2040))
	assert.Equal(t, 2040, s.Year(2040).Year)
}

func TestYearRange(t *testing.T) {
	from, to := YearRange(2030)
	assert.Equal(t, 2030, from)
	assert.Equal(t, 2040, to)
}
