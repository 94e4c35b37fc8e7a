package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FrameRecord is the top-down budget ceiling of a coordinator node for one
// year. ForFrameView selects the frame-view variant of the record.
type FrameRecord struct {
	NodeID       string
	Year         int
	ForFrameView bool
	FrameBudget  decimal.Decimal
	BudgetChange decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProjectRecord is the planned spend of a project for one year.
type ProjectRecord struct {
	ProjectID string
	Year      int
	Value     decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FrameEntry is the per-node, per-year frame figure used during aggregation.
// ParentID is carried so direct children can be indexed without a tree walk.
type FrameEntry struct {
	NodeID       string          `json:"nodeId"`
	ParentID     *string         `json:"parentId,omitempty"`
	Year         int             `json:"year"`
	FrameBudget  decimal.Decimal `json:"frameBudget"`
	BudgetChange decimal.Decimal `json:"budgetChange"`
}
