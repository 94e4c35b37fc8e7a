package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Project is owned by the project registry and consumed read-only here.
// ClassID and LocationID point at planning-view nodes.
type Project struct {
	ID         string
	Name       string
	Programmed bool
	ClassID    *string
	LocationID *string
	GroupID    *string
	Budget     decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PlanningNodeID returns the project's planning node for the given tree kind.
func (p *Project) PlanningNodeID(kind NodeKind) *string {
	switch kind {
	case NodeClass:
		return p.ClassID
	case NodeLocation:
		return p.LocationID
	case NodeGroup:
		return p.GroupID
	default:
		return nil
	}
}
