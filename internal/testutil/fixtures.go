package testutil

import (
	"time"

	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Node options
type NodeOption func(*domain.Node)

// WithParent places the node under parent and derives its path.
func WithParent(parent *domain.Node) NodeOption {
	return func(n *domain.Node) {
		n.ParentID = &parent.ID
		n.Path = domain.ChildPath(parent, n.Name)
	}
}

func WithRelatedTo(id string) NodeOption {
	return func(n *domain.Node) {
		n.RelatedTo = &id
	}
}

func WithNodeID(id string) NodeOption {
	return func(n *domain.Node) {
		n.ID = id
	}
}

func NewTestNode(name string, view domain.View, kind domain.NodeKind, opts ...NodeOption) *domain.Node {
	now := time.Now().UTC()
	n := &domain.Node{
		ID:        uuid.New().String(),
		Name:      name,
		Path:      name,
		View:      view,
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Project options
type ProjectOption func(*domain.Project)

func WithClass(id string) ProjectOption {
	return func(p *domain.Project) {
		p.ClassID = &id
	}
}

func WithLocation(id string) ProjectOption {
	return func(p *domain.Project) {
		p.LocationID = &id
	}
}

func WithGroup(id string) ProjectOption {
	return func(p *domain.Project) {
		p.GroupID = &id
	}
}

func WithBudget(amount string) ProjectOption {
	return func(p *domain.Project) {
		p.Budget = decimal.RequireFromString(amount)
	}
}

func Unprogrammed() ProjectOption {
	return func(p *domain.Project) {
		p.Programmed = false
	}
}

func NewTestProject(name string, opts ...ProjectOption) *domain.Project {
	now := time.Now().UTC()
	p := &domain.Project{
		ID:         uuid.New().String(),
		Name:       name,
		Programmed: true,
		Budget:     decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func NewTestFrameRecord(nodeID string, year int, budget string, frameView bool) *domain.FrameRecord {
	now := time.Now().UTC()
	return &domain.FrameRecord{
		NodeID:       nodeID,
		Year:         year,
		ForFrameView: frameView,
		FrameBudget:  decimal.RequireFromString(budget),
		BudgetChange: decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func NewTestProjectRecord(projectID string, year int, value string) *domain.ProjectRecord {
	now := time.Now().UTC()
	return &domain.ProjectRecord{
		ProjectID: projectID,
		Year:      year,
		Value:     decimal.RequireFromString(value),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
