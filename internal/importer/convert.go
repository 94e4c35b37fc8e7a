package importer

import (
	"time"

	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Link is a coordinator/planning cross reference. Nodes are created without
// RelatedTo; links are applied once both sides exist.
type Link struct {
	CoordinatorID string
	PlanningID    string
}

// Generated holds the domain objects produced from an import document, in
// insertion order.
type Generated struct {
	Nodes          []*domain.Node
	Links          []Link
	Projects       []*domain.Project
	FrameRecords   []*domain.FrameRecord
	ProjectRecords []*domain.ProjectRecord
}

// Convert transforms a validated ImportSchema into domain objects ready for persistence.
// Call ValidateImportSchema first; Convert assumes the schema is valid.
func Convert(schema *ImportSchema) *Generated {
	now := time.Now().UTC()
	out := &Generated{}

	byRef := make(map[string]*domain.Node) // ref -> node
	for _, n := range schema.Nodes {
		var parent *domain.Node
		if n.ParentRef != nil && *n.ParentRef != "" {
			parent = byRef[*n.ParentRef]
		}
		node := &domain.Node{
			ID:        uuid.New().String(),
			Name:      n.Name,
			Path:      domain.ChildPath(parent, n.Name),
			View:      domain.View(n.View),
			Kind:      domain.NodeKind(n.Kind),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if parent != nil {
			node.ParentID = &parent.ID
		}
		byRef[n.Ref] = node
		out.Nodes = append(out.Nodes, node)
	}

	linked := make(map[string]bool)
	for _, n := range schema.Nodes {
		if n.RelatedRef == nil || *n.RelatedRef == "" {
			continue
		}
		a, b := byRef[n.Ref], byRef[*n.RelatedRef]
		if !a.IsCoordinator() {
			a, b = b, a
		}
		if linked[a.ID] {
			continue
		}
		linked[a.ID] = true
		out.Links = append(out.Links, Link{CoordinatorID: a.ID, PlanningID: b.ID})
	}

	projects := make(map[string]string) // ref -> UUID
	for _, p := range schema.Projects {
		project := &domain.Project{
			ID:         uuid.New().String(),
			Name:       p.Name,
			Programmed: p.Programmed == nil || *p.Programmed,
			ClassID:    refID(byRef, p.ClassRef),
			LocationID: refID(byRef, p.LocationRef),
			GroupID:    refID(byRef, p.GroupRef),
			Budget:     amount(p.Budget),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		projects[p.Ref] = project.ID
		out.Projects = append(out.Projects, project)
	}

	for _, r := range schema.FrameRecords {
		out.FrameRecords = append(out.FrameRecords, &domain.FrameRecord{
			NodeID:       byRef[r.NodeRef].ID,
			Year:         r.Year,
			ForFrameView: r.FrameView,
			FrameBudget:  amount(r.FrameBudget),
			BudgetChange: amount(r.BudgetChange),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	for _, r := range schema.ProjectRecords {
		out.ProjectRecords = append(out.ProjectRecords, &domain.ProjectRecord{
			ProjectID: projects[r.ProjectRef],
			Year:      r.Year,
			Value:     amount(r.Value),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	return out
}

func refID(byRef map[string]*domain.Node, ref *string) *string {
	if ref == nil || *ref == "" {
		return nil
	}
	if n, ok := byRef[*ref]; ok {
		id := n.ID
		return &id
	}
	return nil
}

func amount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
