package importer

import (
	"fmt"

	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	minYear = 1900
	maxYear = 2200
)

// ValidateImportSchema checks the import schema for errors before conversion.
// Returns a slice of all validation errors found.
func ValidateImportSchema(schema *ImportSchema) []error {
	var errs []error

	nodes := make(map[string]NodeImport)
	errs = append(errs, validateNodes(schema.Nodes, nodes)...)
	errs = append(errs, validateLinks(schema.Nodes, nodes)...)

	projectRefs := make(map[string]bool)
	errs = append(errs, validateProjects(schema.Projects, nodes, projectRefs)...)
	errs = append(errs, validateFrameRecords(schema.FrameRecords, nodes)...)
	errs = append(errs, validateProjectRecords(schema.ProjectRecords, projectRefs)...)

	return errs
}

func validateNodes(list []NodeImport, nodes map[string]NodeImport) []error {
	var errs []error
	paths := make(map[string]int) // view|kind|parent|name -> first index

	for i, n := range list {
		prefix := fmt.Sprintf("nodes[%d]", i)

		if n.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		if !domain.ValidViews[n.View] {
			errs = append(errs, fmt.Errorf("%s.view: invalid value %q", prefix, n.View))
		}
		if !domain.ValidNodeKinds[n.Kind] {
			errs = append(errs, fmt.Errorf("%s.kind: invalid value %q", prefix, n.Kind))
		}
		if n.Kind == string(domain.NodeGroup) {
			if n.View != string(domain.ViewPlanning) {
				errs = append(errs, fmt.Errorf("%s: groups belong to the planning view", prefix))
			}
			if n.ParentRef != nil {
				errs = append(errs, fmt.Errorf("%s: groups cannot have a parent", prefix))
			}
		}

		if n.ParentRef != nil && *n.ParentRef != "" {
			parent, ok := nodes[*n.ParentRef]
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("%s.parent_ref: ref %q not found (must appear earlier in nodes list)", prefix, *n.ParentRef))
			case parent.View != n.View:
				errs = append(errs, fmt.Errorf("%s.parent_ref: parent %q is in the %s view", prefix, *n.ParentRef, parent.View))
			case parent.Kind == string(domain.NodeGroup):
				errs = append(errs, fmt.Errorf("%s.parent_ref: groups cannot have children", prefix))
			}
		}

		if n.Name != "" {
			parentRef := ""
			if n.ParentRef != nil {
				parentRef = *n.ParentRef
			}
			key := n.View + "|" + n.Kind + "|" + parentRef + "|" + n.Name
			if first, dup := paths[key]; dup {
				errs = append(errs, fmt.Errorf("%s.name: %q repeats nodes[%d] under the same parent", prefix, n.Name, first))
			} else {
				paths[key] = i
			}
		}

		if n.Ref == "" {
			errs = append(errs, fmt.Errorf("%s.ref is required", prefix))
		} else if _, dup := nodes[n.Ref]; dup {
			errs = append(errs, fmt.Errorf("%s.ref: duplicate ref %q", prefix, n.Ref))
		} else {
			nodes[n.Ref] = n
		}
	}

	return errs
}

// validateLinks checks related_ref pairs: coordinator to planning, same
// kind, and at most one peer per node.
func validateLinks(list []NodeImport, nodes map[string]NodeImport) []error {
	var errs []error
	peer := make(map[string]string)

	for i, n := range list {
		if n.RelatedRef == nil || *n.RelatedRef == "" {
			continue
		}
		prefix := fmt.Sprintf("nodes[%d].related_ref", i)
		other, ok := nodes[*n.RelatedRef]
		if !ok {
			errs = append(errs, fmt.Errorf("%s: ref %q not found", prefix, *n.RelatedRef))
			continue
		}
		if other.View == n.View {
			errs = append(errs, fmt.Errorf("%s: %q is in the same view", prefix, *n.RelatedRef))
			continue
		}
		if other.Kind != n.Kind || n.Kind == string(domain.NodeGroup) {
			errs = append(errs, fmt.Errorf("%s: %q is a %s node, not %s", prefix, *n.RelatedRef, other.Kind, n.Kind))
			continue
		}
		for _, pair := range [][2]string{{n.Ref, other.Ref}, {other.Ref, n.Ref}} {
			if existing, ok := peer[pair[0]]; ok && existing != pair[1] {
				errs = append(errs, fmt.Errorf("%s: %q is already linked to %q", prefix, pair[0], existing))
			}
			peer[pair[0]] = pair[1]
		}
	}

	return errs
}

func validateProjects(list []ProjectImport, nodes map[string]NodeImport, refs map[string]bool) []error {
	var errs []error

	for i, p := range list {
		prefix := fmt.Sprintf("projects[%d]", i)

		if p.Ref == "" {
			errs = append(errs, fmt.Errorf("%s.ref is required", prefix))
		} else if refs[p.Ref] {
			errs = append(errs, fmt.Errorf("%s.ref: duplicate ref %q", prefix, p.Ref))
		} else {
			refs[p.Ref] = true
		}
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}

		errs = append(errs, validatePlacement(prefix+".class_ref", p.ClassRef, nodes, domain.NodeClass)...)
		errs = append(errs, validatePlacement(prefix+".location_ref", p.LocationRef, nodes, domain.NodeLocation)...)
		errs = append(errs, validatePlacement(prefix+".group_ref", p.GroupRef, nodes, domain.NodeGroup)...)

		if p.Budget != "" {
			if d, err := decimal.NewFromString(p.Budget); err != nil {
				errs = append(errs, fmt.Errorf("%s.budget: invalid amount %q", prefix, p.Budget))
			} else if d.IsNegative() {
				errs = append(errs, fmt.Errorf("%s.budget must not be negative", prefix))
			}
		}
	}

	return errs
}

func validatePlacement(field string, ref *string, nodes map[string]NodeImport, kind domain.NodeKind) []error {
	if ref == nil || *ref == "" {
		return nil
	}
	n, ok := nodes[*ref]
	if !ok {
		return []error{fmt.Errorf("%s: ref %q not found", field, *ref)}
	}
	if n.View != string(domain.ViewPlanning) || n.Kind != string(kind) {
		return []error{fmt.Errorf("%s: %q must be a planning %s node", field, *ref, kind)}
	}
	return nil
}

func validateFrameRecords(list []FrameRecordImport, nodes map[string]NodeImport) []error {
	var errs []error
	type key struct {
		ref       string
		year      int
		frameView bool
	}
	seen := make(map[key]bool)

	for i, r := range list {
		prefix := fmt.Sprintf("frame_records[%d]", i)

		n, ok := nodes[r.NodeRef]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("%s.node_ref: ref %q not found", prefix, r.NodeRef))
		case n.View != string(domain.ViewCoordinator) || n.Kind == string(domain.NodeGroup):
			errs = append(errs, fmt.Errorf("%s.node_ref: %q is not a coordinator class or location node", prefix, r.NodeRef))
		}
		errs = append(errs, validateYear(prefix, r.Year)...)

		if d, err := decimal.NewFromString(r.FrameBudget); err != nil {
			errs = append(errs, fmt.Errorf("%s.frame_budget: invalid amount %q", prefix, r.FrameBudget))
		} else if d.IsNegative() {
			errs = append(errs, fmt.Errorf("%s.frame_budget must not be negative", prefix))
		}
		if r.BudgetChange != "" {
			if _, err := decimal.NewFromString(r.BudgetChange); err != nil {
				errs = append(errs, fmt.Errorf("%s.budget_change: invalid amount %q", prefix, r.BudgetChange))
			}
		}

		k := key{r.NodeRef, r.Year, r.FrameView}
		if seen[k] {
			errs = append(errs, fmt.Errorf("%s: duplicate record for %q in %d", prefix, r.NodeRef, r.Year))
		}
		seen[k] = true
	}

	return errs
}

func validateProjectRecords(list []ProjectRecordImport, projects map[string]bool) []error {
	var errs []error
	type key struct {
		ref  string
		year int
	}
	seen := make(map[key]bool)

	for i, r := range list {
		prefix := fmt.Sprintf("project_records[%d]", i)

		if !projects[r.ProjectRef] {
			errs = append(errs, fmt.Errorf("%s.project_ref: ref %q not found", prefix, r.ProjectRef))
		}
		errs = append(errs, validateYear(prefix, r.Year)...)
		if _, err := decimal.NewFromString(r.Value); err != nil {
			errs = append(errs, fmt.Errorf("%s.value: invalid amount %q", prefix, r.Value))
		}

		k := key{r.ProjectRef, r.Year}
		if seen[k] {
			errs = append(errs, fmt.Errorf("%s: duplicate record for %q in %d", prefix, r.ProjectRef, r.Year))
		}
		seen[k] = true
	}

	return errs
}

func validateYear(prefix string, year int) []error {
	if year < minYear || year > maxYear {
		return []error{fmt.Errorf("%s.year: %d outside %d..%d", prefix, year, minYear, maxYear)}
	}
	return nil
}
