package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/alexanderramin/framebudget/internal/repository"
)

// universe lazily loads the node and project sets that coordinator
// reachability needs and memoises cross-reference resolution. One universe
// serves one request, or one batch of nodes.
type universe struct {
	nodes    repository.NodeRepo
	projects repository.ProjectRepo
	alias    *AliasRule
	logger   *slog.Logger

	mu          sync.Mutex
	planning    map[domain.NodeKind]map[string]*domain.Node
	coordinator map[domain.NodeKind][]*domain.Node
	programmed  []*domain.Project
	resolved    map[string]string
}

func newUniverse(nodes repository.NodeRepo, projects repository.ProjectRepo, alias *AliasRule, logger *slog.Logger) *universe {
	return &universe{
		nodes:       nodes,
		projects:    projects,
		alias:       alias,
		logger:      logger,
		planning:    make(map[domain.NodeKind]map[string]*domain.Node),
		coordinator: make(map[domain.NodeKind][]*domain.Node),
		resolved:    make(map[string]string),
	}
}

// reachable returns the programmed projects that roll up into n.
func (u *universe) reachable(ctx context.Context, n *domain.Node) ([]*domain.Project, error) {
	switch {
	case n.IsGroup():
		return u.projects.ListProgrammedByGroup(ctx, n.ID)
	case !n.IsCoordinator():
		return u.projects.ListProgrammedUnderPath(ctx, n.Kind, n.Path)
	default:
		return u.coordinatorReachable(ctx, n)
	}
}

func (u *universe) coordinatorReachable(ctx context.Context, c *domain.Node) ([]*domain.Project, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	subtree, err := u.coordinatorSubtree(ctx, c)
	if err != nil {
		return nil, err
	}
	planning, err := u.planningNodes(ctx, c.Kind)
	if err != nil {
		return nil, err
	}
	projects, err := u.programmedProjects(ctx)
	if err != nil {
		return nil, err
	}

	var byAlias func(p *domain.Project) bool
	if c.Kind == domain.NodeLocation && u.alias != nil {
		classes, err := u.planningNodes(ctx, domain.NodeClass)
		if err != nil {
			return nil, err
		}
		locations, err := u.coordinatorNodes(ctx, domain.NodeLocation)
		if err != nil {
			return nil, err
		}
		districts := make(map[string]string, len(locations))
		for _, l := range locations {
			if l.ParentID != nil {
				districts[districtKey(*l.ParentID, l.Name)] = l.ID
			}
		}
		byAlias = func(p *domain.Project) bool {
			return u.aliasTargetIn(p, classes, districts, subtree)
		}
	}

	var out []*domain.Project
	for _, p := range projects {
		if pid := p.PlanningNodeID(c.Kind); pid != nil {
			if target, ok := u.resolve(*pid, planning); ok && subtree[target] {
				out = append(out, p)
				continue
			}
		}
		if byAlias != nil && byAlias(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// resolve returns the coordinator node reached from planning node id through
// the nearest self-or-ancestor carrying a cross reference.
func (u *universe) resolve(id string, planning map[string]*domain.Node) (string, bool) {
	if target, ok := u.resolved[id]; ok {
		return target, target != ""
	}
	var visited []string
	target := ""
	for cur := planning[id]; cur != nil; {
		if t, ok := u.resolved[cur.ID]; ok {
			target = t
			break
		}
		visited = append(visited, cur.ID)
		if cur.RelatedTo != nil {
			target = *cur.RelatedTo
			break
		}
		if cur.ParentID == nil {
			break
		}
		cur = planning[*cur.ParentID]
	}
	for _, v := range visited {
		u.resolved[v] = target
	}
	if target == "" {
		u.logger.Debug("planning node has no coordinator peer", "node_id", id)
		return "", false
	}
	return target, true
}

// aliasTargetIn applies the district alias to the project's class chain.
func (u *universe) aliasTargetIn(p *domain.Project, classes map[string]*domain.Node, districts map[string]string, subtree map[string]bool) bool {
	if p.ClassID == nil {
		return false
	}
	for cur := classes[*p.ClassID]; cur != nil; {
		if cur.ParentID == nil {
			return false
		}
		if d, ok := u.alias.District(cur.Name); ok {
			peer, ok := u.resolve(*cur.ParentID, classes)
			if !ok {
				u.logger.Debug("district alias parent has no coordinator peer", "class_id", cur.ID, "district", d)
			} else if target, ok := districts[districtKey(peer, d)]; !ok {
				u.logger.Debug("district alias did not resolve", "class_id", cur.ID, "district", d, "peer", peer)
			} else if subtree[target] {
				return true
			}
		}
		cur = classes[*cur.ParentID]
	}
	return false
}

// coordinatorSubtree is c and its same-kind coordinator descendants.
func (u *universe) coordinatorSubtree(ctx context.Context, c *domain.Node) (map[string]bool, error) {
	all, err := u.coordinatorNodes(ctx, c.Kind)
	if err != nil {
		return nil, err
	}
	set := map[string]bool{c.ID: true}
	for _, n := range all {
		if domain.HasPathPrefix(n.Path, c.Path) {
			set[n.ID] = true
		}
	}
	return set, nil
}

func (u *universe) coordinatorNodes(ctx context.Context, kind domain.NodeKind) ([]*domain.Node, error) {
	if nodes, ok := u.coordinator[kind]; ok {
		return nodes, nil
	}
	nodes, err := u.nodes.ListByViewKind(ctx, domain.ViewCoordinator, kind)
	if err != nil {
		return nil, fmt.Errorf("loading coordinator %s nodes: %w", kind, err)
	}
	u.coordinator[kind] = nodes
	return nodes, nil
}

func (u *universe) planningNodes(ctx context.Context, kind domain.NodeKind) (map[string]*domain.Node, error) {
	if m, ok := u.planning[kind]; ok {
		return m, nil
	}
	nodes, err := u.nodes.ListByViewKind(ctx, domain.ViewPlanning, kind)
	if err != nil {
		return nil, fmt.Errorf("loading planning %s nodes: %w", kind, err)
	}
	m := make(map[string]*domain.Node, len(nodes))
	for _, n := range nodes {
		m[n.ID] = n
	}
	u.planning[kind] = m
	return m, nil
}

func (u *universe) programmedProjects(ctx context.Context) ([]*domain.Project, error) {
	if u.programmed != nil {
		return u.programmed, nil
	}
	projects, err := u.projects.ListProgrammed(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading programmed projects: %w", err)
	}
	if projects == nil {
		projects = []*domain.Project{}
	}
	u.programmed = projects
	return projects, nil
}

func districtKey(parentID, name string) string {
	return parentID + "\x00" + strings.ToLower(name)
}
