package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/framebudget/internal/aggregate"
	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/alexanderramin/framebudget/internal/repository"
)

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, domain.NodeKind, string) {}
func (noopInvalidator) InvalidateBulk(context.Context, int)                  {}

type cacheTarget struct {
	kind domain.NodeKind
	id   string
}

// invalidationSet collects the entities whose cached series a write makes
// stale, without duplicates.
type invalidationSet struct {
	seen    map[string]bool
	targets []cacheTarget
}

func newInvalidationSet() *invalidationSet {
	return &invalidationSet{seen: make(map[string]bool)}
}

func (s *invalidationSet) add(kind domain.NodeKind, id string) {
	if id == "" || s.seen[id] {
		return
	}
	s.seen[id] = true
	s.targets = append(s.targets, cacheTarget{kind: kind, id: id})
}

func (s *invalidationSet) addNode(n *domain.Node) {
	s.add(n.Kind, n.ID)
}

func (s *invalidationSet) apply(ctx context.Context, inv Invalidator) {
	for _, t := range s.targets {
		inv.Invalidate(ctx, t.kind, t.id)
	}
}

// frameTargets: a frame record shows on its node and its planning peer, and
// feeds the overlap flag of the parent and the parent's peer.
func frameTargets(ctx context.Context, nodes repository.NodeRepo, node *domain.Node) (*invalidationSet, error) {
	set := newInvalidationSet()
	set.addNode(node)
	if node.RelatedTo != nil {
		set.add(node.Kind, *node.RelatedTo)
	}
	if node.ParentID == nil {
		return set, nil
	}
	parent, err := nodes.GetByID(ctx, *node.ParentID)
	if err != nil {
		return nil, fmt.Errorf("loading parent of %s: %w", node.ID, err)
	}
	set.addNode(parent)
	if parent.RelatedTo != nil {
		set.add(parent.Kind, *parent.RelatedTo)
	}
	return set, nil
}

// projectTargets covers every series a project's planned spend rolls into:
// the planning chains of its class and location, the coordinator chains they
// resolve to, district alias targets, and its group.
func projectTargets(ctx context.Context, nodes repository.NodeRepo, aliases *aggregate.AliasRule, p *domain.Project) (*invalidationSet, error) {
	set := newInvalidationSet()

	for _, kind := range []domain.NodeKind{domain.NodeClass, domain.NodeLocation} {
		id := p.PlanningNodeID(kind)
		if id == nil {
			continue
		}
		chain, err := nodes.ListAncestry(ctx, *id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, n := range chain {
			set.addNode(n)
			if n.RelatedTo == nil {
				continue
			}
			if err := addAncestry(ctx, nodes, set, *n.RelatedTo); err != nil {
				return nil, err
			}
		}
		if kind == domain.NodeClass {
			if err := addAliasTargets(ctx, nodes, aliases, set, chain); err != nil {
				return nil, err
			}
		}
	}

	if p.GroupID != nil {
		set.add(domain.NodeGroup, *p.GroupID)
	}
	return set, nil
}

// addAliasTargets finds coordinator locations named by a district subclass
// in the class chain (nearest first).
func addAliasTargets(ctx context.Context, nodes repository.NodeRepo, aliases *aggregate.AliasRule, set *invalidationSet, chain []*domain.Node) error {
	for i, cur := range chain {
		if cur.ParentID == nil {
			continue
		}
		district, ok := aliases.District(cur.Name)
		if !ok {
			continue
		}
		peer := nearestPeer(chain[i+1:])
		if peer == "" {
			continue
		}
		children, err := nodes.ListChildren(ctx, peer)
		if err != nil {
			return err
		}
		for _, c := range children {
			if c.IsCoordinator() && c.Kind == domain.NodeLocation && strings.EqualFold(c.Name, district) {
				if err := addAncestry(ctx, nodes, set, c.ID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func nearestPeer(chain []*domain.Node) string {
	for _, n := range chain {
		if n.RelatedTo != nil {
			return *n.RelatedTo
		}
	}
	return ""
}

func addAncestry(ctx context.Context, nodes repository.NodeRepo, set *invalidationSet, id string) error {
	chain, err := nodes.ListAncestry(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, n := range chain {
		set.addNode(n)
	}
	return nil
}
