package domain

import (
	"strings"
	"time"
)

// Node is a classification, location or group node in one of the two views.
// RelatedTo links a coordinator node to its planning peer (and back); it is an
// association, not a tree edge.
type Node struct {
	ID        string
	Name      string
	Path      string
	ParentID  *string
	View      View
	Kind      NodeKind
	RelatedTo *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsCoordinator reports whether n lives in the coordinator view.
func (n *Node) IsCoordinator() bool {
	return n.View == ViewCoordinator
}

// IsGroup reports whether n is a project group rather than a tree node.
func (n *Node) IsGroup() bool {
	return n.Kind == NodeGroup
}

// AcceptsFrameRecords reports whether frame budgets may be stored on n.
func (n *Node) AcceptsFrameRecords() bool {
	return n.IsCoordinator() && !n.IsGroup()
}

// ChildPath returns the materialised path of a child called name under parent.
// A nil parent yields a root path.
func ChildPath(parent *Node, name string) string {
	if parent == nil {
		return name
	}
	return parent.Path + "/" + name
}

// HasPathPrefix reports whether path equals prefix or lies below it.
// "A/B" is below "A" but "A/BC" is not below "A/B".
func HasPathPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}
