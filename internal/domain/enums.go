package domain

// View distinguishes the two parallel hierarchies over the same
// organisational structure.
type View string

const (
	ViewCoordinator View = "coordinator"
	ViewPlanning    View = "planning"
)

// NodeKind is the kind of tree a node belongs to.
type NodeKind string

const (
	NodeClass    NodeKind = "class"
	NodeLocation NodeKind = "location"
	NodeGroup    NodeKind = "group"
)

// ValidViews is the canonical set of accepted view strings.
var ValidViews = map[string]bool{
	"coordinator": true, "planning": true,
}

// ValidNodeKinds is the canonical set of accepted node kind strings.
var ValidNodeKinds = map[string]bool{
	"class": true, "location": true, "group": true,
}

// SeriesYears is the length of the rolling window: the requested year plus
// the following ten.
const SeriesYears = 11
