package repository

import (
	"context"

	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrNotFound is the repository alias of domain.ErrNotFound.
var ErrNotFound = domain.ErrNotFound

// maxIDsPerQuery bounds IN (...) lists.
const maxIDsPerQuery = 500

type NodeRepo interface {
	Create(ctx context.Context, n *domain.Node) error
	GetByID(ctx context.Context, id string) (*domain.Node, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Node, error)
	ListChildren(ctx context.Context, parentID string) ([]*domain.Node, error)
	ListByViewKind(ctx context.Context, view domain.View, kind domain.NodeKind) ([]*domain.Node, error)
	// ListAncestry returns the node followed by its ancestors, nearest first.
	ListAncestry(ctx context.Context, id string) ([]*domain.Node, error)
	Link(ctx context.Context, coordinatorID, planningID string) error
	Delete(ctx context.Context, id string) error
}

type ProjectRepo interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	ListProgrammed(ctx context.Context) ([]*domain.Project, error)
	// ListProgrammedUnderPath returns programmed projects whose planning node of
	// the given kind lies at or below path.
	ListProgrammedUnderPath(ctx context.Context, kind domain.NodeKind, path string) ([]*domain.Project, error)
	ListProgrammedByGroup(ctx context.Context, groupID string) ([]*domain.Project, error)
}

type FrameRecordRepo interface {
	Upsert(ctx context.Context, r *domain.FrameRecord) error
	Get(ctx context.Context, nodeID string, year int, frameView bool) (*domain.FrameRecord, error)
	// Delete reports whether a record existed.
	Delete(ctx context.Context, nodeID string, year int, frameView bool) (bool, error)
	// ListForNodeAndChildren returns the records of a node and its direct
	// children within [fromYear, toYear].
	ListForNodeAndChildren(ctx context.Context, nodeID string, fromYear, toYear int, frameView bool) ([]domain.FrameEntry, error)
	// ListForKind is the bulk read used by the frame context builder.
	ListForKind(ctx context.Context, kind domain.NodeKind, fromYear, toYear int, frameView bool) ([]domain.FrameEntry, error)
}

type ProjectRecordRepo interface {
	Upsert(ctx context.Context, r *domain.ProjectRecord) error
	Get(ctx context.Context, projectID string, year int) (*domain.ProjectRecord, error)
	Delete(ctx context.Context, projectID string, year int) (bool, error)
	// SumByYear sums record values of the given projects per year.
	SumByYear(ctx context.Context, projectIDs []string, fromYear, toYear int) (map[int]decimal.Decimal, error)
}
