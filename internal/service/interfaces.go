package service

import (
	"context"

	"github.com/alexanderramin/framebudget/internal/aggregate"
	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/alexanderramin/framebudget/internal/importer"
)

// Invalidator is the part of the cache service that mutations drive.
type Invalidator interface {
	Invalidate(ctx context.Context, kind domain.NodeKind, id string)
	InvalidateBulk(ctx context.Context, year int)
}

// SeriesEngine computes rolling series.
type SeriesEngine interface {
	Series(ctx context.Context, req aggregate.SeriesRequest) (*domain.Series, error)
	ListSeries(ctx context.Context, req aggregate.ListRequest) ([]*domain.Series, error)
}

type SeriesService interface {
	Series(ctx context.Context, req aggregate.SeriesRequest) (*domain.Series, error)
	ListSeries(ctx context.Context, req aggregate.ListRequest) ([]*domain.Series, error)
}

// FrameRecordInput is a full frame record write. Amounts are decimal strings.
type FrameRecordInput struct {
	NodeID       string `json:"nodeId" validate:"required"`
	Year         int    `json:"year" validate:"gte=1900,lte=2200"`
	FrameView    bool   `json:"frameView"`
	FrameBudget  string `json:"frameBudget" validate:"required,numeric"`
	BudgetChange string `json:"budgetChange" validate:"omitempty,numeric"`
}

// ProjectRecordInput is a project record write.
type ProjectRecordInput struct {
	ProjectID string `json:"projectId" validate:"required"`
	Year      int    `json:"year" validate:"gte=1900,lte=2200"`
	Value     string `json:"value" validate:"required,numeric"`
}

type RecordService interface {
	SetFrameRecord(ctx context.Context, in FrameRecordInput) (*domain.FrameRecord, error)
	DeleteFrameRecord(ctx context.Context, nodeID string, year int, frameView bool) error
	// PatchFrameRecords applies a year-keyed partial update. Fields missing
	// from an entry keep their stored value.
	PatchFrameRecords(ctx context.Context, nodeID string, frameView bool, raw []byte) ([]*domain.FrameRecord, error)
	SetProjectRecord(ctx context.Context, in ProjectRecordInput) (*domain.ProjectRecord, error)
	DeleteProjectRecord(ctx context.Context, projectID string, year int) error
}

// ImportResult summarises a completed hierarchy import.
type ImportResult struct {
	NodeCount          int `json:"nodes"`
	LinkCount          int `json:"links"`
	ProjectCount       int `json:"projects"`
	FrameRecordCount   int `json:"frameRecords"`
	ProjectRecordCount int `json:"projectRecords"`
}

type ImportService interface {
	Import(ctx context.Context, filePath string) (*ImportResult, error)
	ImportFromSchema(ctx context.Context, schema *importer.ImportSchema) (*ImportResult, error)
}
