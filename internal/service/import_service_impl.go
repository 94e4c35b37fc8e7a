package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/alexanderramin/framebudget/internal/db"
	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/alexanderramin/framebudget/internal/importer"
	"github.com/alexanderramin/framebudget/internal/repository"
)

type importService struct {
	uow      db.UnitOfWork
	cache    Invalidator
	observer UseCaseObserver
}

// NewImportService returns an ImportService. Imports are all-or-nothing.
func NewImportService(uow db.UnitOfWork, cache Invalidator, observers ...UseCaseObserver) ImportService {
	if cache == nil {
		cache = noopInvalidator{}
	}
	return &importService{
		uow:      uow,
		cache:    cache,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *importService) Import(ctx context.Context, filePath string) (*ImportResult, error) {
	schema, err := importer.LoadImportSchema(filePath)
	if err != nil {
		return nil, fmt.Errorf("loading import file: %w", err)
	}
	return s.ImportFromSchema(ctx, schema)
}

func (s *importService) ImportFromSchema(ctx context.Context, schema *importer.ImportSchema) (result *ImportResult, err error) {
	startedAt := time.Now()
	fields := map[string]any{}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "import",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	if errs := importer.ValidateImportSchema(schema); len(errs) > 0 {
		return nil, formatValidationErrors(errs)
	}

	generated := importer.Convert(schema)
	fields["node_count"] = len(generated.Nodes)
	fields["project_count"] = len(generated.Projects)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		nodes := repository.NewSQLiteNodeRepo(tx)
		projects := repository.NewSQLiteProjectRepo(tx)
		frames := repository.NewSQLiteFrameRecordRepo(tx)
		records := repository.NewSQLiteProjectRecordRepo(tx)

		for i, n := range generated.Nodes {
			err := nodes.Create(ctx, n)
			if errors.Is(err, domain.ErrDuplicatePath) {
				verr := domain.NewValidationError()
				verr.Add(fmt.Sprintf("nodes[%d]", i), fmt.Sprintf("%s %s %q already exists", n.View, n.Kind, n.Path))
				return verr
			}
			if err != nil {
				return fmt.Errorf("creating node %q: %w", n.Name, err)
			}
		}
		for _, l := range generated.Links {
			if err := nodes.Link(ctx, l.CoordinatorID, l.PlanningID); err != nil {
				return fmt.Errorf("linking nodes: %w", err)
			}
		}
		for _, p := range generated.Projects {
			if err := projects.Create(ctx, p); err != nil {
				return fmt.Errorf("creating project %q: %w", p.Name, err)
			}
		}
		for _, r := range generated.FrameRecords {
			if err := frames.Upsert(ctx, r); err != nil {
				return fmt.Errorf("writing frame record: %w", err)
			}
		}
		for _, r := range generated.ProjectRecords {
			if err := records.Upsert(ctx, r); err != nil {
				return fmt.Errorf("writing project record: %w", err)
			}
		}

		// Imported entities are new, so only bulk frame tables can be stale.
		years := make(map[int]bool)
		for _, r := range generated.FrameRecords {
			years[r.Year] = true
		}
		sorted := make([]int, 0, len(years))
		for y := range years {
			sorted = append(sorted, y)
		}
		sort.Ints(sorted)
		for _, y := range sorted {
			s.cache.InvalidateBulk(ctx, y)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ImportResult{
		NodeCount:          len(generated.Nodes),
		LinkCount:          len(generated.Links),
		ProjectCount:       len(generated.Projects),
		FrameRecordCount:   len(generated.FrameRecords),
		ProjectRecordCount: len(generated.ProjectRecords),
	}, nil
}

func formatValidationErrors(errs []error) error {
	msg := fmt.Sprintf("import validation failed (%d errors):", len(errs))
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
