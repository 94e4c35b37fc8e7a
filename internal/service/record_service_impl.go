package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/alexanderramin/framebudget/internal/aggregate"
	"github.com/alexanderramin/framebudget/internal/db"
	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/alexanderramin/framebudget/internal/repository"
	"github.com/shopspring/decimal"
)

const (
	minRecordYear = 1900
	maxRecordYear = 2200
)

type recordService struct {
	uow      db.UnitOfWork
	cache    Invalidator
	aliases  *aggregate.AliasRule
	observer UseCaseObserver
}

// NewRecordService returns a RecordService. Every write clears the cached
// series it affects inside the write transaction.
func NewRecordService(uow db.UnitOfWork, cache Invalidator, aliases *aggregate.AliasRule, observers ...UseCaseObserver) RecordService {
	if cache == nil {
		cache = noopInvalidator{}
	}
	return &recordService{
		uow:      uow,
		cache:    cache,
		aliases:  aliases,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *recordService) SetFrameRecord(ctx context.Context, in FrameRecordInput) (rec *domain.FrameRecord, err error) {
	startedAt := time.Now()
	fields := map[string]any{"node_id": in.NodeID, "year": in.Year, "frame_view": in.FrameView}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "set-frame-record",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	verr := validateInput(in)
	if !verr.Empty() {
		return nil, verr
	}
	budget := parseAmount(verr, "frameBudget", in.FrameBudget, false)
	change := parseAmount(verr, "budgetChange", in.BudgetChange, true)
	if err = verr.OrNil(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec = &domain.FrameRecord{
		NodeID:       in.NodeID,
		Year:         in.Year,
		ForFrameView: in.FrameView,
		FrameBudget:  budget,
		BudgetChange: change,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		nodes := repository.NewSQLiteNodeRepo(tx)
		node, err := frameNode(ctx, nodes, in.NodeID)
		if err != nil {
			return err
		}
		if err := repository.NewSQLiteFrameRecordRepo(tx).Upsert(ctx, rec); err != nil {
			return err
		}
		return s.invalidateFrames(ctx, nodes, node, in.Year)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *recordService) DeleteFrameRecord(ctx context.Context, nodeID string, year int, frameView bool) (err error) {
	startedAt := time.Now()
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "delete-frame-record",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    map[string]any{"node_id": nodeID, "year": year, "frame_view": frameView},
		})
	}()

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		nodes := repository.NewSQLiteNodeRepo(tx)
		node, err := frameNode(ctx, nodes, nodeID)
		if err != nil {
			return err
		}
		existed, err := repository.NewSQLiteFrameRecordRepo(tx).Delete(ctx, nodeID, year, frameView)
		if err != nil {
			return err
		}
		if !existed {
			return fmt.Errorf("frame record %s/%d: %w", nodeID, year, domain.ErrNotFound)
		}
		return s.invalidateFrames(ctx, nodes, node, year)
	})
}

// framePatch is one year of a patch body. Raw fields distinguish a missing
// field from an explicit null.
type framePatch struct {
	FrameBudget  json.RawMessage `json:"frameBudget"`
	BudgetChange json.RawMessage `json:"budgetChange"`
}

type parsedPatch struct {
	frameBudget  *decimal.Decimal
	budgetChange *decimal.Decimal
}

func (s *recordService) PatchFrameRecords(ctx context.Context, nodeID string, frameView bool, raw []byte) (out []*domain.FrameRecord, err error) {
	startedAt := time.Now()
	fields := map[string]any{"node_id": nodeID, "frame_view": frameView}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "patch-frame-records",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	patches, err := parseFramePatches(raw)
	if err != nil {
		return nil, err
	}
	fields["years"] = len(patches)

	years := make([]int, 0, len(patches))
	for y := range patches {
		years = append(years, y)
	}
	sort.Ints(years)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		nodes := repository.NewSQLiteNodeRepo(tx)
		frames := repository.NewSQLiteFrameRecordRepo(tx)
		node, err := frameNode(ctx, nodes, nodeID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, year := range years {
			rec, err := frames.Get(ctx, nodeID, year, frameView)
			if errors.Is(err, domain.ErrNotFound) {
				rec = &domain.FrameRecord{
					NodeID:       nodeID,
					Year:         year,
					ForFrameView: frameView,
					FrameBudget:  decimal.Zero,
					BudgetChange: decimal.Zero,
					CreatedAt:    now,
				}
			} else if err != nil {
				return err
			}
			p := patches[year]
			if p.frameBudget != nil {
				rec.FrameBudget = *p.frameBudget
			}
			if p.budgetChange != nil {
				rec.BudgetChange = *p.budgetChange
			}
			rec.UpdatedAt = now
			if err := frames.Upsert(ctx, rec); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return s.invalidateFrames(ctx, nodes, node, years...)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// parseFramePatches validates the whole body before anything is written.
func parseFramePatches(raw []byte) (map[int]parsedPatch, error) {
	verr := domain.NewValidationError()

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		verr.Add("body", "must be a JSON object keyed by year")
		return nil, verr
	}
	if len(entries) == 0 {
		verr.Add("body", "must contain at least one year")
		return nil, verr
	}

	out := make(map[int]parsedPatch, len(entries))
	for key, msg := range entries {
		year, err := strconv.Atoi(key)
		if err != nil || year < minRecordYear || year > maxRecordYear {
			verr.Add(key, fmt.Sprintf("is not a year between %d and %d", minRecordYear, maxRecordYear))
			continue
		}
		if isNull(msg) {
			verr.Add(key, "must be an object, not null")
			continue
		}

		var p framePatch
		dec := json.NewDecoder(bytes.NewReader(msg))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			verr.Add(key, "invalid entry: "+err.Error())
			continue
		}
		if p.FrameBudget == nil && p.BudgetChange == nil {
			verr.Add(key, "must set frameBudget or budgetChange")
			continue
		}

		var parsed parsedPatch
		parsed.frameBudget = patchAmount(verr, key+".frameBudget", p.FrameBudget, false)
		parsed.budgetChange = patchAmount(verr, key+".budgetChange", p.BudgetChange, true)
		out[year] = parsed
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// patchAmount accepts a JSON number or a decimal string. A missing field
// returns nil.
func patchAmount(verr *domain.ValidationError, field string, msg json.RawMessage, allowNegative bool) *decimal.Decimal {
	if msg == nil {
		return nil
	}
	if isNull(msg) {
		verr.Add(field, "must not be null")
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(msg, &n); err != nil {
		verr.Add(field, "must be a decimal number")
		return nil
	}
	d := parseAmount(verr, field, n.String(), allowNegative)
	return &d
}

func isNull(msg json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(msg), []byte("null"))
}

func (s *recordService) SetProjectRecord(ctx context.Context, in ProjectRecordInput) (rec *domain.ProjectRecord, err error) {
	startedAt := time.Now()
	fields := map[string]any{"project_id": in.ProjectID, "year": in.Year}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "set-project-record",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	verr := validateInput(in)
	if !verr.Empty() {
		return nil, verr
	}
	value := parseAmount(verr, "value", in.Value, true)
	if err = verr.OrNil(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec = &domain.ProjectRecord{
		ProjectID: in.ProjectID,
		Year:      in.Year,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		project, err := repository.NewSQLiteProjectRepo(tx).GetByID(ctx, in.ProjectID)
		if err != nil {
			return err
		}
		if err := repository.NewSQLiteProjectRecordRepo(tx).Upsert(ctx, rec); err != nil {
			return err
		}
		return s.invalidateProject(ctx, repository.NewSQLiteNodeRepo(tx), project)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *recordService) DeleteProjectRecord(ctx context.Context, projectID string, year int) (err error) {
	startedAt := time.Now()
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "delete-project-record",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    map[string]any{"project_id": projectID, "year": year},
		})
	}()

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		project, err := repository.NewSQLiteProjectRepo(tx).GetByID(ctx, projectID)
		if err != nil {
			return err
		}
		existed, err := repository.NewSQLiteProjectRecordRepo(tx).Delete(ctx, projectID, year)
		if err != nil {
			return err
		}
		if !existed {
			return fmt.Errorf("project record %s/%d: %w", projectID, year, domain.ErrNotFound)
		}
		return s.invalidateProject(ctx, repository.NewSQLiteNodeRepo(tx), project)
	})
}

// frameNode loads a node that may carry frame records. Any other node is
// reported as not found.
func frameNode(ctx context.Context, nodes repository.NodeRepo, id string) (*domain.Node, error) {
	node, err := nodes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !node.AcceptsFrameRecords() {
		return nil, fmt.Errorf("node %s has no frame records: %w", id, domain.ErrNotFound)
	}
	return node, nil
}

func (s *recordService) invalidateFrames(ctx context.Context, nodes repository.NodeRepo, node *domain.Node, years ...int) error {
	set, err := frameTargets(ctx, nodes, node)
	if err != nil {
		return err
	}
	set.apply(ctx, s.cache)
	for _, y := range years {
		s.cache.InvalidateBulk(ctx, y)
	}
	return nil
}

func (s *recordService) invalidateProject(ctx context.Context, nodes repository.NodeRepo, p *domain.Project) error {
	set, err := projectTargets(ctx, nodes, s.aliases, p)
	if err != nil {
		return err
	}
	set.apply(ctx, s.cache)
	return nil
}
