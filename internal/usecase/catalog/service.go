package catalog

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/lorelink/internal/domain"
	dombatch "github.com/kailas-cloud/lorelink/internal/domain/batch"
	domentity "github.com/kailas-cloud/lorelink/internal/domain/entity"
)

// MaxBatchSize is the maximum number of items per batch request.
const MaxBatchSize = 100

// Service handles entity catalog CRUD with per-item batch reporting.
type Service struct {
	repo         Repository
	maxBatchSize int
}

// New creates a catalog service.
func New(repo Repository) *Service {
	return &Service{repo: repo, maxBatchSize: MaxBatchSize}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Upsert creates or updates an entity. Returns true if it was created.
func (s *Service) Upsert(ctx context.Context, campaign string, rec domentity.Record) (bool, error) {
	if err := validateCampaign(campaign); err != nil {
		return false, err
	}
	created, err := s.repo.Upsert(ctx, campaign, rec)
	if err != nil {
		return false, fmt.Errorf("upsert entity: %w", err)
	}
	return created, nil
}

// Get returns one entity.
func (s *Service) Get(ctx context.Context, campaign, id string) (domentity.Record, error) {
	if err := validateCampaign(campaign); err != nil {
		return domentity.Record{}, err
	}
	if err := domentity.ValidateID(id); err != nil {
		return domentity.Record{}, fmt.Errorf("%w: %w", domain.ErrInvalidID, err)
	}
	rec, err := s.repo.Get(ctx, campaign, id)
	if err != nil {
		return domentity.Record{}, fmt.Errorf("get entity: %w", err)
	}
	return rec, nil
}

// List returns the campaign catalog, optionally filtered by type.
func (s *Service) List(ctx context.Context, campaign string, entityType domentity.Type) ([]domentity.Record, error) {
	if err := validateCampaign(campaign); err != nil {
		return nil, err
	}
	if entityType != "" && !entityType.IsValid() {
		return nil, fmt.Errorf("entity type %q: %w", entityType, domain.ErrInvalidEntity)
	}
	recs, err := s.repo.List(ctx, campaign)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	if entityType == "" {
		return recs, nil
	}
	filtered := make([]domentity.Record, 0, len(recs))
	for _, r := range recs {
		if r.Type() == entityType {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// Delete removes an entity.
func (s *Service) Delete(ctx context.Context, campaign, id string) error {
	if err := validateCampaign(campaign); err != nil {
		return err
	}
	if err := domentity.ValidateID(id); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidID, err)
	}
	if err := s.repo.Delete(ctx, campaign, id); err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	return nil
}

// Version returns the campaign's catalog version.
func (s *Service) Version(ctx context.Context, campaign string) (int64, error) {
	if err := validateCampaign(campaign); err != nil {
		return 0, err
	}
	v, err := s.repo.Version(ctx, campaign)
	if err != nil {
		return 0, fmt.Errorf("get catalog version: %w", err)
	}
	return v, nil
}

// Item is one raw batch entry. Err carries a decoding failure from transport.
type Item struct {
	ID     string
	Record domentity.Record
	Err    error
}

// BatchUpsert stores all valid items in one repository call.
// Items that failed decoding or repeat an earlier id in the batch are reported individually.
func (s *Service) BatchUpsert(ctx context.Context, campaign string, items []Item) []dombatch.Result {
	results := make([]dombatch.Result, len(items))

	if failed := s.rejectBatch(campaign, items, results); failed {
		return results
	}

	valid := make([]domentity.Record, 0, len(items))
	validIdx := make([]int, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for i, item := range items {
		if item.Err != nil {
			results[i] = dombatch.NewError(item.ID, fmt.Errorf("%w: %w", domain.ErrInvalidEntity, item.Err))
			continue
		}
		id := item.Record.ID()
		if _, dup := seen[id]; dup {
			results[i] = dombatch.NewError(id, fmt.Errorf("duplicate id in batch: %w", domain.ErrInvalidEntity))
			continue
		}
		seen[id] = struct{}{}
		valid = append(valid, item.Record)
		validIdx = append(validIdx, i)
	}

	if len(valid) == 0 {
		return results
	}

	// Created vs updated is decided before the write; the batch is one round trip.
	existed := make([]bool, len(valid))
	for j, rec := range valid {
		if _, err := s.repo.Get(ctx, campaign, rec.ID()); err == nil {
			existed[j] = true
		}
	}

	if err := s.repo.BatchUpsert(ctx, campaign, valid); err != nil {
		for _, i := range validIdx {
			results[i] = dombatch.NewError(items[i].Record.ID(), fmt.Errorf("batch upsert: %w", err))
		}
		return results
	}

	for j, i := range validIdx {
		results[i] = dombatch.NewUpserted(valid[j].ID(), !existed[j])
	}
	return results
}

// BatchDelete removes entities one by one, reporting each outcome.
func (s *Service) BatchDelete(ctx context.Context, campaign string, ids []string) []dombatch.Result {
	items := make([]Item, len(ids))
	for i, id := range ids {
		items[i] = Item{ID: id}
	}
	results := make([]dombatch.Result, len(ids))
	if failed := s.rejectBatch(campaign, items, results); failed {
		return results
	}

	for i, id := range ids {
		if err := s.Delete(ctx, campaign, id); err != nil {
			results[i] = dombatch.NewError(id, err)
			continue
		}
		results[i] = dombatch.NewDeleted(id)
	}
	return results
}

// rejectBatch fails every item when the batch as a whole is unacceptable.
func (s *Service) rejectBatch(campaign string, items []Item, results []dombatch.Result) bool {
	var err error
	switch {
	case len(items) > s.maxBatchSize:
		err = fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidEntity)
	default:
		err = validateCampaign(campaign)
	}
	if err == nil {
		return false
	}
	for i, item := range items {
		id := item.ID
		if id == "" && item.Err == nil {
			id = item.Record.ID()
		}
		results[i] = dombatch.NewError(id, err)
	}
	return true
}

func validateCampaign(campaign string) error {
	if err := domentity.ValidateID(campaign); err != nil {
		return fmt.Errorf("campaign: %w: %w", domain.ErrInvalidID, err)
	}
	return nil
}
