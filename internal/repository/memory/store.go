// Package memory is a process-local Repository. It backs `store.driver: memory`
// deployments (single instance, state lost on restart) and the package tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"skyflip/internal/models"
	"skyflip/internal/repository"
)

type Store struct {
	mu sync.Mutex

	hashes  map[string]models.SourceHashRecord
	flips   []models.FlipRecord
	cycles  []models.CycleRun
	catalog map[string]models.CatalogItem
	nextID  uint64
}

func New() *Store {
	return &Store{
		hashes:  map[string]models.SourceHashRecord{},
		catalog: map[string]models.CatalogItem{},
	}
}

// InTx serializes fn against every other store call. The *Tx methods must only be
// called from inside fn; they ignore tx and rely on the held lock.
func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(nil)
}

func (s *Store) GetSourceHash(ctx context.Context, sourceKey string) (*models.SourceHashRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(sourceKey), nil
}

func (s *Store) GetSourceHashForUpdateTx(ctx context.Context, tx *gorm.DB, sourceKey string) (*models.SourceHashRecord, error) {
	return s.lookup(sourceKey), nil
}

func (s *Store) InsertSourceHashTx(ctx context.Context, tx *gorm.DB, item *models.SourceHashRecord) error {
	if item == nil {
		return nil
	}
	if _, ok := s.hashes[item.SourceKey]; ok {
		return models.ErrStoreConflict
	}
	for _, rec := range s.hashes {
		if rec.ID == item.ID {
			return models.ErrStoreConflict
		}
	}
	s.hashes[item.SourceKey] = *item
	return nil
}

func (s *Store) UpdateSourceHashTx(ctx context.Context, tx *gorm.DB, id, prevHash, newHash string, at time.Time) error {
	for key, rec := range s.hashes {
		if rec.ID != id {
			continue
		}
		if rec.Hash != prevHash {
			return models.ErrStoreConflict
		}
		rec.Hash = newHash
		rec.UpdatedAt = at
		s.hashes[key] = rec
		return nil
	}
	return models.ErrStoreConflict
}

func (s *Store) ListSourceHashes(ctx context.Context) ([]models.SourceHashRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SourceHashRecord, 0, len(s.hashes))
	for _, rec := range s.hashes {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceKey < out[j].SourceKey })
	return out, nil
}

func (s *Store) lookup(sourceKey string) *models.SourceHashRecord {
	rec, ok := s.hashes[strings.TrimSpace(sourceKey)]
	if !ok {
		return nil
	}
	return &rec
}

func (s *Store) InsertFlipRecords(ctx context.Context, items []models.FlipRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, it := range items {
		s.nextID++
		it.ID = s.nextID
		if it.CreatedAt.IsZero() {
			it.CreatedAt = now
		}
		s.flips = append(s.flips, it)
	}
	return nil
}

func (s *Store) ListFlipRecords(ctx context.Context, params repository.ListFlipRecordsParams) ([]models.FlipRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.FlipRecord
	// Newest first, matching the SQL store's ordering.
	for i := len(s.flips) - 1; i >= 0; i-- {
		it := s.flips[i]
		if params.Kind != nil && *params.Kind != "" && it.Kind != *params.Kind {
			continue
		}
		if params.ItemID != nil && *params.ItemID != "" && it.ItemID != *params.ItemID {
			continue
		}
		if params.Since != nil && it.CreatedAt.Before(*params.Since) {
			continue
		}
		if params.MinEdge > 0 && it.EdgeRatio.InexactFloat64() < params.MinEdge {
			continue
		}
		out = append(out, it)
	}
	return page(out, params.Limit, params.Offset, 100), nil
}

func (s *Store) DeleteFlipRecordsBefore(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.flips[:0]
	var n int64
	for _, it := range s.flips {
		if it.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, it)
	}
	s.flips = kept
	return n, nil
}

func (s *Store) InsertCycleRun(ctx context.Context, item *models.CycleRun) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles = append(s.cycles, *item)
	return nil
}

func (s *Store) ListCycleRuns(ctx context.Context, params repository.ListCycleRunsParams) ([]models.CycleRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CycleRun
	for i := len(s.cycles) - 1; i >= 0; i-- {
		it := s.cycles[i]
		if params.Status != nil && *params.Status != "" && it.Status != *params.Status {
			continue
		}
		out = append(out, it)
	}
	return page(out, params.Limit, params.Offset, 50), nil
}

func (s *Store) DeleteCycleRunsBefore(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.cycles[:0]
	var n int64
	for _, it := range s.cycles {
		if it.StartedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, it)
	}
	s.cycles = kept
	return n, nil
}

func (s *Store) ListCatalogItems(ctx context.Context) ([]models.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CatalogItem, 0, len(s.catalog))
	for _, it := range s.catalog {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (s *Store) UpsertCatalogItems(ctx context.Context, items []models.CatalogItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		if strings.TrimSpace(it.ItemID) == "" {
			continue
		}
		it.UpdatedAt = time.Now().UTC()
		s.catalog[it.ItemID] = it
	}
	return nil
}

func page[T any](items []T, limit, offset, fallback int) []T {
	if limit <= 0 {
		limit = fallback
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

var _ repository.Repository = (*Store)(nil)
