package gormrepository

import (
	"context"
	"strings"
	"time"

	"skyflip/internal/models"
	"skyflip/internal/repository"
)

func (s *Store) InsertFlipRecords(ctx context.Context, items []models.FlipRecord) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return createInBatches(s.db.WithContext(ctx), items, 200)
}

func (s *Store) ListFlipRecords(ctx context.Context, params repository.ListFlipRecordsParams) ([]models.FlipRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.FlipRecord{})
	if params.Kind != nil && strings.TrimSpace(*params.Kind) != "" {
		query = query.Where("kind = ?", strings.TrimSpace(*params.Kind))
	}
	if params.ItemID != nil && strings.TrimSpace(*params.ItemID) != "" {
		query = query.Where("item_id = ?", strings.TrimSpace(*params.ItemID))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	if params.MinEdge > 0 {
		query = query.Where("edge_ratio >= ?", params.MinEdge)
	}
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.FlipRecord
	if err := query.Order("created_at desc").Order("id desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteFlipRecordsBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil || before.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&models.FlipRecord{})
	return res.RowsAffected, res.Error
}
