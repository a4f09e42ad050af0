package gormrepository

import (
	"context"
	"strings"
	"time"

	"skyflip/internal/models"
	"skyflip/internal/repository"
)

func (s *Store) InsertCycleRun(ctx context.Context, item *models.CycleRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListCycleRuns(ctx context.Context, params repository.ListCycleRunsParams) ([]models.CycleRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.CycleRun{})
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	var items []models.CycleRun
	if err := query.Order("started_at desc").
		Limit(normalizeLimit(params.Limit, 50)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteCycleRunsBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil || before.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("started_at < ?", before).
		Delete(&models.CycleRun{})
	return res.RowsAffected, res.Error
}
