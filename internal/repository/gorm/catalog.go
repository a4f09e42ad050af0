package gormrepository

import (
	"context"

	"gorm.io/gorm/clause"

	"skyflip/internal/models"
)

func (s *Store) ListCatalogItems(ctx context.Context) ([]models.CatalogItem, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.CatalogItem
	if err := s.db.WithContext(ctx).Order("item_id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpsertCatalogItems(ctx context.Context, items []models.CatalogItem) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"display_name",
			"tier",
			"updated_at",
		}),
	}).CreateInBatches(items, 200).Error
}
