package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skyflip/internal/models"
)

func (s *Store) GetSourceHash(ctx context.Context, sourceKey string) (*models.SourceHashRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return firstSourceHash(s.db.WithContext(ctx), sourceKey)
}

func (s *Store) GetSourceHashForUpdateTx(ctx context.Context, tx *gorm.DB, sourceKey string) (*models.SourceHashRecord, error) {
	if tx == nil {
		return nil, errors.New("source hash lookup requires a transaction")
	}
	return firstSourceHash(tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), sourceKey)
}

func (s *Store) InsertSourceHashTx(ctx context.Context, tx *gorm.DB, item *models.SourceHashRecord) error {
	if tx == nil || item == nil {
		return nil
	}
	res := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_key"}},
		DoNothing: true,
	}).Create(item)
	if res.Error != nil {
		return res.Error
	}
	// A concurrent writer created the row between our locked read and the insert.
	if res.RowsAffected == 0 {
		return models.ErrStoreConflict
	}
	return nil
}

func (s *Store) UpdateSourceHashTx(ctx context.Context, tx *gorm.DB, id, prevHash, newHash string, at time.Time) error {
	if tx == nil {
		return errors.New("source hash update requires a transaction")
	}
	res := tx.WithContext(ctx).
		Model(&models.SourceHashRecord{}).
		Where("id = ?", id).
		Where("hash = ?", prevHash).
		Updates(map[string]any{
			"hash":       newHash,
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrStoreConflict
	}
	return nil
}

func (s *Store) ListSourceHashes(ctx context.Context) ([]models.SourceHashRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SourceHashRecord
	if err := s.db.WithContext(ctx).Order("source_key asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func firstSourceHash(query *gorm.DB, sourceKey string) (*models.SourceHashRecord, error) {
	sourceKey = strings.TrimSpace(sourceKey)
	if sourceKey == "" {
		return nil, nil
	}
	var item models.SourceHashRecord
	err := query.First(&item, "source_key = ?", sourceKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}
