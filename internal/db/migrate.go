package db

import (
	"skyflip/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(
		&models.SourceHashRecord{},
		&models.FlipRecord{},
		&models.CycleRun{},
		&models.CatalogItem{},
	)
}
