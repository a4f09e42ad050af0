package models

import "time"

// CatalogItem maps an auction display name to the venue item id.
// Rows are written by the catalog import job, which lives outside this service.
type CatalogItem struct {
	ItemID      string    `gorm:"primaryKey;type:varchar(120)"`
	DisplayName string    `gorm:"type:text;not null;index"`
	Tier        *string   `gorm:"type:varchar(30)"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (CatalogItem) TableName() string {
	return "item_catalog"
}
