package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// FlipRecord is the persisted form of a FlipCandidate emitted by one cycle.
type FlipRecord struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	CycleID   string `gorm:"type:varchar(36);not null;index"`
	ItemID    string `gorm:"type:varchar(120);not null;index"`
	Kind      string `gorm:"type:varchar(20);not null;index"`
	SourceKey string `gorm:"type:varchar(100);not null"`

	EdgeRatio decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	Quote     datatypes.JSON  `gorm:"type:jsonb;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (FlipRecord) TableName() string {
	return "flip_candidates"
}
