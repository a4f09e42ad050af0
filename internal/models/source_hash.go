package models

import "time"

// SourceHashRecord tracks the digest of the last processed payload for one logical feed.
// Identity is the ID alone; Hash and UpdatedAt move without changing which record it is.
type SourceHashRecord struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	SourceKey string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	Hash      string    `gorm:"type:char(64);not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

func (SourceHashRecord) TableName() string {
	return "source_hashes"
}

func (r *SourceHashRecord) Equal(other *SourceHashRecord) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.ID == other.ID
}
