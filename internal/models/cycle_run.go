package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	CycleStatusOK      = "ok"
	CycleStatusPartial = "partial"
	CycleStatusFailed  = "failed"
)

// CycleRun is the bookkeeping row written after every executed poll cycle.
type CycleRun struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	StartedAt  time.Time `gorm:"type:timestamptz;not null;index" json:"started_at"`
	FinishedAt time.Time `gorm:"type:timestamptz;not null" json:"finished_at"`
	Status     string    `gorm:"type:varchar(20);not null;index" json:"status"`

	QuoteCount     int            `gorm:"not null" json:"quote_count"`
	CandidateCount int            `gorm:"not null" json:"candidate_count"`
	Sources        datatypes.JSON `gorm:"type:jsonb" json:"sources,omitempty"`
	LastError      *string        `gorm:"type:text" json:"last_error,omitempty"`
}

func (CycleRun) TableName() string {
	return "cycle_runs"
}
