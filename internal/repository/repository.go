package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"skyflip/internal/models"
)

// SourceHashRepository backs the change detector. The *Tx methods run inside InTx; the
// gorm store holds a row lock on the source key for the lifetime of the transaction.
type SourceHashRepository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	GetSourceHash(ctx context.Context, sourceKey string) (*models.SourceHashRecord, error)
	GetSourceHashForUpdateTx(ctx context.Context, tx *gorm.DB, sourceKey string) (*models.SourceHashRecord, error)
	// InsertSourceHashTx returns models.ErrStoreConflict if the key already exists.
	InsertSourceHashTx(ctx context.Context, tx *gorm.DB, item *models.SourceHashRecord) error
	// UpdateSourceHashTx swaps prevHash for newHash on the record with the given id and
	// returns models.ErrStoreConflict if the stored hash is no longer prevHash.
	UpdateSourceHashTx(ctx context.Context, tx *gorm.DB, id, prevHash, newHash string, at time.Time) error
	ListSourceHashes(ctx context.Context) ([]models.SourceHashRecord, error)
}

type FlipRepository interface {
	InsertFlipRecords(ctx context.Context, items []models.FlipRecord) error
	ListFlipRecords(ctx context.Context, params ListFlipRecordsParams) ([]models.FlipRecord, error)
	DeleteFlipRecordsBefore(ctx context.Context, before time.Time) (int64, error)
}

type CycleRepository interface {
	InsertCycleRun(ctx context.Context, item *models.CycleRun) error
	ListCycleRuns(ctx context.Context, params ListCycleRunsParams) ([]models.CycleRun, error)
	DeleteCycleRunsBefore(ctx context.Context, before time.Time) (int64, error)
}

type CatalogRepository interface {
	ListCatalogItems(ctx context.Context) ([]models.CatalogItem, error)
	UpsertCatalogItems(ctx context.Context, items []models.CatalogItem) error
}

// Repository is everything the service needs from persistence.
type Repository interface {
	SourceHashRepository
	FlipRepository
	CycleRepository
	CatalogRepository
}

type ListFlipRecordsParams struct {
	Limit  int
	Offset int
	Kind   *string
	ItemID *string
	Since  *time.Time
	// MinEdge filters on edge_ratio >= MinEdge when > 0.
	MinEdge float64
}

type ListCycleRunsParams struct {
	Limit  int
	Offset int
	Status *string
}
