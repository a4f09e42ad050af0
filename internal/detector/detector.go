package detector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"skyflip/internal/models"
	"skyflip/internal/repository"
)

type Result int

const (
	Unchanged Result = iota
	Changed
)

func (r Result) String() string {
	if r == Changed {
		return "changed"
	}
	return "unchanged"
}

// ChangeDetector gates processing of a source on whether its payload hash moved since
// the last committed observation.
type ChangeDetector struct {
	Repo   repository.SourceHashRepository
	Logger *zap.Logger

	// Now and NewID default to time.Now().UTC() and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

func New(repo repository.SourceHashRepository, logger *zap.Logger) *ChangeDetector {
	return &ChangeDetector{Repo: repo, Logger: logger}
}

// Peek reports what CheckAndUpdate would report, without writing anything.
func (d *ChangeDetector) Peek(ctx context.Context, sourceKey, newHash string) (Result, error) {
	sourceKey, err := validate(sourceKey, newHash)
	if err != nil {
		return Unchanged, err
	}
	rec, err := d.Repo.GetSourceHash(ctx, sourceKey)
	if err != nil {
		return Unchanged, fmt.Errorf("load source hash %s: %w", sourceKey, err)
	}
	if rec != nil && rec.Hash == newHash {
		return Unchanged, nil
	}
	return Changed, nil
}

// CheckAndUpdate commits newHash for sourceKey when it differs from the stored one.
// The read-modify-write runs in a single transaction; a concurrent writer surfaces as
// models.ErrStoreConflict.
func (d *ChangeDetector) CheckAndUpdate(ctx context.Context, sourceKey, newHash string) (Result, error) {
	sourceKey, err := validate(sourceKey, newHash)
	if err != nil {
		return Unchanged, err
	}
	result := Unchanged
	err = d.Repo.InTx(ctx, func(tx *gorm.DB) error {
		rec, err := d.Repo.GetSourceHashForUpdateTx(ctx, tx, sourceKey)
		if err != nil {
			return err
		}
		now := d.now()
		if rec == nil {
			item := &models.SourceHashRecord{
				ID:        d.newID(),
				SourceKey: sourceKey,
				Hash:      newHash,
				UpdatedAt: now,
			}
			if err := d.Repo.InsertSourceHashTx(ctx, tx, item); err != nil {
				return err
			}
			result = Changed
			return nil
		}
		if rec.Hash == newHash {
			return nil
		}
		if err := d.Repo.UpdateSourceHashTx(ctx, tx, rec.ID, rec.Hash, newHash, now); err != nil {
			return err
		}
		result = Changed
		return nil
	})
	if err != nil {
		return Unchanged, fmt.Errorf("check source hash %s: %w", sourceKey, err)
	}
	if d.Logger != nil && result == Changed {
		d.Logger.Debug("source hash committed", zap.String("source", sourceKey), zap.String("hash", newHash))
	}
	return result, nil
}

func (d *ChangeDetector) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

func (d *ChangeDetector) newID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.NewString()
}

func validate(sourceKey, hash string) (string, error) {
	sourceKey = strings.TrimSpace(sourceKey)
	if sourceKey == "" {
		return "", fmt.Errorf("source key is required")
	}
	if hash == "" {
		return "", fmt.Errorf("hash is required for source %s", sourceKey)
	}
	return sourceKey, nil
}
