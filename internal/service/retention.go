package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"skyflip/internal/config"
	"skyflip/internal/repository"
)

// RetentionService deletes candidate and cycle history older than the configured
// windows. Source hash records are never pruned.
type RetentionService struct {
	Flips  repository.FlipRepository
	Cycles repository.CycleRepository
	Config config.RetentionConfig
	Logger *zap.Logger
	Now    func() time.Time
}

func (s *RetentionService) Prune(ctx context.Context) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now()
	}
	var errs []error
	var flips, cycles int64
	if s.Flips != nil && s.Config.CandidateDays > 0 {
		n, err := s.Flips.DeleteFlipRecordsBefore(ctx, now.AddDate(0, 0, -s.Config.CandidateDays))
		if err != nil {
			errs = append(errs, err)
		}
		flips = n
	}
	if s.Cycles != nil && s.Config.CycleDays > 0 {
		n, err := s.Cycles.DeleteCycleRunsBefore(ctx, now.AddDate(0, 0, -s.Config.CycleDays))
		if err != nil {
			errs = append(errs, err)
		}
		cycles = n
	}
	err := errors.Join(errs...)
	if s.Logger != nil {
		if err != nil {
			s.Logger.Warn("history prune failed", zap.Error(err))
		} else {
			s.Logger.Info("history pruned", zap.Int64("flip_candidates", flips), zap.Int64("cycle_runs", cycles))
		}
	}
	return err
}

// Tick is the cron entry point.
func (s *RetentionService) Tick(ctx context.Context) {
	_ = s.Prune(ctx)
}
