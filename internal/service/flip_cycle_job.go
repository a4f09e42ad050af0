package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	rediscache "skyflip/internal/cache/redis"
	"skyflip/internal/models"
	"skyflip/internal/repository"
	"skyflip/internal/sink"
)

const (
	cycleLockName = "flip_cycle"

	// DefaultDeliverTimeout bounds sink delivery once hashes are committed.
	DefaultDeliverTimeout = 30 * time.Second
)

// CycleLocker is a cross-process guard. Acquire returns rediscache.ErrLockHeld when
// another instance is mid-cycle.
type CycleLocker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error)
}

// FlipCycleJob wraps SnapshotCycleService for the scheduler and the manual trigger:
// it delivers candidates to the sink and records a cycle_runs row.
type FlipCycleJob struct {
	Cycle  *SnapshotCycleService
	Sink   sink.CandidateSink
	Runs   repository.CycleRepository
	Lock   CycleLocker
	Logger *zap.Logger

	LockTTL        time.Duration
	DeliverTimeout time.Duration
}

// Tick is the cron entry point. Errors are logged, never returned.
func (j *FlipCycleJob) Tick(ctx context.Context) {
	if _, err := j.Run(ctx); err != nil && !errors.Is(err, models.ErrCycleInProgress) {
		j.logWarn("flip cycle failed", err)
	}
}

// Run executes one cycle. It returns models.ErrCycleInProgress without side effects when
// this process or, with a lock configured, another process is already running one.
func (j *FlipCycleJob) Run(ctx context.Context) (*CycleResult, error) {
	if j == nil || j.Cycle == nil {
		return nil, errors.New("flip cycle job not configured")
	}
	if j.Lock != nil {
		release, err := j.Lock.Acquire(ctx, cycleLockName, j.LockTTL)
		switch {
		case errors.Is(err, rediscache.ErrLockHeld):
			j.logDebug("flip cycle skipped: lock held elsewhere")
			return nil, models.ErrCycleInProgress
		case err != nil:
			// The hash store's compare-and-swap still prevents double emission.
			j.logWarn("cycle lock unavailable, running unlocked", err)
		default:
			defer release()
		}
	}

	res, err := j.Cycle.RunCycle(ctx)
	if errors.Is(err, models.ErrCycleInProgress) {
		j.logDebug("flip cycle skipped: previous cycle still running")
		return nil, err
	}
	if res == nil {
		return nil, err
	}

	j.deliver(ctx, res)
	j.record(ctx, res, err)

	if j.Logger != nil {
		j.Logger.Info("flip cycle finished",
			zap.String("cycle_id", res.ID),
			zap.String("status", cycleStatus(res, err)),
			zap.Int("quotes", res.QuoteCount),
			zap.Int("candidates", len(res.Candidates)),
			zap.Int("source_errors", len(res.SourceErrors)),
			zap.Duration("took", res.FinishedAt.Sub(res.StartedAt)),
		)
	}
	return res, err
}

// deliver hands committed candidates to the sink. Their hashes are already stored, so a
// later cycle would report the sources unchanged; delivery outlives ctx cancellation.
func (j *FlipCycleJob) deliver(ctx context.Context, res *CycleResult) {
	if len(res.Candidates) == 0 || j.Sink == nil {
		return
	}
	timeout := j.DeliverTimeout
	if timeout <= 0 {
		timeout = DefaultDeliverTimeout
	}
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := j.Sink.Accept(dctx, res.ID, res.Candidates); err != nil {
		j.logWarn("candidate delivery incomplete", err, zap.String("cycle_id", res.ID))
	}
}

func (j *FlipCycleJob) record(ctx context.Context, res *CycleResult, cycleErr error) {
	if j.Runs == nil {
		return
	}
	row := ToCycleRun(res, cycleErr)
	// The row is written even when the cycle was cancelled.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := j.Runs.InsertCycleRun(wctx, &row); err != nil {
		j.logWarn("record cycle run failed", err, zap.String("cycle_id", res.ID))
	}
}

// ToCycleRun summarizes a cycle for the cycle_runs table.
func ToCycleRun(res *CycleResult, cycleErr error) models.CycleRun {
	row := models.CycleRun{
		ID:             res.ID,
		StartedAt:      res.StartedAt,
		FinishedAt:     res.FinishedAt,
		Status:         cycleStatus(res, cycleErr),
		QuoteCount:     res.QuoteCount,
		CandidateCount: len(res.Candidates),
	}
	if row.FinishedAt.IsZero() {
		row.FinishedAt = time.Now().UTC()
	}
	if b, err := json.Marshal(res.Sources); err == nil && len(res.Sources) > 0 {
		row.Sources = datatypes.JSON(b)
	}
	if msg := firstError(res, cycleErr); msg != "" {
		row.LastError = &msg
	}
	return row
}

func cycleStatus(res *CycleResult, err error) string {
	switch {
	case err != nil:
		return models.CycleStatusFailed
	case res != nil && len(res.SourceErrors) > 0:
		return models.CycleStatusPartial
	default:
		return models.CycleStatusOK
	}
}

func firstError(res *CycleResult, err error) string {
	if err != nil {
		return err.Error()
	}
	for _, src := range res.Sources {
		if src.Error != "" {
			return src.SourceKey + ": " + src.Error
		}
	}
	return ""
}

func (j *FlipCycleJob) logWarn(msg string, err error, fields ...zap.Field) {
	if j == nil || j.Logger == nil {
		return
	}
	j.Logger.Warn(msg, append(fields, zap.Error(err))...)
}

func (j *FlipCycleJob) logDebug(msg string) {
	if j == nil || j.Logger == nil {
		return
	}
	j.Logger.Debug(msg)
}
