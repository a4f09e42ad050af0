package cronrunner

import (
	"context"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"skyflip/internal/logger"
)

// Runner schedules jobs on a seconds-enabled cron. A job that is still running when its
// next tick fires is skipped, and a panicking job is logged instead of killing the process.
type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

func New(l *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	cl := logger.CronLogger(l)
	return &Runner{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  l,
		baseCtx: baseCtx,
	}
}

// Add registers job under name. An empty spec disables the job.
func (r *Runner) Add(name, spec string, job func(context.Context)) (cron.EntryID, error) {
	if strings.TrimSpace(spec) == "" {
		if r.logger != nil {
			r.logger.Info("cron job disabled", zap.String("job", name))
		}
		return 0, nil
	}
	id, err := r.cron.AddFunc(spec, func() {
		job(r.baseCtx)
	})
	if err != nil {
		return 0, err
	}
	if r.logger != nil {
		r.logger.Info("cron job scheduled", zap.String("job", name), zap.String("spec", spec))
	}
	return id, nil
}

func (r *Runner) Entries() int {
	return len(r.cron.Entries())
}

func (r *Runner) Start() {
	if r.logger != nil {
		r.logger.Info("cron started")
	}
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	if r.logger != nil {
		r.logger.Info("cron stopped")
	}
}
