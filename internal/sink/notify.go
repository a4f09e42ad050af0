package sink

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"skyflip/internal/models"
	"skyflip/internal/notify"
)

// NotifySink alerts on candidates whose edge ratio reaches MinEdge.
type NotifySink struct {
	Notifiers []notify.Notifier
	MinEdge   float64
	Logger    *zap.Logger
}

func (s *NotifySink) Accept(ctx context.Context, cycleID string, candidates []models.FlipCandidate) error {
	if s == nil || len(s.Notifiers) == 0 {
		return nil
	}
	picked := make([]models.FlipCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.EdgeRatio >= s.MinEdge {
			picked = append(picked, c)
		}
	}
	if len(picked) == 0 {
		return nil
	}
	alert := notify.Alert{CycleID: cycleID, Candidates: picked}
	errs := make([]error, 0, len(s.Notifiers))
	for _, n := range s.Notifiers {
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
			if s.Logger != nil {
				s.Logger.Warn("notify failed", zap.String("channel", n.Name()), zap.Error(err))
			}
		}
	}
	return errors.Join(errs...)
}
