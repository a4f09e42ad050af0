// Package sink delivers the candidates of a cycle to everything downstream of the
// detector: the database, the redis cache, websocket subscribers and notifiers.
package sink

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"skyflip/internal/models"
)

// CandidateSink receives the candidates of one cycle. An empty slice means the cycle
// emitted nothing; implementations may ignore it.
type CandidateSink interface {
	Accept(ctx context.Context, cycleID string, candidates []models.FlipCandidate) error
}

type Named struct {
	Name string
	Sink CandidateSink
}

// MultiSink hands the same candidates to every sink concurrently. One failing sink does
// not stop the others; the joined errors are returned after all have finished.
type MultiSink struct {
	Sinks  []Named
	Logger *zap.Logger
}

func (m *MultiSink) Add(name string, s CandidateSink) {
	if s == nil {
		return
	}
	m.Sinks = append(m.Sinks, Named{Name: name, Sink: s})
}

func (m *MultiSink) Accept(ctx context.Context, cycleID string, candidates []models.FlipCandidate) error {
	if m == nil || len(m.Sinks) == 0 {
		return nil
	}
	errs := make([]error, len(m.Sinks))
	var g errgroup.Group
	for i, ns := range m.Sinks {
		i, ns := i, ns
		g.Go(func() error {
			if err := ns.Sink.Accept(ctx, cycleID, candidates); err != nil {
				errs[i] = fmt.Errorf("sink %s: %w", ns.Name, err)
				if m.Logger != nil {
					m.Logger.Warn("candidate sink failed", zap.String("sink", ns.Name), zap.String("cycle_id", cycleID), zap.Error(err))
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// SinkFunc adapts a function to CandidateSink.
type SinkFunc func(ctx context.Context, cycleID string, candidates []models.FlipCandidate) error

func (f SinkFunc) Accept(ctx context.Context, cycleID string, candidates []models.FlipCandidate) error {
	return f(ctx, cycleID, candidates)
}
