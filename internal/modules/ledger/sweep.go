// README: Nightly expiry of loyalty points that have not grown within the TTL.
package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/KamranYsupov/TaxiDriverBot/internal/jobs"
	"github.com/KamranYsupov/TaxiDriverBot/internal/observability"
)

// NextSweep returns the first occurrence of hour:00 in loc strictly after now.
func NextSweep(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// ExpirePoints resets the balance of riders whose points last increased more
// than the TTL ago.
func (s *Service) ExpirePoints(ctx context.Context) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -s.cfg.PointsTTLDays)
	n, err := s.store.ExpirePoints(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	observability.PointsExpired.Add(float64(n))
	s.logger.Info("Points expired", zap.Int64("riders", n), zap.Time("cutoff", cutoff))
	return n, nil
}

// ScheduleSweep queues the next nightly sweep. Every instance may call it;
// the job id is derived from the run time so the queue keeps one copy.
func (s *Service) ScheduleSweep(ctx context.Context) error {
	at := NextSweep(s.now(), s.cfg.SweepHour, s.cfg.Location)
	return s.scheduler.Enqueue(ctx, jobs.Job{
		ID:    "points-sweep:" + at.Format("2006-01-02"),
		Kind:  jobs.KindPointsSweep,
		RunAt: at,
	})
}

// HandleSweep is the jobs.Handler for the nightly sweep. It schedules the
// following night before running so a failure does not stop the cycle.
func (s *Service) HandleSweep(ctx context.Context, _ jobs.Job) error {
	if err := s.ScheduleSweep(ctx); err != nil {
		s.logger.Error("Failed to reschedule points sweep", zap.Error(err))
	}
	_, err := s.ExpirePoints(ctx)
	return err
}
