package task

import (
	"context"
	"time"

	"lookbook-compensation/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Scheduler struct {
	service *Service
	enabled bool
	hour    int
	loc     *time.Location
}

func NewScheduler(cfg *config.Config, svc *Service) *Scheduler {
	return &Scheduler{
		service: svc,
		enabled: cfg.Compensation.NightlySweep,
		hour:    cfg.Compensation.NightlySweepHour,
		loc:     cfg.Location(),
	}
}

// StartScheduler runs the nightly sweep loop for the lifetime of the app.
func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	if !s.enabled {
		zap.L().Info("[Scheduler] nightly sweep disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func (s *Scheduler) run(ctx context.Context) {
	zap.L().Info("[Scheduler] started nightly sweep scheduler", zap.Int("hour", s.hour), zap.String("tz", s.loc.String()))

	for {
		now := time.Now().In(s.loc)
		next := nextRunTime(now, s.hour, 0)

		sleepDuration := next.Sub(now)
		zap.L().Info("[Scheduler] next run scheduled",
			zap.Time("next_run", next),
			zap.Duration("sleep_for", sleepDuration),
		)
		timer := time.NewTimer(sleepDuration)
		select {
		case <-timer.C:
			s.runNightly(ctx)
		case <-ctx.Done():
			timer.Stop()
			zap.L().Warn("[Scheduler] stopped")
			return
		}
	}
}

func (s *Scheduler) runNightly(ctx context.Context) {
	job, err := s.service.EnqueueSweep(ctx, SourceNightly)
	if err != nil {
		zap.L().Error("[Scheduler] failed to enqueue nightly sweep", zap.Error(err))
		return
	}
	zap.L().Info("[Scheduler] enqueued nightly sweep", zap.String("job_id", job.ID))
}

// nextRunTime returns the next wall-clock hour:minute strictly after now, in
// now's location. Adding a calendar day keeps the hour stable across DST.
func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !now.Before(next) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
	}
	return next
}
