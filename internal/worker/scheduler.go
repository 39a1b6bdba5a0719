package worker

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/bollettalabs/bolletta-sync/internal/pkg/logger"
	"github.com/bollettalabs/bolletta-sync/internal/syncer"
)

// Scheduler runs unattended sync passes on a cron schedule. Each pass
// covers all providers over the default trailing window.
type Scheduler struct {
	engine   *syncer.Engine
	schedule string
	cron     *cron.Cron
	logger   *logger.Logger
}

// NewScheduler creates a scheduled sync worker. The schedule is a
// standard five-field cron expression.
func NewScheduler(engine *syncer.Engine, schedule string, log *logger.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, err
	}
	return &Scheduler{
		engine:   engine,
		schedule: schedule,
		cron:     cron.New(),
		logger:   log,
	}, nil
}

// Start registers the job and runs the scheduler until ctx is cancelled
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.runPass(ctx)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"schedule": s.schedule,
	}).Info("Sync scheduler started")

	s.cron.Start()
	<-ctx.Done()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("Sync scheduler stopped")
	return nil
}

func (s *Scheduler) runPass(ctx context.Context) {
	report, err := s.engine.Run(ctx, syncer.Request{})
	if err != nil {
		s.logger.ErrorWithErr(err, "Scheduled sync pass failed to start")
		return
	}
	s.logger.WithFields(map[string]interface{}{
		"run_id": report.ID,
		"status": report.Status,
	}).Info("Scheduled sync pass finished")
}
