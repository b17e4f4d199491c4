package services

import (
	"github.com/huangang/sqldesk/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Scheduler runs housekeeping jobs: the reconciliation sweep and audit log
// retention.
type Scheduler struct {
	cron      *cron.Cron
	reconcile *ReconcileService
	logs      *SystemLogService
	retention int
}

func NewScheduler(reconcile *ReconcileService, logs *SystemLogService, retentionDays int) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		reconcile: reconcile,
		logs:      logs,
		retention: retentionDays,
	}
}

// Start registers the jobs. An empty sweepSpec disables the periodic sweep;
// one sweep always runs at startup.
func (s *Scheduler) Start(sweepSpec string) error {
	if sweepSpec != "" {
		if _, err := s.cron.AddFunc(sweepSpec, s.sweep); err != nil {
			return err
		}
	}
	if s.retention > 0 {
		if _, err := s.cron.AddFunc("@daily", s.cleanup); err != nil {
			return err
		}
	}

	s.cron.Start()
	go s.sweep()
	logger.Info().Str("sweep", sweepSpec).Int("retention_days", s.retention).Msg("scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) sweep() {
	flagged, err := s.reconcile.Sweep()
	if err != nil {
		logger.Error().Err(err).Msg("reconciliation sweep failed")
		return
	}
	if flagged > 0 {
		logger.Warn().Int64("runs", flagged).Msg("template runs flagged for resolution")
	}
}

func (s *Scheduler) cleanup() {
	deleted, err := s.logs.CleanupOldLogs(s.retention)
	if err != nil {
		logger.Error().Err(err).Msg("failed to cleanup old logs")
		return
	}
	if deleted > 0 {
		logger.Info().Int64("deleted", deleted).Int("retention_days", s.retention).Msg("cleaned up old logs")
	}
}
