package services

import (
	"fmt"
	"time"

	"github.com/huangang/sqldesk/internal/models"
	"github.com/huangang/sqldesk/pkg/logger"
	"gorm.io/gorm"
)

const (
	OutcomeExecuted    = "executed"
	OutcomeNotExecuted = "not_executed"
)

// ReconcileService settles template runs whose outcome was never recorded,
// typically because the process died between the project commit and the
// metadata update.
type ReconcileService struct {
	db    *gorm.DB
	logs  *SystemLogService
	grace time.Duration
	now   func() time.Time
}

func NewReconcileService(db *gorm.DB, logs *SystemLogService, grace time.Duration) *ReconcileService {
	if grace <= 0 {
		grace = 15 * time.Minute
	}
	return &ReconcileService{db: db, logs: logs, grace: grace, now: time.Now}
}

// Sweep marks pending runs older than the grace period as unknown. Their
// templates stay locked until an admin resolves them.
func (s *ReconcileService) Sweep() (int64, error) {
	cutoff := s.now().Add(-s.grace)

	var stale []models.TemplateRun
	if err := s.db.Where("status = ? AND started_at < ?", models.RunStatusPending, cutoff).Find(&stale).Error; err != nil {
		return 0, err
	}

	var flagged int64
	for _, run := range stale {
		result := s.db.Model(&models.TemplateRun{}).
			Where("id = ? AND status = ?", run.ID, models.RunStatusPending).
			Update("status", models.RunStatusUnknown)
		if result.Error != nil {
			return flagged, result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}
		flagged++
		logger.Warn().Str("run", run.Token).Uint("template", run.TemplateID).Str("database", run.Database).
			Msg("template run outcome unknown, needs resolution")
		s.logs.Warning(LogEntry{
			Module:  "Templates",
			Action:  "Reconcile",
			Message: fmt.Sprintf("run %s on %s has no recorded outcome", run.Token, run.Database),
			Extra:   map[string]interface{}{"run_id": run.ID, "template_id": run.TemplateID},
		})
	}
	return flagged, nil
}

type RunListRequest struct {
	Status     string `form:"status"`
	TemplateID uint   `form:"template_id"`
	Limit      int    `form:"limit"`
}

func (s *ReconcileService) ListRuns(req *RunListRequest) ([]models.TemplateRun, error) {
	if req.Limit <= 0 || req.Limit > 500 {
		req.Limit = 100
	}
	query := s.db.Model(&models.TemplateRun{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.TemplateID != 0 {
		query = query.Where("template_id = ?", req.TemplateID)
	}

	runs := []models.TemplateRun{}
	if err := query.Order("id DESC").Limit(req.Limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// Resolve records an admin's verdict on an unknown run. "executed" keeps the
// template locked and stamps last_run_at; "not_executed" unlocks it so it can
// be run again.
func (s *ReconcileService) Resolve(runID uint, outcome string, actor Actor) (*models.TemplateRun, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if outcome != OutcomeExecuted && outcome != OutcomeNotExecuted {
		return nil, ErrInvalidOutcome
	}

	var run models.TemplateRun
	if err := s.db.First(&run, runID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	now := s.now()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		runUpdate := map[string]interface{}{"finished_at": now}
		tplUpdate := map[string]interface{}{}
		if outcome == OutcomeExecuted {
			runUpdate["status"] = models.RunStatusSucceeded
			tplUpdate["is_locked"] = true
			tplUpdate["locked_at"] = now
			tplUpdate["last_run_at"] = now
		} else {
			runUpdate["status"] = models.RunStatusFailed
			runUpdate["error"] = "resolved as not executed"
			tplUpdate["is_locked"] = false
			tplUpdate["locked_at"] = nil
		}

		result := tx.Model(&models.TemplateRun{}).
			Where("id = ? AND status = ?", runID, models.RunStatusUnknown).
			Updates(runUpdate)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRunSettled
		}
		return tx.Model(&models.Template{}).Where("id = ?", run.TemplateID).Updates(tplUpdate).Error
	})
	if err != nil {
		return nil, err
	}

	s.logs.Info(LogEntry{
		Module:  "Templates",
		Action:  "Resolve",
		Message: fmt.Sprintf("run %s resolved as %s", run.Token, outcome),
		UserID:  &actor.UserID,
	})

	if err := s.db.First(&run, runID).Error; err != nil {
		return nil, err
	}
	return &run, nil
}
