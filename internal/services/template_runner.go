package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangang/sqldesk/internal/models"
	"github.com/huangang/sqldesk/internal/provisioner"
	"github.com/huangang/sqldesk/internal/utils"
	"github.com/huangang/sqldesk/pkg/logger"
	"gorm.io/gorm"
)

// TemplateRunner executes a template's statements against its project's
// database at most once.
//
// The template is claimed with a compare-and-set on is_locked before any
// statement is sent, so concurrent callers cannot both execute it. Each
// attempt is journaled in template_runs; a run still pending after a crash
// is picked up by ReconcileService.
type TemplateRunner struct {
	db          *gorm.DB
	provisioner provisioner.Provisioner
	logs        *SystemLogService
	now         func() time.Time
}

func NewTemplateRunner(db *gorm.DB, prov provisioner.Provisioner, logs *SystemLogService) *TemplateRunner {
	return &TemplateRunner{db: db, provisioner: prov, logs: logs, now: time.Now}
}

// Run executes template id and locks it. Every statement runs inside one
// transaction on the project database; on failure nothing is committed and
// the template stays editable. Cancelling ctx does not stop a run.
func (r *TemplateRunner) Run(ctx context.Context, id uint, actor Actor) (*models.TemplateRun, error) {
	// A caller going away must not abort statements half applied.
	ctx = context.WithoutCancel(ctx)

	var tpl models.Template
	if err := r.db.First(&tpl, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	project, err := loadAccessibleProject(r.db, tpl.ProjectID, actor)
	if err != nil {
		return nil, err
	}
	if tpl.IsLocked {
		return nil, ErrTemplateLocked
	}

	database := utils.NormalizeName(project.Name)
	if database == "" {
		return nil, ErrInvalidName
	}
	statements := tpl.Body.Statements()

	started := r.now()
	run := models.TemplateRun{
		Token:      uuid.NewString(),
		TemplateID: id,
		ProjectID:  project.ID,
		UserID:     actor.UserID,
		Database:   database,
		Status:     models.RunStatusPending,
		Statements: len(statements),
		StartedAt:  started,
	}
	// A claim never commits without its pending journal row, so the sweep can
	// always reach a locked template.
	err = r.db.Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&models.Template{}).
			Where("id = ? AND is_locked = ?", id, false).
			Updates(map[string]interface{}{"is_locked": true, "locked_at": started})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return ErrTemplateLocked
		}
		return tx.Create(&run).Error
	})
	if err != nil {
		return nil, err
	}

	if execErr := r.execute(ctx, project.Name, statements); execErr != nil {
		r.release(id)
		finished := r.now()
		run.Status = models.RunStatusFailed
		run.Error = execErr.Error()
		run.FinishedAt = &finished
		if err := r.db.Model(&run).Updates(map[string]interface{}{
			"status":      run.Status,
			"error":       run.Error,
			"finished_at": finished,
		}).Error; err != nil {
			logger.Error().Err(err).Str("run", run.Token).Msg("failed to mark template run as failed")
		}

		r.logs.Warning(LogEntry{
			Module:  "Templates",
			Action:  "Run",
			Message: fmt.Sprintf("template %d failed on %s", id, database),
			UserID:  &actor.UserID,
			Extra:   map[string]interface{}{"run": run.Token, "error": run.Error},
		})
		return &run, ErrExecutionFailed.WithDetail(execErr.Error()).Wrap(execErr)
	}

	finished := r.now()
	err = r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Template{}).Where("id = ?", id).Updates(map[string]interface{}{
			"is_locked":   true,
			"locked_at":   finished,
			"last_run_at": finished,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&run).Updates(map[string]interface{}{
			"status":      models.RunStatusSucceeded,
			"finished_at": finished,
		}).Error
	})
	if err != nil {
		// The project database has committed. The template stays claimed and
		// the pending run is left for reconciliation.
		logger.Error().Err(err).Str("run", run.Token).Uint("template", id).Msg("template executed but run was not recorded")
		return &run, ErrRunNotRecorded.Wrap(err)
	}
	run.Status = models.RunStatusSucceeded
	run.FinishedAt = &finished

	r.logs.Info(LogEntry{
		Module:  "Templates",
		Action:  "Run",
		Message: fmt.Sprintf("template %d executed on %s", id, database),
		UserID:  &actor.UserID,
		Extra:   map[string]interface{}{"run": run.Token, "statements": len(statements)},
	})
	return &run, nil
}

func (r *TemplateRunner) execute(ctx context.Context, projectName string, statements []string) error {
	conn, err := r.provisioner.Open(ctx, projectName)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := execAll(ctx, tx, statements); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func execAll(ctx context.Context, tx *sql.Tx, statements []string) error {
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *TemplateRunner) release(id uint) {
	err := r.db.Model(&models.Template{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_locked": false, "locked_at": nil}).Error
	if err != nil {
		logger.Error().Err(err).Uint("template", id).Msg("failed to release template claim")
	}
}
