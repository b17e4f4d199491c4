package services

import (
	"fmt"
	"strings"

	"github.com/huangang/sqldesk/internal/models"
	"gorm.io/gorm"
)

// ActionService records operator work items against a project.
type ActionService struct {
	db   *gorm.DB
	logs *SystemLogService
}

func NewActionService(db *gorm.DB, logs *SystemLogService) *ActionService {
	return &ActionService{db: db, logs: logs}
}

type ActionRequest struct {
	ActionType string               `json:"action_type"`
	Status     string               `json:"status"`
	Payload    models.ActionPayload `json:"payload"`
}

// List returns the project's actions, newest first.
func (s *ActionService) List(projectID uint, actor Actor) ([]models.Action, error) {
	if _, err := loadAccessibleProject(s.db, projectID, actor); err != nil {
		return nil, err
	}
	actions := []models.Action{}
	if err := s.db.Where("project_id = ?", projectID).Order("id DESC").Find(&actions).Error; err != nil {
		return nil, err
	}
	return actions, nil
}

func (s *ActionService) Create(projectID uint, req *ActionRequest, actor Actor) (*models.Action, error) {
	actionType := strings.TrimSpace(req.ActionType)
	if projectID == 0 || actionType == "" {
		return nil, ErrMissingFields
	}
	if _, err := loadAccessibleProject(s.db, projectID, actor); err != nil {
		return nil, err
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = models.ActionStatusQueued
	}
	payload, err := models.NewActionPayload(req.Payload)
	if err != nil {
		return nil, ErrInvalidPayload
	}

	action := models.Action{
		ProjectID:  projectID,
		ActionType: actionType,
		Status:     status,
		Payload:    payload,
	}
	if err := s.db.Create(&action).Error; err != nil {
		return nil, err
	}

	s.logs.Info(LogEntry{
		Module:  "Actions",
		Action:  "Create",
		Message: fmt.Sprintf("%s queued for project %d", actionType, projectID),
		UserID:  &actor.UserID,
		Extra:   map[string]interface{}{"project_id": projectID, "action_id": action.ID, "status": status},
	})
	return &action, nil
}
