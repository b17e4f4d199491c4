package services

import (
	"strings"

	"github.com/huangang/sqldesk/internal/models"
	"gorm.io/gorm"
)

// TemplateService handles template CRUD. Locked templates are immutable; the
// lock check is part of each write so a run claiming the template between
// read and write cannot be overtaken.
type TemplateService struct {
	db *gorm.DB
}

func NewTemplateService(db *gorm.DB) *TemplateService {
	return &TemplateService{db: db}
}

type TemplateListRequest struct {
	ProjectID uint   `form:"project_id"`
	Project   string `form:"project"` // project name, substring match
}

type TemplateRequest struct {
	ProjectID    uint                `json:"project_id"`
	Name         string              `json:"name"`
	DBType       string              `json:"db_type"`
	DBVersion    string              `json:"db_version"`
	StackVersion string              `json:"stack_version"`
	Notes        string              `json:"notes"`
	Body         models.TemplateBody `json:"body"`
}

func (r *TemplateRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.DBType = strings.TrimSpace(r.DBType)
	r.DBVersion = strings.TrimSpace(r.DBVersion)
	r.StackVersion = strings.TrimSpace(r.StackVersion)
}

func (s *TemplateService) List(req *TemplateListRequest, actor Actor) ([]models.Template, error) {
	query := s.db.Model(&models.Template{}).
		Select("templates.*, projects.name AS project_name").
		Joins("JOIN projects ON projects.id = templates.project_id").
		Scopes(accessibleProjects(actor, "templates.project_id"))
	if req.ProjectID != 0 {
		query = query.Where("templates.project_id = ?", req.ProjectID)
	} else if req.Project != "" {
		query = query.Where("projects.name LIKE ?", "%"+req.Project+"%")
	}

	templates := []models.Template{}
	if err := query.Order("templates.id DESC").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

func (s *TemplateService) GetByID(id uint, actor Actor) (*models.Template, error) {
	var tpl models.Template
	err := s.db.Model(&models.Template{}).
		Select("templates.*, projects.name AS project_name").
		Joins("JOIN projects ON projects.id = templates.project_id").
		Where("templates.id = ?", id).
		First(&tpl).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if _, err := loadAccessibleProject(s.db, tpl.ProjectID, actor); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (s *TemplateService) Create(req *TemplateRequest, actor Actor) (*models.Template, error) {
	req.normalize()
	if req.ProjectID == 0 || req.Name == "" || req.DBType == "" {
		return nil, ErrMissingFields
	}
	if _, err := loadAccessibleProject(s.db, req.ProjectID, actor); err != nil {
		return nil, err
	}

	tpl := models.Template{
		ProjectID:    req.ProjectID,
		Name:         req.Name,
		DBType:       req.DBType,
		DBVersion:    req.DBVersion,
		StackVersion: req.StackVersion,
		Notes:        req.Notes,
		Body:         req.Body,
	}
	if err := s.db.Create(&tpl).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (s *TemplateService) Update(id uint, req *TemplateRequest, actor Actor) (*models.Template, error) {
	req.normalize()
	if req.Name == "" || req.DBType == "" {
		return nil, ErrMissingFields
	}

	current, err := s.GetByID(id, actor)
	if err != nil {
		return nil, err
	}
	if current.IsLocked {
		return nil, ErrTemplateLocked
	}

	projectID := current.ProjectID
	if req.ProjectID != 0 && req.ProjectID != projectID {
		if _, err := loadAccessibleProject(s.db, req.ProjectID, actor); err != nil {
			return nil, err
		}
		projectID = req.ProjectID
	}

	body, err := req.Body.Value()
	if err != nil {
		return nil, err
	}
	result := s.db.Model(&models.Template{}).
		Where("id = ? AND is_locked = ?", id, false).
		Updates(map[string]interface{}{
			"project_id":    projectID,
			"name":          req.Name,
			"db_type":       req.DBType,
			"db_version":    req.DBVersion,
			"stack_version": req.StackVersion,
			"notes":         req.Notes,
			"body_json":     body,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrTemplateLocked
	}
	return s.GetByID(id, actor)
}

func (s *TemplateService) Delete(id uint, actor Actor) error {
	current, err := s.GetByID(id, actor)
	if err != nil {
		return err
	}
	if current.IsLocked {
		return ErrTemplateLocked
	}

	result := s.db.Where("id = ? AND is_locked = ?", id, false).Delete(&models.Template{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTemplateLocked
	}
	return s.db.Where("template_id = ?", id).Delete(&models.TemplateRun{}).Error
}
