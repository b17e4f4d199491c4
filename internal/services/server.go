package services

import (
	"strings"

	"github.com/huangang/sqldesk/internal/models"
	"gorm.io/gorm"
)

const defaultServerPort = 3306

// ServerService keeps the inventory of database servers attached to projects.
type ServerService struct {
	db *gorm.DB
}

func NewServerService(db *gorm.DB) *ServerService {
	return &ServerService{db: db}
}

type ServerRequest struct {
	ProjectID uint   `json:"project_id"`
	Name      string `json:"name"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Type      string `json:"type"`
	Version   string `json:"version"`
	DBUser    string `json:"db_user"`
	DBPass    string `json:"db_pass"`
	Charset   string `json:"charset"`
}

type ServerListRequest struct {
	ProjectID uint   `form:"project_id"`
	Project   string `form:"project"`
}

func (r *ServerRequest) validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Host = strings.TrimSpace(r.Host)
	r.Type = strings.TrimSpace(r.Type)
	if r.ProjectID == 0 || r.Name == "" || r.Host == "" || r.Type == "" {
		return ErrMissingFields
	}
	if r.Port <= 0 {
		r.Port = defaultServerPort
	}
	return nil
}

func (s *ServerService) List(req *ServerListRequest, actor Actor) ([]models.Server, error) {
	query := s.db.Model(&models.Server{}).
		Select("servers.*, projects.name AS project_name").
		Joins("JOIN projects ON projects.id = servers.project_id").
		Scopes(accessibleProjects(actor, "servers.project_id"))
	if req.ProjectID != 0 {
		query = query.Where("servers.project_id = ?", req.ProjectID)
	} else if req.Project != "" {
		query = query.Where("projects.name LIKE ?", "%"+req.Project+"%")
	}

	servers := []models.Server{}
	if err := query.Order("servers.id DESC").Find(&servers).Error; err != nil {
		return nil, err
	}
	return servers, nil
}

func (s *ServerService) GetByID(id uint, actor Actor) (*models.Server, error) {
	var server models.Server
	if err := s.db.First(&server, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrServerNotFound
		}
		return nil, err
	}
	if _, err := loadAccessibleProject(s.db, server.ProjectID, actor); err != nil {
		return nil, err
	}
	return &server, nil
}

func (s *ServerService) Create(req *ServerRequest, actor Actor) (*models.Server, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if _, err := loadAccessibleProject(s.db, req.ProjectID, actor); err != nil {
		return nil, err
	}

	server := models.Server{
		ProjectID: req.ProjectID,
		Name:      req.Name,
		Host:      req.Host,
		Port:      req.Port,
		Type:      req.Type,
		Version:   req.Version,
		DBUser:    req.DBUser,
		DBPass:    req.DBPass,
		Charset:   req.Charset,
	}
	if err := s.db.Create(&server).Error; err != nil {
		return nil, err
	}
	return &server, nil
}

// Update replaces the server record. An empty db_pass keeps the stored password.
func (s *ServerService) Update(id uint, req *ServerRequest, actor Actor) (*models.Server, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	server, err := s.GetByID(id, actor)
	if err != nil {
		return nil, err
	}
	if req.ProjectID != server.ProjectID {
		if _, err := loadAccessibleProject(s.db, req.ProjectID, actor); err != nil {
			return nil, err
		}
	}

	updates := map[string]interface{}{
		"project_id": req.ProjectID,
		"name":       req.Name,
		"host":       req.Host,
		"port":       req.Port,
		"type":       req.Type,
		"version":    req.Version,
		"db_user":    req.DBUser,
		"charset":    req.Charset,
	}
	if req.DBPass != "" {
		updates["db_pass"] = req.DBPass
	}
	if err := s.db.Model(server).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id, actor)
}

func (s *ServerService) Delete(id uint, actor Actor) error {
	server, err := s.GetByID(id, actor)
	if err != nil {
		return err
	}
	return s.db.Delete(server).Error
}
