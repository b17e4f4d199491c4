package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangang/sqldesk/internal/models"
	"github.com/huangang/sqldesk/internal/utils"
	"gorm.io/gorm"
)

const versionLabelLayout = "20060102_150405"

// BackupService writes template snapshots to disk and indexes them.
type BackupService struct {
	db   *gorm.DB
	logs *SystemLogService
	now  func() time.Time
}

func NewBackupService(db *gorm.DB, logs *SystemLogService) *BackupService {
	return &BackupService{db: db, logs: logs, now: time.Now}
}

type BackupRequest struct {
	BackupType   string `json:"backup_type"`
	Location     string `json:"location"`
	VersionLabel string `json:"version_label"`
}

type BackupListRequest struct {
	ProjectID uint   `form:"project_id"`
	Project   string `form:"project"`
}

// Create snapshots every template of the project into
// {location}/{project}_{version}/{template}_{version}.json and records the
// backup. The row is only written once every file is on disk.
func (s *BackupService) Create(projectID uint, req *BackupRequest, actor Actor) (*models.Backup, error) {
	backupType := strings.TrimSpace(req.BackupType)
	if backupType == "" {
		return nil, ErrMissingFields
	}
	base := strings.TrimSpace(req.Location)
	if base == "" {
		return nil, ErrInvalidLocation
	}
	if info, err := os.Stat(base); err != nil || !info.IsDir() {
		return nil, ErrInvalidLocation.WithDetail(base)
	}

	project, err := loadAccessibleProject(s.db, projectID, actor)
	if err != nil {
		return nil, err
	}

	projectLabel := utils.SanitizeLabel(project.Name)
	if projectLabel == "" {
		projectLabel = utils.SanitizeLabel(project.Code)
	}
	if projectLabel == "" {
		projectLabel = fmt.Sprintf("project_%d", project.ID)
	}

	stamp := s.now().Format(versionLabelLayout)
	version := utils.SanitizeLabel(req.VersionLabel)
	if version == "" {
		version = stamp
	}

	dir := filepath.Join(base, projectLabel+"_"+version)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, ErrStorage.WithDetail(err.Error()).Wrap(err)
	}

	var templates []models.Template
	if err := s.db.Where("project_id = ?", projectID).Order("id").Find(&templates).Error; err != nil {
		return nil, err
	}

	used := make(map[string]bool, len(templates))
	for _, tpl := range templates {
		if err := writeSnapshot(dir, snapshotName(tpl, used), version, tpl.Body); err != nil {
			return nil, ErrStorage.WithDetail(err.Error()).Wrap(err)
		}
	}

	backup := models.Backup{
		ProjectID:    projectID,
		BackupType:   backupType,
		Location:     dir,
		VersionLabel: version,
	}
	if err := s.db.Create(&backup).Error; err != nil {
		return nil, err
	}

	s.logs.Info(LogEntry{
		Module:  "Backups",
		Action:  "Create",
		Message: fmt.Sprintf("snapshot of %d templates written to %s", len(templates), dir),
		UserID:  &actor.UserID,
		Extra:   map[string]interface{}{"project_id": projectID, "backup_id": backup.ID},
	})
	return &backup, nil
}

// snapshotName returns the file stem for tpl, suffixing the id when two
// templates sanitize to the same name.
func snapshotName(tpl models.Template, used map[string]bool) string {
	name := utils.SanitizeLabel(tpl.Name)
	if name == "" {
		name = fmt.Sprintf("template_%d", tpl.ID)
	}
	if used[name] {
		name = fmt.Sprintf("%s_%d", name, tpl.ID)
	}
	used[name] = true
	return name
}

func writeSnapshot(dir, name, version string, body models.TemplateBody) error {
	data, err := body.Pretty()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name+"_"+version+".json"), data, 0644)
}

func (s *BackupService) List(req *BackupListRequest, actor Actor) ([]models.Backup, error) {
	if req.ProjectID != 0 {
		if _, err := loadAccessibleProject(s.db, req.ProjectID, actor); err != nil {
			return nil, err
		}
	}

	query := s.db.Model(&models.Backup{}).
		Select("backups.*, projects.name AS project_name").
		Joins("JOIN projects ON projects.id = backups.project_id").
		Scopes(accessibleProjects(actor, "backups.project_id"))
	if req.ProjectID != 0 {
		query = query.Where("backups.project_id = ?", req.ProjectID)
	} else if req.Project != "" {
		query = query.Where("projects.name LIKE ?", "%"+req.Project+"%")
	}

	backups := []models.Backup{}
	if err := query.Order("backups.id DESC").Find(&backups).Error; err != nil {
		return nil, err
	}
	return backups, nil
}

// Update edits backup metadata only; files on disk are not moved.
func (s *BackupService) Update(projectID, backupID uint, req *BackupRequest, actor Actor) (*models.Backup, error) {
	if strings.TrimSpace(req.BackupType) == "" {
		return nil, ErrMissingFields
	}
	backup, err := s.scoped(projectID, backupID, actor)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"backup_type":   strings.TrimSpace(req.BackupType),
		"location":      strings.TrimSpace(req.Location),
		"version_label": strings.TrimSpace(req.VersionLabel),
	}
	if err := s.db.Model(backup).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := s.db.First(backup, backupID).Error; err != nil {
		return nil, err
	}
	return backup, nil
}

// Delete removes the index row and leaves the snapshot files in place.
func (s *BackupService) Delete(projectID, backupID uint, actor Actor) error {
	backup, err := s.scoped(projectID, backupID, actor)
	if err != nil {
		return err
	}
	return s.db.Delete(backup).Error
}

func (s *BackupService) scoped(projectID, backupID uint, actor Actor) (*models.Backup, error) {
	if _, err := loadAccessibleProject(s.db, projectID, actor); err != nil {
		return nil, err
	}
	var backup models.Backup
	if err := s.db.Where("id = ? AND project_id = ?", backupID, projectID).First(&backup).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrBackupNotFound
		}
		return nil, err
	}
	return &backup, nil
}
