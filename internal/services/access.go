package services

import (
	"github.com/huangang/sqldesk/internal/models"
	"gorm.io/gorm"
)

// Actor is the authenticated caller as seen by services.
type Actor struct {
	UserID uint
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// canAccessProject reports whether the actor is an admin, the owner or a participant.
func canAccessProject(db *gorm.DB, project *models.Project, actor Actor) (bool, error) {
	if actor.IsAdmin() || project.OwnerID == actor.UserID {
		return true, nil
	}
	var count int64
	err := db.Model(&models.ProjectParticipant{}).
		Where("project_id = ? AND user_id = ?", project.ID, actor.UserID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// loadAccessibleProject returns the project or ErrProjectNotFound / ErrForbidden.
func loadAccessibleProject(db *gorm.DB, projectID uint, actor Actor) (*models.Project, error) {
	var project models.Project
	if err := db.First(&project, projectID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	ok, err := canAccessProject(db, &project, actor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return &project, nil
}

// accessibleProjects restricts a query to projects the actor may see.
// column is the qualified project id column of the query, e.g. "templates.project_id".
func accessibleProjects(actor Actor, column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if actor.IsAdmin() {
			return db
		}
		return db.Where(
			"("+column+" IN (SELECT id FROM projects WHERE owner_id = ?) OR "+
				column+" IN (SELECT project_id FROM project_participants WHERE user_id = ?))",
			actor.UserID, actor.UserID,
		)
	}
}
