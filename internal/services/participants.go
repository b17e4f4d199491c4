package services

import (
	"fmt"
	"sort"

	"github.com/huangang/sqldesk/internal/models"
)

const (
	MemberRoleOwner       = "owner"
	MemberRoleParticipant = "participant"
)

type ProjectMember struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type ProjectMembers struct {
	OwnerID uint            `json:"owner_id"`
	Items   []ProjectMember `json:"items"`
}

// Participants lists the owner first, then participants by name.
func (s *ProjectService) Participants(projectID uint, actor Actor) (*ProjectMembers, error) {
	project, err := loadAccessibleProject(s.db, projectID, actor)
	if err != nil {
		return nil, err
	}

	result := &ProjectMembers{OwnerID: project.OwnerID, Items: []ProjectMember{}}

	var owner models.User
	if err := s.db.First(&owner, project.OwnerID).Error; err == nil {
		result.Items = append(result.Items, ProjectMember{ID: owner.ID, Name: owner.Name, Email: owner.Email, Role: MemberRoleOwner})
	} else if !isNotFound(err) {
		return nil, err
	}

	var rows []models.ProjectParticipant
	if err := s.db.Preload("User").Where("project_id = ?", projectID).Find(&rows).Error; err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return participantName(rows[i]) < participantName(rows[j]) })
	for _, pp := range rows {
		if pp.User == nil {
			continue
		}
		result.Items = append(result.Items, ProjectMember{ID: pp.User.ID, Name: pp.User.Name, Email: pp.User.Email, Role: MemberRoleParticipant})
	}
	return result, nil
}

// AddParticipant grants userID access. Only the owner or an admin may do this.
func (s *ProjectService) AddParticipant(projectID, userID uint, actor Actor) error {
	project, err := s.manageableProject(projectID, actor)
	if err != nil {
		return err
	}
	if userID == 0 {
		return ErrInvalidUserID
	}
	if userID == project.OwnerID {
		return ErrOwnerAssigned
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}

	var count int64
	if err := s.db.Model(&models.ProjectParticipant{}).Where("project_id = ? AND user_id = ?", projectID, userID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrAlreadyParticipant
	}

	if err := s.db.Create(&models.ProjectParticipant{ProjectID: projectID, UserID: userID}).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrAlreadyParticipant
		}
		return err
	}

	s.logs.Info(LogEntry{
		Module:  "Projects",
		Action:  "AddParticipant",
		Message: fmt.Sprintf("%s added to project %q", user.Email, project.Name),
		UserID:  &actor.UserID,
	})
	return nil
}

func (s *ProjectService) RemoveParticipant(projectID, userID uint, actor Actor) error {
	project, err := s.manageableProject(projectID, actor)
	if err != nil {
		return err
	}
	if userID == project.OwnerID {
		return ErrRemoveOwner
	}
	return s.db.Where("project_id = ? AND user_id = ?", projectID, userID).Delete(&models.ProjectParticipant{}).Error
}

func (s *ProjectService) manageableProject(projectID uint, actor Actor) (*models.Project, error) {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	if !actor.IsAdmin() && project.OwnerID != actor.UserID {
		return nil, ErrForbidden
	}
	return &project, nil
}
