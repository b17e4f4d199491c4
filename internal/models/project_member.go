package models

import "time"

// ProjectParticipant grants a non-owner user access to a project.
type ProjectParticipant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"uniqueIndex:idx_project_participant;not null" json:"project_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_project_participant;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProjectParticipant) TableName() string { return "project_participants" }
