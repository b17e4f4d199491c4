package models

import "time"

const ProjectStatusActive = "active"

// Project owns one provisioned database whose identifier is derived from Name.
type Project struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"size:100;not null" json:"code"`
	Name      string    `gorm:"uniqueIndex;size:255;not null" json:"name"`
	ShortName string    `gorm:"size:100" json:"short_name"`
	Version   string    `gorm:"size:50" json:"version"`
	Type      string    `gorm:"size:50" json:"type"`
	Status    string    `gorm:"size:20;default:active" json:"status"`
	OwnerID   uint      `gorm:"index;not null" json:"owner_id"`
	Owner     *User     `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:100;not null" json:"name"`
}

func (Tag) TableName() string { return "tags" }

type ProjectTag struct {
	ProjectID uint `gorm:"primaryKey;autoIncrement:false" json:"project_id"`
	TagID     uint `gorm:"primaryKey;autoIncrement:false" json:"tag_id"`
}

func (ProjectTag) TableName() string { return "project_tags" }
