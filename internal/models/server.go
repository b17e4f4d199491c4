package models

import "time"

// Server records connection details of a database server used by a project.
type Server struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProjectID   uint      `gorm:"index;not null" json:"project_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Host        string    `gorm:"size:255;not null" json:"host"`
	Port        int       `gorm:"default:3306" json:"port"`
	Type        string    `gorm:"size:50;not null" json:"type"`
	Version     string    `gorm:"size:50" json:"version"`
	DBUser      string    `gorm:"column:db_user;size:100" json:"db_user"`
	DBPass      string    `gorm:"column:db_pass;size:255" json:"-"`
	Charset     string    `gorm:"size:50" json:"charset"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ProjectName string    `gorm:"->;-:migration" json:"project_name,omitempty"`
}

func (Server) TableName() string { return "servers" }
