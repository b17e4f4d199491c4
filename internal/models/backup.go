package models

import "time"

// Backup indexes a snapshot directory written to disk. The files are the
// source of truth; deleting the row leaves them in place.
type Backup struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProjectID    uint      `gorm:"index;not null" json:"project_id"`
	BackupType   string    `gorm:"size:50;not null" json:"backup_type"`
	Location     string    `gorm:"size:1024" json:"location"`
	VersionLabel string    `gorm:"size:100" json:"version_label"`
	CreatedAt    time.Time `json:"created_at"`
	ProjectName  string    `gorm:"->;-:migration" json:"project_name,omitempty"`
}

func (Backup) TableName() string { return "backups" }
