package models

import "time"

// Template is a stored SQL script replayed against its project's database.
// Once a run succeeds the template is locked and can no longer change.
type Template struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	ProjectID    uint         `gorm:"index;not null" json:"project_id"`
	Name         string       `gorm:"size:255;not null" json:"name"`
	DBType       string       `gorm:"column:db_type;size:50;not null" json:"db_type"`
	DBVersion    string       `gorm:"column:db_version;size:50" json:"db_version"`
	StackVersion string       `gorm:"size:50" json:"stack_version"`
	Notes        string       `gorm:"type:text" json:"notes"`
	Body         TemplateBody `gorm:"column:body_json;type:text" json:"body"`
	IsLocked     bool         `gorm:"not null;default:false" json:"is_locked"`
	LockedAt     *time.Time   `json:"locked_at"`
	LastRunAt    *time.Time   `json:"last_run_at"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	ProjectName  string       `gorm:"->;-:migration" json:"project_name,omitempty"`
}

func (Template) TableName() string { return "templates" }

const (
	RunStatusPending   = "pending"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusUnknown   = "unknown" // flagged by reconciliation, needs an admin decision
)

// TemplateRun journals one execution attempt. A run is written as pending
// before any statement reaches the project database, so a crash between the
// project commit and the metadata update leaves a pending row behind.
type TemplateRun struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Token      string     `gorm:"uniqueIndex;size:36;not null" json:"token"`
	TemplateID uint       `gorm:"index;not null" json:"template_id"`
	ProjectID  uint       `gorm:"index;not null" json:"project_id"`
	UserID     uint       `json:"user_id"`
	Database   string     `gorm:"size:255" json:"database"`
	Status     string     `gorm:"size:20;index;not null" json:"status"`
	Statements int        `json:"statements"`
	Error      string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt  time.Time  `gorm:"index" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

func (TemplateRun) TableName() string { return "template_runs" }
