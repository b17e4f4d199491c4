package models

import "time"

// SystemLog is one audit entry: an API request, a template run outcome, a
// reconcile sweep or a scheduler job. Retention cleanup deletes by CreatedAt.
type SystemLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Level     string    `gorm:"size:20;index" json:"level"`
	Module    string    `gorm:"size:100;index:idx_system_logs_module_action,priority:1" json:"module"`
	Action    string    `gorm:"size:200;index:idx_system_logs_module_action,priority:2" json:"action"`
	Message   string    `gorm:"type:text" json:"message"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	IP        string    `gorm:"size:50" json:"ip"`
	UserAgent string    `gorm:"size:500" json:"user_agent"`
	RequestID string    `gorm:"size:64" json:"request_id"`
	Extra     string    `gorm:"type:text" json:"extra"` // masked JSON
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (SystemLog) TableName() string { return "system_logs" }
