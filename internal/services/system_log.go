package services

import (
	"encoding/json"
	"time"

	"github.com/huangang/sqldesk/internal/models"
	"github.com/huangang/sqldesk/pkg/logger"
	"gorm.io/gorm"
)

const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// LogEntry is one audit record. Extra is stored as JSON.
type LogEntry struct {
	Module    string
	Action    string
	Message   string
	UserID    *uint
	IP        string
	UserAgent string
	RequestID string
	Extra     interface{}
}

// SystemLogService writes and queries the audit trail. A nil service drops
// entries, which keeps services usable without auditing in tests.
type SystemLogService struct {
	db *gorm.DB
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db}
}

func (s *SystemLogService) Info(e LogEntry)    { s.write(LevelInfo, e) }
func (s *SystemLogService) Warning(e LogEntry) { s.write(LevelWarning, e) }
func (s *SystemLogService) Error(e LogEntry)   { s.write(LevelError, e) }

func (s *SystemLogService) write(level string, e LogEntry) {
	if s == nil || s.db == nil {
		return
	}

	var extra string
	if e.Extra != nil {
		if b, err := json.Marshal(e.Extra); err == nil {
			extra = string(b)
		}
	}

	entry := &models.SystemLog{
		Level:     level,
		Module:    e.Module,
		Action:    e.Action,
		Message:   e.Message,
		UserID:    e.UserID,
		IP:        e.IP,
		UserAgent: e.UserAgent,
		RequestID: e.RequestID,
		Extra:     extra,
		CreatedAt: time.Now(),
	}
	if err := s.db.Create(entry).Error; err != nil {
		logger.Warn().Err(err).Str("module", e.Module).Str("action", e.Action).Msg("failed to write system log")
	}
}

type SystemLogListRequest struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	Level     string `form:"level"`
	Module    string `form:"module"`
	Action    string `form:"action"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Search    string `form:"search"`
}

type SystemLogListResponse struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Items    []models.SystemLog `json:"items"`
}

func (s *SystemLogService) List(req *SystemLogListRequest) (*SystemLogListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.SystemLog{})
	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.StartDate != "" {
		query = query.Where("created_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("created_at <= ?", req.EndDate+" 23:59:59")
	}
	if req.Search != "" {
		query = query.Where("message LIKE ?", "%"+req.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var logs []models.SystemLog
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, err
	}

	return &SystemLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

func (s *SystemLogService) GetModules() ([]string, error) {
	var modules []string
	if err := s.db.Model(&models.SystemLog{}).Distinct("module").Pluck("module", &modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

// CleanupOldLogs deletes logs older than retentionDays and returns how many went.
func (s *SystemLogService) CleanupOldLogs(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
