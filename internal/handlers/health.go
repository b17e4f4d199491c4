package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangang/sqldesk/internal/models"
	"gorm.io/gorm"
)

// HealthHandler reports the metadata store and run journal state.
type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// CheckHealth
// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	var unresolved int64
	if dbStatus == "ok" {
		h.db.Model(&models.TemplateRun{}).Where("status = ?", models.RunStatusUnknown).Count(&unresolved)
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "sqldesk",
		"components": gin.H{
			"database":        dbStatus,
			"unresolved_runs": unresolved,
		},
	})
}
