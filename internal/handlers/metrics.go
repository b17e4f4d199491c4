package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/sqldesk/internal/models"
	"gorm.io/gorm"
)

var startTime = time.Now()

// Metrics returns Prometheus-compatible text format metrics.
func Metrics(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var b strings.Builder

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		writeGauge(&b, "sqldesk_uptime_seconds", "Time since server start in seconds", time.Since(startTime).Seconds())
		writeGauge(&b, "sqldesk_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
		writeGauge(&b, "sqldesk_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))

		if sqlDB, err := db.DB(); err == nil {
			stats := sqlDB.Stats()
			writeGauge(&b, "sqldesk_db_open_connections", "Number of open metadata store connections", float64(stats.OpenConnections))
			writeGauge(&b, "sqldesk_db_in_use_connections", "Number of in-use metadata store connections", float64(stats.InUse))
		}

		var projects, templates, locked int64
		db.Model(&models.Project{}).Count(&projects)
		db.Model(&models.Template{}).Count(&templates)
		db.Model(&models.Template{}).Where("is_locked = ?", true).Count(&locked)
		writeGauge(&b, "sqldesk_projects_total", "Number of projects", float64(projects))
		writeGauge(&b, "sqldesk_templates_total", "Number of templates", float64(templates))
		writeGauge(&b, "sqldesk_templates_locked", "Number of templates that have run", float64(locked))

		for _, status := range []string{models.RunStatusPending, models.RunStatusSucceeded, models.RunStatusFailed, models.RunStatusUnknown} {
			var n int64
			db.Model(&models.TemplateRun{}).Where("status = ?", status).Count(&n)
			writeGauge(&b, "sqldesk_template_runs_"+status, "Template runs with status "+status, float64(n))
		}

		c.Data(200, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
	}
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}
