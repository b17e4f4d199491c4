package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/sqldesk/internal/services"
	"github.com/huangang/sqldesk/pkg/response"
)

type BackupHandler struct {
	backupService *services.BackupService
}

func NewBackupHandler(backupService *services.BackupService) *BackupHandler {
	return &BackupHandler{backupService: backupService}
}

// ListAll lists backups across visible projects
// GET /api/backups?project=
func (h *BackupHandler) ListAll(c *gin.Context) {
	var req services.BackupListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.list(c, &req)
}

// List
// GET /api/projects/:id/backups
func (h *BackupHandler) List(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}
	h.list(c, &services.BackupListRequest{ProjectID: projectID})
}

func (h *BackupHandler) list(c *gin.Context, req *services.BackupListRequest) {
	backups, err := h.backupService.List(req, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, backups)
}

// Create snapshots the project's templates to disk
// POST /api/projects/:id/backups
func (h *BackupHandler) Create(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req services.BackupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	backup, err := h.backupService.Create(projectID, &req, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"id": backup.ID, "location": backup.Location})
}

// PUT /api/projects/:id/backups/:backupId
func (h *BackupHandler) Update(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}
	backupID, ok := paramID(c, "backupId", "backup")
	if !ok {
		return
	}

	var req services.BackupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if _, err := h.backupService.Update(projectID, backupID, &req, actorFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// DELETE /api/projects/:id/backups/:backupId
func (h *BackupHandler) Delete(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}
	backupID, ok := paramID(c, "backupId", "backup")
	if !ok {
		return
	}

	if err := h.backupService.Delete(projectID, backupID, actorFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
