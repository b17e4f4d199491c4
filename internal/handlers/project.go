package handlers

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/huangang/sqldesk/internal/services"
	"github.com/huangang/sqldesk/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// List returns the caller's projects
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	var req services.ProjectListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.projectService.List(&req, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// GetByID returns a project by ID
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	project, err := h.projectService.GetByID(id, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// Create provisions the project database and records the project
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), &req, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"id": project.ID})
}

// Update updates a project
// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req services.ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if _, err := h.projectService.Update(id, &req, actorFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// Delete removes a project and drops its database
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), id, actorFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// Import creates projects in bulk
// POST /api/projects/import
func (h *ProjectHandler) Import(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	items, err := services.ParseImport(data)
	if err != nil {
		response.Unprocessable(c, "Invalid import payload")
		return
	}

	result, err := h.projectService.Import(c.Request.Context(), items, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true, "created": result.Created, "skipped": result.Skipped})
}

type addParticipantRequest struct {
	UserID uint `json:"user_id"`
}

// Participants lists owner and participants
// GET /api/projects/:id/participants
func (h *ProjectHandler) Participants(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	members, err := h.projectService.Participants(id, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, members)
}

// AddParticipant
// POST /api/projects/:id/participants
func (h *ProjectHandler) AddParticipant(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req addParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.projectService.AddParticipant(id, req.UserID, actorFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"ok": true})
}

// RemoveParticipant
// DELETE /api/projects/:id/participants/:userId
func (h *ProjectHandler) RemoveParticipant(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}
	userID, ok := paramID(c, "userId", "user")
	if !ok {
		return
	}

	if err := h.projectService.RemoveParticipant(id, userID, actorFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// GET /api/tags
func (h *ProjectHandler) Tags(c *gin.Context) {
	tags, err := h.projectService.ListTags()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tags)
}
