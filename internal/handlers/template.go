package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/sqldesk/internal/services"
	"github.com/huangang/sqldesk/pkg/response"
)

type TemplateHandler struct {
	templateService *services.TemplateService
	runner          *services.TemplateRunner
}

func NewTemplateHandler(templateService *services.TemplateService, runner *services.TemplateRunner) *TemplateHandler {
	return &TemplateHandler{templateService: templateService, runner: runner}
}

// List
// GET /api/templates?project_id=&project=
func (h *TemplateHandler) List(c *gin.Context) {
	var req services.TemplateListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	templates, err := h.templateService.List(&req, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, templates)
}

// GET /api/templates/:id
func (h *TemplateHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id", "template")
	if !ok {
		return
	}

	tpl, err := h.templateService.GetByID(id, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tpl)
}

// POST /api/templates
func (h *TemplateHandler) Create(c *gin.Context) {
	var req services.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Unprocessable(c, "Invalid template payload")
		return
	}

	tpl, err := h.templateService.Create(&req, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"id": tpl.ID})
}

// PUT /api/templates/:id
func (h *TemplateHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "template")
	if !ok {
		return
	}

	var req services.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Unprocessable(c, "Invalid template payload")
		return
	}

	if _, err := h.templateService.Update(id, &req, actorFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// DELETE /api/templates/:id
func (h *TemplateHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "template")
	if !ok {
		return
	}

	if err := h.templateService.Delete(id, actorFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// Run executes the template against its project database and locks it
// POST /api/templates/:id/run
func (h *TemplateHandler) Run(c *gin.Context) {
	id, ok := paramID(c, "id", "template")
	if !ok {
		return
	}

	run, err := h.runner.Run(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true, "run": run.Token})
}
