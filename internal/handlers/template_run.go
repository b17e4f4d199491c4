package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/sqldesk/internal/services"
	"github.com/huangang/sqldesk/pkg/response"
)

// TemplateRunHandler exposes the run journal to admins.
type TemplateRunHandler struct {
	reconcileService *services.ReconcileService
}

func NewTemplateRunHandler(reconcileService *services.ReconcileService) *TemplateRunHandler {
	return &TemplateRunHandler{reconcileService: reconcileService}
}

type resolveRunRequest struct {
	Outcome string `json:"outcome"`
}

// GET /api/template-runs?status=&template_id=
func (h *TemplateRunHandler) List(c *gin.Context) {
	var req services.RunListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	runs, err := h.reconcileService.ListRuns(&req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, runs)
}

// POST /api/template-runs/:id/resolve
func (h *TemplateRunHandler) Resolve(c *gin.Context) {
	id, ok := paramID(c, "id", "run")
	if !ok {
		return
	}

	var req resolveRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	run, err := h.reconcileService.Resolve(id, req.Outcome, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, run)
}

// Sweep runs reconciliation immediately
// POST /api/template-runs/sweep
func (h *TemplateRunHandler) Sweep(c *gin.Context) {
	flagged, err := h.reconcileService.Sweep()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"flagged": flagged})
}
