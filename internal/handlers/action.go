package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/sqldesk/internal/services"
	"github.com/huangang/sqldesk/pkg/response"
)

type ActionHandler struct {
	actionService *services.ActionService
}

func NewActionHandler(actionService *services.ActionService) *ActionHandler {
	return &ActionHandler{actionService: actionService}
}

// GET /api/projects/:id/actions
func (h *ActionHandler) List(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	actions, err := h.actionService.List(id, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, actions)
}

// POST /api/projects/:id/actions
func (h *ActionHandler) Create(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req services.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	action, err := h.actionService.Create(id, &req, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"id": action.ID})
}
