package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/sqldesk/internal/services"
	"github.com/huangang/sqldesk/pkg/response"
)

type ServerHandler struct {
	serverService *services.ServerService
}

func NewServerHandler(serverService *services.ServerService) *ServerHandler {
	return &ServerHandler{serverService: serverService}
}

// GET /api/servers?project_id=&project=
func (h *ServerHandler) List(c *gin.Context) {
	var req services.ServerListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	servers, err := h.serverService.List(&req, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, servers)
}

// GET /api/servers/:id
func (h *ServerHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id", "server")
	if !ok {
		return
	}

	server, err := h.serverService.GetByID(id, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, server)
}

// POST /api/servers
func (h *ServerHandler) Create(c *gin.Context) {
	var req services.ServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	server, err := h.serverService.Create(&req, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"id": server.ID})
}

// PUT /api/servers/:id
func (h *ServerHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "server")
	if !ok {
		return
	}

	var req services.ServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if _, err := h.serverService.Update(id, &req, actorFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// DELETE /api/servers/:id
func (h *ServerHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "server")
	if !ok {
		return
	}

	if err := h.serverService.Delete(id, actorFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
