package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/sqldesk/internal/middleware"
	"github.com/huangang/sqldesk/internal/services"
	"github.com/huangang/sqldesk/pkg/response"
)

func actorFrom(c *gin.Context) services.Actor {
	return services.Actor{UserID: middleware.GetUserID(c), Role: middleware.GetRole(c)}
}

// paramID parses a positive numeric path parameter, answering 422 when it is not one.
func paramID(c *gin.Context, name, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.Unprocessable(c, "Invalid "+label+" id")
		return 0, false
	}
	return uint(id), true
}
