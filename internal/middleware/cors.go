package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/huangang/sqldesk/pkg/logger"
)

// CORS allows the listed origins, or every origin when the list is empty.
func CORS(origins []string) gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", logger.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", logger.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		conf.AllowOrigins = []string{"*"}
	} else {
		conf.AllowOrigins = origins
	}
	return cors.New(conf)
}
