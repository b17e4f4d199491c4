package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/sqldesk/internal/handlers"
	"github.com/huangang/sqldesk/internal/middleware"
	"github.com/huangang/sqldesk/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.Server.CORSOrigins))

	healthHandler := handlers.NewHealthHandler(svc.db)
	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics(svc.db))

	authHandler := handlers.NewAuthHandler(svc.auth)
	projectHandler := handlers.NewProjectHandler(svc.projects)
	templateHandler := handlers.NewTemplateHandler(svc.templates, svc.runner)
	templateRunHandler := handlers.NewTemplateRunHandler(svc.reconcile)
	backupHandler := handlers.NewBackupHandler(svc.backups)
	actionHandler := handlers.NewActionHandler(svc.actions)
	serverHandler := handlers.NewServerHandler(svc.servers)
	userHandler := handlers.NewUserHandler(svc.db)
	systemLogHandler := handlers.NewSystemLogHandler(svc.logs)

	api := r.Group("/api")
	{
		// Auth routes (public, rate limited)
		auth := api.Group("/auth", svc.authLimiter.Middleware())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog(svc.logs))
		{
			protected.GET("/auth/me", authHandler.GetCurrentUser)
			protected.POST("/auth/logout", authHandler.Logout)
			protected.POST("/auth/change-password", authHandler.ChangePassword)

			// Projects
			protected.GET("/projects", projectHandler.List)
			protected.POST("/projects", projectHandler.Create)
			protected.POST("/projects/import", projectHandler.Import)
			protected.GET("/projects/:id", projectHandler.GetByID)
			protected.PUT("/projects/:id", projectHandler.Update)
			protected.DELETE("/projects/:id", projectHandler.Delete)

			// Participants
			protected.GET("/projects/:id/participants", projectHandler.Participants)
			protected.POST("/projects/:id/participants", projectHandler.AddParticipant)
			protected.DELETE("/projects/:id/participants/:userId", projectHandler.RemoveParticipant)

			// Actions
			protected.GET("/projects/:id/actions", actionHandler.List)
			protected.POST("/projects/:id/actions", actionHandler.Create)

			protected.GET("/tags", projectHandler.Tags)

			// Backups
			protected.GET("/backups", backupHandler.ListAll)
			protected.GET("/projects/:id/backups", backupHandler.List)
			protected.POST("/projects/:id/backups", backupHandler.Create)
			protected.PUT("/projects/:id/backups/:backupId", backupHandler.Update)
			protected.DELETE("/projects/:id/backups/:backupId", backupHandler.Delete)

			// Templates
			protected.GET("/templates", templateHandler.List)
			protected.POST("/templates", templateHandler.Create)
			protected.GET("/templates/:id", templateHandler.GetByID)
			protected.PUT("/templates/:id", templateHandler.Update)
			protected.DELETE("/templates/:id", templateHandler.Delete)
			protected.POST("/templates/:id/run", templateHandler.Run)

			// Servers
			protected.GET("/servers", serverHandler.List)
			protected.POST("/servers", serverHandler.Create)
			protected.GET("/servers/:id", serverHandler.GetByID)
			protected.PUT("/servers/:id", serverHandler.Update)
			protected.DELETE("/servers/:id", serverHandler.Delete)

			// Users (read for all users, used by participant pickers)
			protected.GET("/users", userHandler.List)
		}

		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog(svc.logs))
		{
			admin.PUT("/users/:id", userHandler.Update)

			// Template runs needing manual reconciliation
			admin.GET("/template-runs", templateRunHandler.List)
			admin.POST("/template-runs/sweep", templateRunHandler.Sweep)
			admin.POST("/template-runs/:id/resolve", templateRunHandler.Resolve)

			// System Logs
			admin.GET("/system-logs", systemLogHandler.List)
			admin.GET("/system-logs/modules", systemLogHandler.GetModules)
		}
	}
}
