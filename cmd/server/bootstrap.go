package main

import (
	"errors"

	"github.com/huangang/sqldesk/internal/config"
	"github.com/huangang/sqldesk/internal/middleware"
	"github.com/huangang/sqldesk/internal/models"
	"github.com/huangang/sqldesk/internal/provisioner"
	"github.com/huangang/sqldesk/internal/services"
	"github.com/huangang/sqldesk/internal/utils"
	"github.com/huangang/sqldesk/pkg/logger"
	"gorm.io/gorm"
)

// appServices holds all initialized services needed by the application.
type appServices struct {
	cfg         *config.Config
	db          *gorm.DB
	logs        *services.SystemLogService
	auth        *services.AuthService
	projects    *services.ProjectService
	templates   *services.TemplateService
	runner      *services.TemplateRunner
	reconcile   *services.ReconcileService
	backups     *services.BackupService
	actions     *services.ActionService
	servers     *services.ServerService
	scheduler   *services.Scheduler
	authLimiter *middleware.RateLimiter
}

// bootstrap initializes all application dependencies: database, provisioner, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	db, err := models.Open(&cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	provCfg, err := config.LoadProvisionConfig(cfg.Provision.Path)
	if errors.Is(err, config.ErrProvisionConfigMissing) {
		logger.Warn().Str("path", cfg.Provision.Path).Msg("Provisioning config not found, using defaults")
		provCfg = config.DefaultProvisionConfig()
	} else if err != nil {
		logger.Fatalf("Failed to load provisioning config: %v", err)
	}

	prov, err := provisioner.New(provCfg)
	if err != nil {
		logger.Fatalf("Failed to initialize provisioner: %v", err)
	}
	logger.Info().Str("driver", provCfg.Driver).Msg("Provisioner ready")

	logs := services.NewSystemLogService(db)
	reconcile := services.NewReconcileService(db, logs, cfg.Reconcile.Grace)

	svc := &appServices{
		cfg:         cfg,
		db:          db,
		logs:        logs,
		auth:        services.NewAuthService(db, &cfg.JWT),
		projects:    services.NewProjectService(db, prov, logs),
		templates:   services.NewTemplateService(db),
		runner:      services.NewTemplateRunner(db, prov, logs),
		reconcile:   reconcile,
		backups:     services.NewBackupService(db, logs),
		actions:     services.NewActionService(db, logs),
		servers:     services.NewServerService(db),
		scheduler:   services.NewScheduler(reconcile, logs, cfg.Log.RetentionDays),
		authLimiter: middleware.NewRateLimiter(5, 10),
	}

	if err := svc.scheduler.Start(cfg.Reconcile.Schedule); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	if cfg.Auth.SeedAdmin {
		if err := svc.auth.CreateAdminIfNotExists(cfg.Auth.SeedAdminPassword); err != nil {
			logger.Warn().Err(err).Msg("Failed to create admin user")
		}
	}

	return svc
}

// shutdown gracefully stops background work.
func (s *appServices) shutdown() {
	s.scheduler.Stop()
	s.authLimiter.Stop()
	logger.Info().Msg("All schedulers stopped")

	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
