package services

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/huangang/sqldesk/internal/config"
	"github.com/huangang/sqldesk/internal/models"
	"github.com/huangang/sqldesk/internal/provisioner"
	"github.com/huangang/sqldesk/internal/utils"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "meta.db") + "?_busy_timeout=5000"
	db, err := models.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open metadata store: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newTestProvisioner(t *testing.T) *provisioner.SQLiteProvisioner {
	t.Helper()
	p, err := provisioner.NewSQLite(filepath.Join(t.TempDir(), "projects"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	return p
}

func createUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	t.Helper()
	hashed, err := utils.HashPassword("secret123")
	if err != nil {
		t.Fatal(err)
	}
	u := &models.User{Name: email, Email: email, Password: hashed, Role: role, IsActive: true}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func actorOf(u *models.User) Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}

// fixture wires the services over a throwaway metadata store and
// sqlite-backed project databases.
type fixture struct {
	db        *gorm.DB
	prov      *provisioner.SQLiteProvisioner
	projects  *ProjectService
	templates *TemplateService
	runner    *TemplateRunner
	backups   *BackupService
	admin     *models.User
	owner     *models.User
	outsider  *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	prov := newTestProvisioner(t)
	logs := NewSystemLogService(db)
	return &fixture{
		db:        db,
		prov:      prov,
		projects:  NewProjectService(db, prov, logs),
		templates: NewTemplateService(db),
		runner:    NewTemplateRunner(db, prov, logs),
		backups:   NewBackupService(db, logs),
		admin:     createUser(t, db, "admin@example.com", models.RoleAdmin),
		owner:     createUser(t, db, "owner@example.com", models.RoleUser),
		outsider:  createUser(t, db, "outsider@example.com", models.RoleUser),
	}
}

func (f *fixture) project(t *testing.T, name string) *models.Project {
	t.Helper()
	p, err := f.projects.Create(context.Background(), &ProjectRequest{Code: "C-" + name, Name: name}, actorOf(f.owner))
	if err != nil {
		t.Fatalf("create project %q: %v", name, err)
	}
	return p
}

func (f *fixture) template(t *testing.T, projectID uint, name, body string) *models.Template {
	t.Helper()
	parsed, err := models.ParseTemplateBody([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	tpl, err := f.templates.Create(&TemplateRequest{
		ProjectID: projectID,
		Name:      name,
		DBType:    "sqlite",
		Body:      parsed,
	}, actorOf(f.owner))
	if err != nil {
		t.Fatalf("create template %q: %v", name, err)
	}
	return tpl
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
