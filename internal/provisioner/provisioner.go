// Package provisioner creates, drops and connects to the physical database
// that backs each project. The database identifier is always derived from
// the project name with utils.NormalizeName.
package provisioner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/huangang/sqldesk/internal/config"
	"github.com/huangang/sqldesk/internal/utils"
)

var (
	ErrInvalidName      = errors.New("invalid project name")
	ErrDatabaseExists   = errors.New("database already exists")
	ErrDatabaseNotFound = errors.New("database not found")
	ErrInvalidCharset   = errors.New("invalid charset")
)

// Provisioner manages per-project databases on one engine.
type Provisioner interface {
	// Provision creates the database for projectName. It fails with
	// ErrInvalidName, ErrDatabaseExists or the engine error.
	Provision(ctx context.Context, projectName string) error
	// Deprovision drops the database if present. Failures are logged, never returned.
	Deprovision(ctx context.Context, projectName string)
	// Open returns a dedicated handle to the project database; the caller closes it.
	Open(ctx context.Context, projectName string) (*sql.DB, error)
	// Exists reports whether the engine catalog lists the project database.
	Exists(ctx context.Context, projectName string) (bool, error)
}

// sqlOpen is swapped in tests to hand out mock connections.
var sqlOpen = sql.Open

var charsetPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// New picks the engine named by cfg.Driver.
func New(cfg *config.ProvisionConfig) (Provisioner, error) {
	switch cfg.Driver {
	case "", "mysql":
		return NewMySQL(cfg)
	case "postgres", "pgx":
		return NewPostgres(cfg)
	case "sqlite", "sqlite3":
		return NewSQLite(cfg.DataDir)
	default:
		return nil, fmt.Errorf("unsupported provisioning driver: %s", cfg.Driver)
	}
}

func identifier(projectName string) (string, error) {
	name := utils.NormalizeName(projectName)
	if name == "" {
		return "", ErrInvalidName
	}
	return name, nil
}
