package provisioner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/huangang/sqldesk/pkg/logger"
)

// SQLiteProvisioner keeps each project database as {dir}/{name}.db.
type SQLiteProvisioner struct {
	dir string
}

func NewSQLite(dir string) (*SQLiteProvisioner, error) {
	if dir == "" {
		dir = "data"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &SQLiteProvisioner{dir: abs}, nil
}

func (p *SQLiteProvisioner) path(name string) string {
	return filepath.Join(p.dir, name+".db")
}

func (p *SQLiteProvisioner) Provision(ctx context.Context, projectName string) error {
	name, err := identifier(projectName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return err
	}

	// An empty file is a valid empty database; O_EXCL makes the existence
	// check and the creation a single step.
	f, err := os.OpenFile(p.path(name), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrDatabaseExists
		}
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.Info().Str("engine", "sqlite").Str("database", name).Msg("database provisioned")
	return nil
}

func (p *SQLiteProvisioner) Deprovision(ctx context.Context, projectName string) {
	name := identifierOrEmpty(projectName)
	if name == "" {
		return
	}

	base := p.path(name)
	for _, path := range []string{base, base + "-journal", base + "-wal", base + "-shm"} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn().Err(err).Str("path", path).Msg("deprovision: remove failed")
		}
	}
}

func (p *SQLiteProvisioner) Exists(ctx context.Context, projectName string) (bool, error) {
	name, err := identifier(projectName)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (p *SQLiteProvisioner) Open(ctx context.Context, projectName string) (*sql.DB, error) {
	name, err := identifier(projectName)
	if err != nil {
		return nil, err
	}
	ok, err := p.Exists(ctx, projectName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, name)
	}

	// mode=rw refuses to create a database that was never provisioned.
	dsn := fmt.Sprintf("file:%s?mode=rw&_busy_timeout=5000", p.path(name))
	db, err := sqlOpen("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
