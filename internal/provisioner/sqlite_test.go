package provisioner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangang/sqldesk/internal/config"
)

func TestSQLiteProvisioner_Lifecycle(t *testing.T) {
	ctx := context.Background()
	p, err := NewSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}

	if err := p.Provision(ctx, "My Shop"); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	exists, err := p.Exists(ctx, "my-shop")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("database for \"my-shop\" should exist after provisioning \"My Shop\"")
	}

	db, err := p.Open(ctx, "My Shop")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE TABLE items (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("exec on provisioned database: %v", err)
	}
	db.Close()

	p.Deprovision(ctx, "My Shop")

	exists, _ = p.Exists(ctx, "My Shop")
	if exists {
		t.Error("database should be gone after Deprovision")
	}
}

func TestSQLiteProvisioner_CollisionAfterNormalize(t *testing.T) {
	ctx := context.Background()
	p, _ := NewSQLite(t.TempDir())

	if err := p.Provision(ctx, "My Shop"); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	err := p.Provision(ctx, "my-shop")
	if !errors.Is(err, ErrDatabaseExists) {
		t.Errorf("expected ErrDatabaseExists, got %v", err)
	}
}

func TestSQLiteProvisioner_InvalidName(t *testing.T) {
	ctx := context.Background()
	p, _ := NewSQLite(t.TempDir())

	for _, name := range []string{"", "!!!", "___"} {
		if err := p.Provision(ctx, name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Provision(%q) = %v, expected ErrInvalidName", name, err)
		}
		if _, err := p.Open(ctx, name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Open(%q) = %v, expected ErrInvalidName", name, err)
		}
	}
}

func TestSQLiteProvisioner_DeprovisionMissing(t *testing.T) {
	p, _ := NewSQLite(t.TempDir())

	// Must not panic or fail for never-provisioned or unusable names.
	p.Deprovision(context.Background(), "never provisioned")
	p.Deprovision(context.Background(), "???")
}

func TestSQLiteProvisioner_OpenUnprovisioned(t *testing.T) {
	dir := t.TempDir()
	p, _ := NewSQLite(dir)

	_, err := p.Open(context.Background(), "ghost")
	if !errors.Is(err, ErrDatabaseNotFound) {
		t.Errorf("expected ErrDatabaseNotFound, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "ghost.db")); !os.IsNotExist(statErr) {
		t.Error("Open must not create a database file")
	}
}

func TestNew_SelectsEngine(t *testing.T) {
	tests := []struct {
		driver  string
		wantErr bool
	}{
		{"mysql", false},
		{"", false},
		{"postgres", false},
		{"sqlite", false},
		{"oracle", true},
	}

	for _, tt := range tests {
		cfg := &config.ProvisionConfig{Driver: tt.driver, Host: "127.0.0.1", Port: 3306, Charset: "utf8mb4", DataDir: t.TempDir()}
		p, err := New(cfg)
		if tt.wantErr {
			if err == nil {
				t.Errorf("New(%q) should fail", tt.driver)
			}
			continue
		}
		if err != nil || p == nil {
			t.Errorf("New(%q) error = %v", tt.driver, err)
		}
	}
}
