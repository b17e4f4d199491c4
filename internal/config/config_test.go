package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, expected %q", cfg.Server.Port, "8080")
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, expected %q", cfg.Database.Driver, "sqlite")
	}
	if cfg.Reconcile.Grace != 15*time.Minute {
		t.Errorf("Reconcile.Grace = %v, expected 15m", cfg.Reconcile.Grace)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  port: \"9090\"\nprovision:\n  path: /etc/sqldesk/config.json\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, expected %q", cfg.Server.Port, "9090")
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, expected default %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Provision.Path != "/etc/sqldesk/config.json" {
		t.Errorf("Provision.Path = %q", cfg.Provision.Path)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SEED_ADMIN", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, expected %q", cfg.Database.Driver, "postgres")
	}
	if cfg.JWT.Secret != "from-env" {
		t.Errorf("JWT.Secret = %q, expected %q", cfg.JWT.Secret, "from-env")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, expected %q", cfg.Log.Level, "debug")
	}
	if !cfg.Auth.SeedAdmin {
		t.Error("Auth.SeedAdmin should be true")
	}
}

func TestLoadProvisionConfig_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"db": {"user": "provisioner"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadProvisionConfig(path)
	if err != nil {
		t.Fatalf("LoadProvisionConfig() error = %v", err)
	}

	if cfg.Driver != "mysql" {
		t.Errorf("Driver = %q, expected %q", cfg.Driver, "mysql")
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %q, expected %q", cfg.Host, "127.0.0.1")
	}
	if cfg.Port != 3306 {
		t.Errorf("Port = %d, expected 3306", cfg.Port)
	}
	if cfg.Charset != "utf8mb4" {
		t.Errorf("Charset = %q, expected %q", cfg.Charset, "utf8mb4")
	}
	if cfg.User != "provisioner" {
		t.Errorf("User = %q, expected %q", cfg.User, "provisioner")
	}
	if cfg.Pass != "" {
		t.Errorf("Pass = %q, expected empty", cfg.Pass)
	}
}

func TestLoadProvisionConfig_FileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{"db": {"driver": "SQLite", "data_dir": "/tmp/dbs", "charset": "utf8", "port": 5432}}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadProvisionConfig(path)
	if err != nil {
		t.Fatalf("LoadProvisionConfig() error = %v", err)
	}
	if cfg.Driver != "sqlite" {
		t.Errorf("Driver = %q, expected lower-cased %q", cfg.Driver, "sqlite")
	}
	if cfg.DataDir != "/tmp/dbs" {
		t.Errorf("DataDir = %q, expected %q", cfg.DataDir, "/tmp/dbs")
	}
	if cfg.Charset != "utf8" {
		t.Errorf("Charset = %q, expected %q", cfg.Charset, "utf8")
	}
	if cfg.Port != 5432 {
		t.Errorf("Port = %d, expected 5432", cfg.Port)
	}
}

func TestLoadProvisionConfig_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"db": {"host": "db.internal"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SQLDESK_DB_HOST", "override.internal")

	cfg, err := LoadProvisionConfig(path)
	if err != nil {
		t.Fatalf("LoadProvisionConfig() error = %v", err)
	}
	if cfg.Host != "override.internal" {
		t.Errorf("Host = %q, expected %q", cfg.Host, "override.internal")
	}
}

func TestLoadProvisionConfig_Missing(t *testing.T) {
	_, err := LoadProvisionConfig(filepath.Join(t.TempDir(), "config.json"))
	if !errors.Is(err, ErrProvisionConfigMissing) {
		t.Errorf("expected ErrProvisionConfigMissing, got %v", err)
	}
}

func TestLoadProvisionConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"db": `), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadProvisionConfig(path); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestLoadProvisionConfig_PostgresDefaultPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"db": {"driver": "postgres"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadProvisionConfig(path)
	if err != nil {
		t.Fatalf("LoadProvisionConfig() error = %v", err)
	}
	if cfg.Port != 5432 {
		t.Errorf("Port = %d, expected 5432", cfg.Port)
	}
	if cfg.SSLMode != "disable" {
		t.Errorf("SSLMode = %q, expected %q", cfg.SSLMode, "disable")
	}
}
