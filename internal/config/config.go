package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	Provision ProvisionFile   `yaml:"provision"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
	// Empty means any origin.
	CORSOrigins []string `yaml:"cors_origins"`
}

// DatabaseConfig points at the metadata store (users, projects, templates...).
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

type AuthConfig struct {
	// SeedAdmin creates admin@localhost on startup when no admin exists.
	SeedAdmin         bool   `yaml:"seed_admin"`
	SeedAdminPassword string `yaml:"seed_admin_password"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// RetentionDays bounds the audit trail kept in system_logs; 0 keeps everything.
	RetentionDays int `yaml:"retention_days"`
}

// ProvisionFile locates the JSON document holding the administrative
// credentials used to create and drop per-project databases.
type ProvisionFile struct {
	Path string `yaml:"path"`
}

type ReconcileConfig struct {
	Schedule string        `yaml:"schedule"` // cron spec, empty disables the periodic sweep
	Grace    time.Duration `yaml:"grace"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		// Unmarshal over the defaults so partial files keep sane values.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.overrideFromEnv()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "sqldesk.db",
		},
		JWT: JWTConfig{
			Secret:     "sqldesk-secret-key-change-in-production",
			ExpireHour: 24,
		},
		Auth: AuthConfig{
			SeedAdmin:         false,
			SeedAdminPassword: "admin",
		},
		Log: LogConfig{
			Level:         "info",
			RetentionDays: 30,
		},
		Provision: ProvisionFile{
			Path: "config.json",
		},
		Reconcile: ReconcileConfig{
			Schedule: "@every 10m",
			Grace:    15 * time.Minute,
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.CORSOrigins = append(c.Server.CORSOrigins, o)
			}
		}
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if hours := os.Getenv("JWT_EXPIRE_HOUR"); hours != "" {
		if h, err := strconv.Atoi(hours); err == nil && h > 0 {
			c.JWT.ExpireHour = h
		}
	}
	if seed := os.Getenv("SEED_ADMIN"); seed != "" {
		c.Auth.SeedAdmin, _ = strconv.ParseBool(seed)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if days := os.Getenv("LOG_RETENTION_DAYS"); days != "" {
		if d, err := strconv.Atoi(days); err == nil && d >= 0 {
			c.Log.RetentionDays = d
		}
	}
	if path := os.Getenv("PROVISION_CONFIG"); path != "" {
		c.Provision.Path = path
	}
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
