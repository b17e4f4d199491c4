package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ProvisionConfig is the administrative connection used to create, drop and
// open per-project databases. It is read from a JSON document shaped like
//
//	{"db": {"driver": "mysql", "host": "127.0.0.1", "port": 3306,
//	        "charset": "utf8mb4", "user": "root", "pass": ""}}
type ProvisionConfig struct {
	Driver  string `mapstructure:"driver"` // mysql, postgres, sqlite
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Charset string `mapstructure:"charset"`
	User    string `mapstructure:"user"`
	Pass    string `mapstructure:"pass"`
	SSLMode string `mapstructure:"sslmode"`  // postgres only
	DataDir string `mapstructure:"data_dir"` // sqlite only
	// Maintenance is the database postgres connects to for CREATE/DROP DATABASE.
	Maintenance string `mapstructure:"maintenance_db"`
}

// ErrProvisionConfigMissing is returned when the provisioning document does not exist.
var ErrProvisionConfigMissing = errors.New("missing provisioning config")

func newProvisionViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("json")
	v.SetDefault("db.driver", "mysql")
	v.SetDefault("db.host", "127.0.0.1")
	v.SetDefault("db.charset", "utf8mb4")
	v.SetDefault("db.user", "root")
	v.SetDefault("db.pass", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.data_dir", "data")
	v.SetDefault("db.maintenance_db", "postgres")

	v.SetEnvPrefix("SQLDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// DefaultProvisionConfig returns the defaults with SQLDESK_DB_* overrides applied.
func DefaultProvisionConfig() *ProvisionConfig {
	cfg, _ := decodeProvision(newProvisionViper())
	return cfg
}

// LoadProvisionConfig reads the JSON provisioning document at path.
// Absent keys fall back to the defaults; SQLDESK_DB_HOST and friends override
// values from the file.
func LoadProvisionConfig(path string) (*ProvisionConfig, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrProvisionConfigMissing, path)
		}
		return nil, err
	}

	v := newProvisionViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("invalid provisioning config %s: %w", path, err)
	}
	return decodeProvision(v)
}

func decodeProvision(v *viper.Viper) (*ProvisionConfig, error) {
	var cfg ProvisionConfig
	if err := v.UnmarshalKey("db", &cfg); err != nil {
		return nil, fmt.Errorf("decode provisioning config: %w", err)
	}
	// UnmarshalKey does not consult env for nested keys, read them explicitly.
	cfg.Driver = strings.ToLower(v.GetString("db.driver"))
	cfg.Host = v.GetString("db.host")
	cfg.Port = v.GetInt("db.port")
	cfg.Charset = v.GetString("db.charset")
	cfg.User = v.GetString("db.user")
	cfg.Pass = v.GetString("db.pass")
	cfg.SSLMode = v.GetString("db.sslmode")
	cfg.DataDir = v.GetString("db.data_dir")
	cfg.Maintenance = v.GetString("db.maintenance_db")
	if cfg.Port == 0 {
		cfg.Port = defaultPort(cfg.Driver)
	}
	return &cfg, nil
}

func defaultPort(driver string) int {
	if driver == "postgres" {
		return 5432
	}
	return 3306
}
