package provisioner

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/huangang/sqldesk/internal/config"
	"github.com/huangang/sqldesk/pkg/logger"
)

// dialect captures what differs between server engines.
type dialect interface {
	name() string
	driverName() string
	// dsn targets database db; an empty db means the administrative connection.
	dsn(db string) string
	existsQuery() string
	createStatement(db string) string
	dropStatement(db string) string
}

// ServerProvisioner provisions databases on a MySQL or PostgreSQL server
// through an administrative connection.
type ServerProvisioner struct {
	dialect dialect
}

func NewMySQL(cfg *config.ProvisionConfig) (*ServerProvisioner, error) {
	charset := cfg.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	if !charsetPattern.MatchString(charset) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCharset, charset)
	}
	return &ServerProvisioner{dialect: &mysqlDialect{cfg: *cfg, charset: charset}}, nil
}

func NewPostgres(cfg *config.ProvisionConfig) (*ServerProvisioner, error) {
	charset := cfg.Charset
	if charset != "" && !charsetPattern.MatchString(charset) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCharset, charset)
	}
	return &ServerProvisioner{dialect: &postgresDialect{cfg: *cfg, encoding: pgEncoding(charset)}}, nil
}

func (p *ServerProvisioner) admin(ctx context.Context) (*sql.DB, error) {
	db, err := sqlOpen(p.dialect.driverName(), p.dialect.dsn(""))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (p *ServerProvisioner) Provision(ctx context.Context, projectName string) error {
	name, err := identifier(projectName)
	if err != nil {
		return err
	}

	db, err := p.admin(ctx)
	if err != nil {
		return fmt.Errorf("connect %s: %w", p.dialect.name(), err)
	}
	defer db.Close()

	exists, err := catalogHas(ctx, db, p.dialect.existsQuery(), name)
	if err != nil {
		return err
	}
	if exists {
		return ErrDatabaseExists
	}

	if _, err := db.ExecContext(ctx, p.dialect.createStatement(name)); err != nil {
		return err
	}

	logger.Info().Str("engine", p.dialect.name()).Str("database", name).Msg("database provisioned")
	return nil
}

func (p *ServerProvisioner) Deprovision(ctx context.Context, projectName string) {
	name := identifierOrEmpty(projectName)
	if name == "" {
		return
	}

	db, err := p.admin(ctx)
	if err != nil {
		logger.Warn().Err(err).Str("database", name).Msg("deprovision: connect failed")
		return
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, p.dialect.dropStatement(name)); err != nil {
		logger.Warn().Err(err).Str("database", name).Msg("deprovision: drop failed")
		return
	}
	logger.Info().Str("engine", p.dialect.name()).Str("database", name).Msg("database dropped")
}

func (p *ServerProvisioner) Exists(ctx context.Context, projectName string) (bool, error) {
	name, err := identifier(projectName)
	if err != nil {
		return false, err
	}

	db, err := p.admin(ctx)
	if err != nil {
		return false, err
	}
	defer db.Close()

	return catalogHas(ctx, db, p.dialect.existsQuery(), name)
}

func (p *ServerProvisioner) Open(ctx context.Context, projectName string) (*sql.DB, error) {
	name, err := identifier(projectName)
	if err != nil {
		return nil, err
	}

	db, err := sqlOpen(p.dialect.driverName(), p.dialect.dsn(name))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func catalogHas(ctx context.Context, db *sql.DB, query, name string) (bool, error) {
	var found string
	err := db.QueryRowContext(ctx, query, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("catalog lookup: %w", err)
	}
	return true, nil
}

func identifierOrEmpty(projectName string) string {
	name, err := identifier(projectName)
	if err != nil {
		return ""
	}
	return name
}

type mysqlDialect struct {
	cfg     config.ProvisionConfig
	charset string
}

func (d *mysqlDialect) name() string       { return "mysql" }
func (d *mysqlDialect) driverName() string { return "mysql" }

func (d *mysqlDialect) dsn(db string) string {
	c := mysql.NewConfig()
	c.User = d.cfg.User
	c.Passwd = d.cfg.Pass
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
	c.DBName = db
	c.Params = map[string]string{"charset": d.charset}
	return c.FormatDSN()
}

func (d *mysqlDialect) existsQuery() string {
	return "SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?"
}

func (d *mysqlDialect) createStatement(db string) string {
	stmt := fmt.Sprintf("CREATE DATABASE %s CHARACTER SET %s", quoteMySQL(db), d.charset)
	if d.charset == "utf8mb4" {
		stmt += " COLLATE utf8mb4_unicode_ci"
	}
	return stmt
}

func (d *mysqlDialect) dropStatement(db string) string {
	return "DROP DATABASE IF EXISTS " + quoteMySQL(db)
}

func quoteMySQL(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

type postgresDialect struct {
	cfg      config.ProvisionConfig
	encoding string
}

func (d *postgresDialect) name() string       { return "postgres" }
func (d *postgresDialect) driverName() string { return "pgx" }

func (d *postgresDialect) dsn(db string) string {
	if db == "" {
		db = d.cfg.Maintenance
	}
	q := url.Values{}
	if d.cfg.SSLMode != "" {
		q.Set("sslmode", d.cfg.SSLMode)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.cfg.User, d.cfg.Pass),
		Host:     net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port)),
		Path:     "/" + db,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func (d *postgresDialect) existsQuery() string {
	return "SELECT datname FROM pg_database WHERE datname = $1"
}

func (d *postgresDialect) createStatement(db string) string {
	return fmt.Sprintf("CREATE DATABASE %s ENCODING '%s' TEMPLATE template0", quotePostgres(db), d.encoding)
}

func (d *postgresDialect) dropStatement(db string) string {
	return "DROP DATABASE IF EXISTS " + quotePostgres(db)
}

func quotePostgres(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// pgEncoding maps MySQL-style charset names onto PostgreSQL encodings.
func pgEncoding(charset string) string {
	switch strings.ToLower(charset) {
	case "", "utf8", "utf8mb4", "utf8mb3":
		return "UTF8"
	case "latin1":
		return "LATIN1"
	default:
		return strings.ToUpper(charset)
	}
}
