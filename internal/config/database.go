package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/dukerupert/jotter/internal/database"
)

var ErrNoDatabase = errors.New("database not configured: set DATABASE_URL or DB_USER/DB_PASSWORD/DB_HOST/DB_NAME")

type DatabaseConfig struct {
	Backend    string `env:"DB_BACKEND" env-default:"sqlite" env-description:"sqlite, postgres or mysql"`
	URL        string `env:"DATABASE_URL"`
	MySQLURL   string `env:"MYSQL_URL"`
	User       string `env:"DB_USER"`
	Password   string `env:"DB_PASSWORD"`
	Host       string `env:"DB_HOST"`
	Port       string `env:"DB_PORT"`
	Name       string `env:"DB_NAME"`
	SSLMode    string `env:"DB_SSLMODE" env-description:"postgres sslmode when the URL has none (default require)"`
	SQLitePath string `env:"SQLITE_PATH" env-default:"jotter.db"`
}

func (c DatabaseConfig) ParsedBackend() (database.Backend, error) {
	return database.ParseBackend(c.Backend)
}

// DSN resolves the driver connection string for the configured backend.
func (c DatabaseConfig) DSN() (database.Backend, string, error) {
	backend, err := c.ParsedBackend()
	if err != nil {
		return "", "", err
	}

	var dsn string
	switch backend {
	case database.Postgres:
		dsn, err = c.postgresDSN()
	case database.MySQL:
		dsn, err = c.mysqlDSN()
	default:
		dsn = c.sqlitePath()
	}
	if err != nil {
		return "", "", err
	}
	return backend, dsn, nil
}

func (c DatabaseConfig) sqlitePath() string {
	if p, ok := strings.CutPrefix(c.URL, "sqlite://"); ok && p != "" {
		return p
	}
	return c.SQLitePath
}

func (c DatabaseConfig) hasParts() bool {
	return c.User != "" && c.Host != "" && c.Name != ""
}

func (c DatabaseConfig) hostPort(defaultPort string) string {
	port := c.Port
	if port == "" {
		port = defaultPort
	}
	return net.JoinHostPort(c.Host, port)
}

func (c DatabaseConfig) postgresDSN() (string, error) {
	raw := c.URL
	if raw == "" {
		if !c.hasParts() {
			return "", ErrNoDatabase
		}
		u := url.URL{
			Scheme: "postgresql",
			User:   url.UserPassword(c.User, c.Password),
			Host:   c.hostPort("5432"),
			Path:   "/" + c.Name,
		}
		raw = u.String()
	}
	return NormalizePostgresURL(raw, c.SSLMode), nil
}

// NormalizePostgresURL accepts postgres:// and postgresql:// alike and
// appends sslmode when the URL does not set one. sslMode "" means require.
func NormalizePostgresURL(raw, sslMode string) string {
	if sslMode == "" {
		sslMode = "require"
	}
	if rest, ok := strings.CutPrefix(raw, "postgres://"); ok {
		raw = "postgresql://" + rest
	}
	if strings.Contains(raw, "sslmode=") {
		return raw
	}

	if !strings.HasPrefix(raw, "postgresql://") {
		// key=value connection string
		return strings.TrimSpace(raw) + " sslmode=" + sslMode
	}
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + "sslmode=" + sslMode
}

func (c DatabaseConfig) mysqlDSN() (string, error) {
	raw := c.URL
	if raw == "" {
		raw = c.MySQLURL
	}
	if raw == "" {
		if !c.hasParts() {
			return "", ErrNoDatabase
		}
		cfg := mysql.NewConfig()
		cfg.User = c.User
		cfg.Passwd = c.Password
		cfg.Net = "tcp"
		cfg.Addr = c.hostPort("3306")
		cfg.DBName = c.Name
		return finishMySQL(cfg, false), nil
	}
	return MySQLDSN(raw)
}

// MySQLDSN converts a mysql:// (or mysql+pymysql://) URL into driver DSN
// form. A string that is already a driver DSN is passed through
// ParseDSN. parseTime is always enabled; charset defaults to utf8mb4.
func MySQLDSN(raw string) (string, error) {
	if i := strings.Index(raw, "://"); i >= 0 {
		scheme := raw[:i]
		if scheme != "mysql" && !strings.HasPrefix(scheme, "mysql+") {
			return "", fmt.Errorf("unsupported mysql url scheme %q", scheme)
		}
		u, err := url.Parse("mysql" + raw[i:])
		if err != nil {
			return "", fmt.Errorf("parse mysql url: %w", err)
		}

		cfg := mysql.NewConfig()
		if u.User != nil {
			cfg.User = u.User.Username()
			cfg.Passwd, _ = u.User.Password()
		}
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		if u.Port() == "" {
			cfg.Addr = net.JoinHostPort(u.Hostname(), "3306")
		}
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		for k, v := range u.Query() {
			if len(v) == 0 || v[0] == "" {
				continue
			}
			if cfg.Params == nil {
				cfg.Params = map[string]string{}
			}
			cfg.Params[k] = v[0]
		}
		_, hasCharset := cfg.Params["charset"]
		return finishMySQL(cfg, hasCharset), nil
	}

	cfg, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	return finishMySQL(cfg, strings.Contains(raw, "charset=")), nil
}

// finishMySQL forces parseTime and, unless the caller picked one, utf8mb4.
// ParseDSN keeps an explicit charset out of Params, so it is only added
// here when absent.
func finishMySQL(cfg *mysql.Config, hasCharset bool) string {
	cfg.ParseTime = true
	if !hasCharset {
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		cfg.Params["charset"] = "utf8mb4"
	}
	return cfg.FormatDSN()
}
