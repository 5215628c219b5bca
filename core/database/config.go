package database

import (
	"fmt"
	"strings"
)

const (
	// DriverPostgres selects PostgreSQL through lib/pq.
	DriverPostgres = "postgres"
	// DriverSQLite selects the pure-Go modernc.org/sqlite driver.
	DriverSQLite = "sqlite"
)

// Config holds database connection settings.
type Config struct {
	Driver         string `yaml:"driver" envconfig:"DB_DRIVER"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `yaml:"sqlite_path" envconfig:"DB_SQLITE_PATH"`
	// MigrationsDir holds one subdirectory per driver; "migrations" when empty.
	MigrationsDir string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// NormalizeDriver maps common aliases to the canonical driver names.
func NormalizeDriver(d string) string {
	switch d = strings.ToLower(strings.TrimSpace(d)); d {
	case "pg", "pgsql", "postgresql":
		return DriverPostgres
	case "sqlite3":
		return DriverSQLite
	}
	return d
}

// Normalize fills defaults and rejects unknown drivers.
func (c *Config) Normalize() error {
	c.Driver = NormalizeDriver(c.Driver)
	if c.Driver == "" {
		c.Driver = DriverPostgres
	}
	if c.MigrationsDir == "" {
		c.MigrationsDir = "migrations"
	}
	switch c.Driver {
	case DriverPostgres:
		if c.SSLMode == "" {
			c.SSLMode = "disable"
		}
		if c.MaxConnections <= 0 {
			c.MaxConnections = 10
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			c.SQLitePath = "quiz.db"
		}
		c.MaxConnections = 1
	default:
		return fmt.Errorf("database: unsupported driver %q", c.Driver)
	}
	return nil
}

// DSN returns the connection string understood by the sql driver.
func (c Config) DSN() string {
	if c.Driver == DriverSQLite {
		return c.SQLitePath
	}
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// MigrateURL returns the golang-migrate database URL.
func (c Config) MigrateURL() string {
	if c.Driver == DriverSQLite {
		return "sqlite://" + c.SQLitePath
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}
