package app

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/quizbot/core/config"
	coredatabase "github.com/m3rciful/quizbot/core/database"
	"github.com/m3rciful/quizbot/quiz/storage"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendPostgres = coredatabase.DriverPostgres
	BackendSQLite   = coredatabase.DriverSQLite
)

// StorageConfig selects where questions are kept.
type StorageConfig struct {
	Backend string `yaml:"backend" envconfig:"STORAGE_BACKEND"`
	File    string `yaml:"file" envconfig:"STORAGE_FILE"`
}

// SessionsConfig controls expiry of abandoned sessions. A zero IdleTTL
// keeps sessions until they are finished or aborted.
type SessionsConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl" envconfig:"SESSIONS_IDLE_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SESSIONS_SWEEP_INTERVAL"`
}

// Config is the quizbot configuration file.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Storage  StorageConfig       `yaml:"storage"`
	Database coredatabase.Config `yaml:"database"`
	Sessions SessionsConfig      `yaml:"sessions"`
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// UsesDatabase reports whether the storage backend is SQL.
func (c *Config) UsesDatabase() bool {
	return c.Storage.Backend == BackendPostgres || c.Storage.Backend == BackendSQLite
}

// LoadConfig reads path, overlays the environment and validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}

	backend := coredatabase.NormalizeDriver(c.Storage.Backend)
	switch backend {
	case "", BackendFile:
		c.Storage.Backend = BackendFile
		if strings.TrimSpace(c.Storage.File) == "" {
			c.Storage.File = storage.DefaultFile
		}
	case BackendPostgres, BackendSQLite:
		c.Storage.Backend = backend
		c.Database.Driver = backend
		if err := c.Database.Normalize(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q; allowed: file, postgres, sqlite", storage.ErrUnknownBackend, c.Storage.Backend)
	}

	if c.Sessions.IdleTTL < 0 {
		return fmt.Errorf("sessions.idle_ttl must be >= 0")
	}
	if c.Sessions.SweepInterval < 0 {
		return fmt.Errorf("sessions.sweep_interval must be >= 0")
	}
	if c.Sessions.IdleTTL > 0 && c.Sessions.SweepInterval == 0 {
		c.Sessions.SweepInterval = min(time.Minute, c.Sessions.IdleTTL)
	}
	return nil
}
