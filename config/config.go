// Package config provides configuration management for the recipebox server,
// including version information, logging levels, database and session settings.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/recipebox/recipebox/util/random"
)

//go:embed version
var version string

//go:embed name
var name string

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "RECIPEBOX_"

// LogLevel represents the logging level for the application.
type LogLevel string

// Logging level constants
const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

// SessionStoreType selects where session state is held.
type SessionStoreType string

const (
	SessionStoreMemory   SessionStoreType = "memory"
	SessionStoreDatabase SessionStoreType = "database"
)

// SessionConfig holds the session cookie and store settings.
type SessionConfig struct {
	Secret string           `env:"SECRET"`
	MaxAge time.Duration    `env:"MAX_AGE" envDefault:"2h"`
	Store  SessionStoreType `env:"STORE" envDefault:"memory"`
}

// Config is the full runtime configuration of the server.
type Config struct {
	Debug     bool     `env:"DEBUG" envDefault:"false"`
	LogLevel  LogLevel `env:"LOG_LEVEL" envDefault:"info"`
	LogFolder string   `env:"LOG_FOLDER"`

	Listen string `env:"LISTEN"`
	Port   int    `env:"PORT" envDefault:"3000"`

	Database DatabaseConfig `envPrefix:"DB_"`
	Session  SessionConfig  `envPrefix:"SESSION_"`

	// AdminPassword seeds the "admin" account on first start when set.
	AdminPassword string `env:"ADMIN_PASSWORD"`
	// LoginRate is the number of login attempts allowed per minute and client IP.
	LoginRate int `env:"LOGIN_RATE" envDefault:"10"`
}

// GetVersion returns the version string of the application.
func GetVersion() string {
	return strings.TrimSpace(version)
}

// GetName returns the name of the application.
func GetName() string {
	return strings.TrimSpace(name)
}

// Load reads the env files into the process environment and parses the
// RECIPEBOX_ variables into a Config. Without envFiles an optional ".env" is
// read; files named explicitly must exist.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if len(envFiles) > 0 || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Session.Secret == "" && cfg.Debug {
		cfg.Session.Secret = random.Seq(32)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case Debug, Info, Notice, Warn, Error:
	default:
		return fmt.Errorf("unknown log level: %s", c.LogLevel)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("%sSESSION_SECRET must be set", EnvPrefix)
	}
	if c.Session.MaxAge <= 0 {
		return fmt.Errorf("session max age must be positive")
	}
	switch c.Session.Store {
	case SessionStoreMemory, SessionStoreDatabase:
	default:
		return fmt.Errorf("unsupported session store: %s", c.Session.Store)
	}
	if c.LoginRate < 0 {
		return fmt.Errorf("login rate cannot be negative")
	}
	return c.Database.ValidateConfig()
}

// GetLogLevel returns the effective logging level, forcing debug in debug mode.
func (c *Config) GetLogLevel() LogLevel {
	if c.Debug {
		return Debug
	}
	return c.LogLevel
}
