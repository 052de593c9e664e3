// Package config provides configuration management for the iavido agent.
// Configuration is loaded from IAVIDO_* environment variables, optionally
// seeded from .env files, with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort         = 8788
	DefaultLogLevel     = "info"
	DefaultDataDir      = ".iavido"
	DefaultServiceURL   = "http://127.0.0.1:8000"
	DefaultPollInterval = 2 * time.Second
	DefaultHTTPTimeout  = 60 * time.Second

	// Simulator defaults
	DefaultSimPort      = 8000
	DefaultSimStepDelay = 500 * time.Millisecond

	// EnvPrefix is prepended to every variable name below.
	EnvPrefix = "IAVIDO_"

	// Database filename
	DBFilename = "iavido.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	DownloadsDir() string
	ServiceURL() string
	PollInterval() time.Duration
	HTTPTimeout() time.Duration
	Headless() bool
	SimPort() int
	SimStepDelay() time.Duration
}

type envVars struct {
	Port         int           `env:"PORT" envDefault:"8788"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	DataDir      string        `env:"DATA_DIR"`
	ServiceURL   string        `env:"SERVICE_URL" envDefault:"http://127.0.0.1:8000"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT" envDefault:"60s"`
	Headless     bool          `env:"HEADLESS"`
	SimPort      int           `env:"SIM_PORT" envDefault:"8000"`
	SimStepDelay time.Duration `env:"SIM_STEP_DELAY" envDefault:"500ms"`
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	vars envVars
}

// New loads .env and .env.local when present, then parses the environment.
// Variables already set in the process win over dotenv files.
func New() (*EnvConfig, error) {
	_ = godotenv.Load(".env", ".env.local")
	return FromEnv()
}

// FromEnv parses the process environment without touching dotenv files.
func FromEnv() (*EnvConfig, error) {
	var vars envVars
	if err := env.ParseWithOptions(&vars, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if vars.Port < 1 || vars.Port > 65535 {
		return nil, fmt.Errorf("invalid %sPORT: port must be between 1 and 65535", EnvPrefix)
	}
	if vars.SimPort < 1 || vars.SimPort > 65535 {
		return nil, fmt.Errorf("invalid %sSIM_PORT: port must be between 1 and 65535", EnvPrefix)
	}
	if vars.PollInterval <= 0 {
		return nil, fmt.Errorf("invalid %sPOLL_INTERVAL: must be positive", EnvPrefix)
	}
	if vars.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("invalid %sHTTP_TIMEOUT: must be positive", EnvPrefix)
	}

	vars.ServiceURL = strings.TrimRight(vars.ServiceURL, "/")
	if vars.DataDir == "" {
		vars.DataDir = defaultDataDir()
	}

	return &EnvConfig{vars: vars}, nil
}

// Port returns the control API port
func (c *EnvConfig) Port() int {
	return c.vars.Port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.vars.LogLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.vars.DataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.vars.DataDir, DBFilename)
}

// DownloadsDir is where finished videos are saved.
func (c *EnvConfig) DownloadsDir() string {
	return filepath.Join(c.vars.DataDir, "downloads")
}

// ServiceURL returns the job service base URL without a trailing slash.
func (c *EnvConfig) ServiceURL() string {
	return c.vars.ServiceURL
}

func (c *EnvConfig) PollInterval() time.Duration {
	return c.vars.PollInterval
}

func (c *EnvConfig) HTTPTimeout() time.Duration {
	return c.vars.HTTPTimeout
}

// Headless disables the tray and renders to the console instead.
func (c *EnvConfig) Headless() bool {
	return c.vars.Headless
}

func (c *EnvConfig) SimPort() int {
	return c.vars.SimPort
}

func (c *EnvConfig) SimStepDelay() time.Duration {
	return c.vars.SimStepDelay
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
