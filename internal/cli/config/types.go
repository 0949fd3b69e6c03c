// Package config provides configuration management for the leapcrm CLI.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	APIURL       string        `koanf:"api_url"`
	SessionPath  string        `koanf:"session_path"`
	PageSize     int           `koanf:"page_size"`
	Timeout      time.Duration `koanf:"timeout"`
	Verbose      bool          `koanf:"verbose"`
	OutputFormat string        `koanf:"output"`
	Serve        ServeConfig   `koanf:"serve"`
}

// ServeConfig holds configuration for the development server.
type ServeConfig struct {
	Port          int    `koanf:"port"`
	Database      string `koanf:"database"`
	SeedCompanies int    `koanf:"seed_companies"`
	JWTSecret     string `koanf:"jwt_secret"`
}

// Default configuration values.
const (
	DefaultAPIURL        = "http://localhost:8080/api"
	DefaultSessionFile   = ".leapcrm/session.db"
	DefaultPageSize      = 20
	DefaultTimeout       = 30 * time.Second
	DefaultOutput        = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultServePort     = 8080
	DefaultServeDatabase = ".leapcrm/devserver.db"
	DefaultSeedCompanies = 45
)
