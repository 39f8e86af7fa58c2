// Package config loads and validates application configuration.
package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Store    StoreConfig    `mapstructure:"store"    validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains the task queue and worker registry database settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains token verification settings. Token issuance belongs to
// the external auth service; only the shared secret is needed here.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// StoreConfig contains the object store connection settings. The scheduler
// copies these into every task it creates so workers can connect to the
// store the task belongs to.
type StoreConfig struct {
	Name      string `mapstructure:"name"       validate:"required"`
	Endpoint  string `mapstructure:"endpoint"   validate:"required"`
	AccessKey string `mapstructure:"access_key" validate:"required"`
	SecretKey string `mapstructure:"secret_key" validate:"required"`
	Secure    bool   `mapstructure:"secure"`
	ProxyURL  string `mapstructure:"proxy_url"`
}

// WorkerConfig contains worker runtime settings, unused by the API server.
type WorkerConfig struct {
	Name         string        `mapstructure:"name"`
	Type         string        `mapstructure:"type"`
	LogLevel     string        `mapstructure:"log_level"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	TempDir      string        `mapstructure:"temp_dir"`
}
