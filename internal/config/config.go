// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Logging  LoggingConfig
	Decrypt  DecryptConfig
	Export   ExportConfig
	Server   ServerConfig
	Database DatabaseConfig
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info" oneof:"debug,info,warn,error"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text" oneof:"text,json"`
}

// DecryptConfig holds backup decoding settings.
type DecryptConfig struct {
	// SchemaPath points to a YAML schema document; empty uses the built-in Samsung Pass schemas
	SchemaPath string `env:"SCHEMA_PATH"`

	// MaxFileSize is the largest backup accepted, in bytes (default: 16MiB)
	MaxFileSize int64 `env:"DECRYPT_MAX_FILE_SIZE" default:"16777216"`

	// MaxConcurrent caps parallel key derivations in the web server (default: 2)
	MaxConcurrent int `env:"DECRYPT_MAX_CONCURRENT" default:"2"`

	// MaxWait is how long a request waits for a free decryption slot (default: 10s)
	MaxWait time.Duration `env:"DECRYPT_MAX_WAIT" default:"10s"`
}

// ExportConfig holds report output defaults.
type ExportConfig struct {
	// Format is the default report format: md, txt, csv, json, html (default: md)
	Format string `env:"EXPORT_FORMAT" default:"md" oneof:"md,txt,csv,json,html"`

	// Force allows overwriting existing output files (default: false)
	Force bool `env:"EXPORT_FORCE" default:"false"`
}

// ServerConfig holds settings for the local HTTP surface.
type ServerConfig struct {
	// Host is the interface to bind to; must be a loopback address (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8765)
	Port int `env:"SERVER_PORT" default:"8765"`

	// ReadTimeout is the maximum duration for reading the request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing the response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 10s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds settings for the optional Postgres sink.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string; empty disables the sink.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`
}

// Enabled reports whether a database URL is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
