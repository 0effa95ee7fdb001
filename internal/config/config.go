// Package config provides centralized configuration management for the
// journal import service. Settings come from environment variables, with
// defaults, and are validated as a whole on startup.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Storage  StorageConfig
	Sweep    SweepConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout bounds reading the request, including the upload body.
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty selects the in-memory
	// store, which is only suitable for development.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate applies the embedded schema on startup (default: true)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"true"`
}

// UploadConfig holds intake and processing settings.
type UploadConfig struct {
	// MaxFileSize is the maximum accepted file size in bytes (default: 10MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the number of processing workers (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// QueueSize is how many accepted uploads may wait for a worker (default: 64)
	QueueSize int `env:"UPLOAD_QUEUE_SIZE" default:"64"`

	// MaxWaitTime is how long Submit waits for queue space (default: 5s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"5s"`

	// StatusLogLimit caps the log entries returned with an upload status.
	StatusLogLimit int `env:"STATUS_LOG_LIMIT" default:"10"`
}

// StorageConfig selects where uploaded file bytes are kept.
type StorageConfig struct {
	// Backend is "local" or "gcs" (default: local)
	Backend string `env:"STORAGE_BACKEND" default:"local"`
	Dir     string `env:"STORAGE_DIR" default:"./data/uploads"`
	Bucket  string `env:"GCS_BUCKET"`
}

// SweepConfig controls the job that re-dispatches uploads left pending.
type SweepConfig struct {
	Enabled bool `env:"SWEEP_ENABLED" default:"true"`

	// Schedule is a cron spec; descriptors like "@every 1m" are accepted.
	Schedule string `env:"SWEEP_SCHEDULE" default:"@every 1m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// UsesMemoryStore reports whether no database is configured.
func (c *DatabaseConfig) UsesMemoryStore() bool {
	return c.URL == ""
}
