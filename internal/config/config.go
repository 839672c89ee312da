// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

// Package config provides layered application configuration: struct
// defaults, then an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Import   ImportConfig   `koanf:"import"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
	API      APIConfig      `koanf:"api"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the DuckDB database file. ":memory:" opens an in-memory
	// database (used by tests).
	Path string `koanf:"path"`

	// MaxMemory is the DuckDB memory limit, e.g. "2GB".
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 = runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// ImportConfig holds CSV ingestion settings.
type ImportConfig struct {
	// BatchSize is the number of validated rows accumulated before a
	// flush to the store.
	BatchSize int `koanf:"batch_size"`

	// LookupChunkSize bounds the IN(...) parameter list of the
	// duplicate existence lookup. Tuned separately from BatchSize:
	// it protects against query engine parameter limits, not
	// ingestion throughput.
	LookupChunkSize int `koanf:"lookup_chunk_size"`

	// MaxFileSize is the largest accepted upload in bytes.
	MaxFileSize int64 `koanf:"max_file_size"`

	// FailureLogPath is the append-only JSONL log of failed batches.
	// Empty disables the side log.
	FailureLogPath string `koanf:"failure_log_path"`

	// HistoryPath is the Badger directory for import run history.
	// Empty disables history.
	HistoryPath string `koanf:"history_path"`

	// HistoryLimit is the number of completed runs retained.
	HistoryLimit int `koanf:"history_limit"`

	// CommitRatePerSec throttles batch flushes against the store.
	// 0 = unlimited.
	CommitRatePerSec float64 `koanf:"commit_rate_per_sec"`
}

// SecurityConfig holds authentication and rate limiting settings.
type SecurityConfig struct {
	// AuthEnabled turns on JWT bearer authentication for data
	// endpoints. Off by default for single-user deployments.
	AuthEnabled bool `koanf:"auth_enabled"`

	// JWTSecret signs issued tokens (HS256). Required when
	// AuthEnabled is true.
	JWTSecret string `koanf:"jwt_secret"`

	AdminUsername string `koanf:"admin_username"`

	// AdminPasswordHash is a bcrypt hash of the admin password.
	AdminPasswordHash string `koanf:"admin_password_hash"`

	SessionTimeout time.Duration `koanf:"session_timeout"`

	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// APIConfig holds pagination defaults for list endpoints.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8480,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/postlens.duckdb",
			MaxMemory: "2GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Import: ImportConfig{
			BatchSize:        1000,
			LookupChunkSize:  500,
			MaxFileSize:      50 << 20, // 50 MB
			FailureLogPath:   "/data/failed_batches.jsonl",
			HistoryPath:      "/data/import_history",
			HistoryLimit:     50,
			CommitRatePerSec: 0,
		},
		Security: SecurityConfig{
			AuthEnabled:     false,
			JWTSecret:       "",
			SessionTimeout:  24 * time.Hour,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Import.BatchSize <= 0 {
		return fmt.Errorf("import.batch_size must be positive, got %d", c.Import.BatchSize)
	}
	if c.Import.LookupChunkSize <= 0 {
		return fmt.Errorf("import.lookup_chunk_size must be positive, got %d", c.Import.LookupChunkSize)
	}
	if c.Import.MaxFileSize <= 0 {
		return fmt.Errorf("import.max_file_size must be positive, got %d", c.Import.MaxFileSize)
	}
	if c.Import.CommitRatePerSec < 0 {
		return fmt.Errorf("import.commit_rate_per_sec must not be negative")
	}
	if c.Security.AuthEnabled {
		if c.Security.JWTSecret == "" {
			return fmt.Errorf("security.jwt_secret is required when auth is enabled")
		}
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 characters")
		}
		if c.Security.AdminUsername == "" || c.Security.AdminPasswordHash == "" {
			return fmt.Errorf("security.admin_username and security.admin_password_hash are required when auth is enabled")
		}
	}
	if c.API.DefaultPageSize <= 0 || c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("api page sizes invalid: default=%d max=%d", c.API.DefaultPageSize, c.API.MaxPageSize)
	}
	return nil
}
