// Postlens - Influencer Post Analytics
// Copyright 2026 K. Mori (kmori)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmori/postlens

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearConfigEnv points CONFIG_PATH at a nonexistent file so local
// config.yaml files cannot leak into tests.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8480 {
		t.Errorf("Server.Port = %d, want 8480", cfg.Server.Port)
	}
	if cfg.Import.BatchSize != 1000 {
		t.Errorf("Import.BatchSize = %d, want 1000", cfg.Import.BatchSize)
	}
	if cfg.Import.LookupChunkSize != 500 {
		t.Errorf("Import.LookupChunkSize = %d, want 500", cfg.Import.LookupChunkSize)
	}
	if cfg.Security.AuthEnabled {
		t.Error("Security.AuthEnabled = true, want false by default")
	}
	if cfg.Security.RateLimitReqs != 100 || cfg.Security.RateLimitWindow != time.Minute {
		t.Errorf("rate limit = (%d, %v), want (100, 1m)",
			cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("POSTLENS_SERVER_PORT", "9000")
	t.Setenv("POSTLENS_IMPORT_BATCH_SIZE", "250")
	t.Setenv("POSTLENS_DATABASE_PATH", ":memory:")
	t.Setenv("POSTLENS_SECURITY_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Import.BatchSize != 250 {
		t.Errorf("Import.BatchSize = %d, want 250", cfg.Import.BatchSize)
	}
	if cfg.Database.Path != ":memory:" {
		t.Errorf("Database.Path = %q, want :memory:", cfg.Database.Path)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Security.CORSOrigins) != 2 {
		t.Fatalf("CORSOrigins = %v, want %v", cfg.Security.CORSOrigins, want)
	}
	for i, w := range want {
		if cfg.Security.CORSOrigins[i] != w {
			t.Errorf("CORSOrigins[%d] = %q, want %q", i, cfg.Security.CORSOrigins[i], w)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	configYAML := `
server:
  port: 8888
import:
  batch_size: 42
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8888 {
		t.Errorf("Server.Port = %d, want 8888 from config file", cfg.Server.Port)
	}
	if cfg.Import.BatchSize != 42 {
		t.Errorf("Import.BatchSize = %d, want 42 from config file", cfg.Import.BatchSize)
	}
	// Untouched fields keep their defaults.
	if cfg.Import.LookupChunkSize != 500 {
		t.Errorf("Import.LookupChunkSize = %d, want default 500", cfg.Import.LookupChunkSize)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, true},
		{"zero batch size", func(c *Config) { c.Import.BatchSize = 0 }, true},
		{"zero lookup chunk", func(c *Config) { c.Import.LookupChunkSize = 0 }, true},
		{"negative commit rate", func(c *Config) { c.Import.CommitRatePerSec = -1 }, true},
		{"auth without secret", func(c *Config) { c.Security.AuthEnabled = true }, true},
		{"auth with short secret", func(c *Config) {
			c.Security.AuthEnabled = true
			c.Security.JWTSecret = "short"
			c.Security.AdminUsername = "admin"
			c.Security.AdminPasswordHash = "$2a$10$x"
		}, true},
		{"auth fully configured", func(c *Config) {
			c.Security.AuthEnabled = true
			c.Security.JWTSecret = "0123456789abcdef0123456789abcdef"
			c.Security.AdminUsername = "admin"
			c.Security.AdminPasswordHash = "$2a$10$x"
		}, false},
		{"page size inversion", func(c *Config) {
			c.API.DefaultPageSize = 50
			c.API.MaxPageSize = 10
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected a validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"POSTLENS_SERVER_PORT", "server.port"},
		{"POSTLENS_IMPORT_BATCH_SIZE", "import.batch_size"},
		{"POSTLENS_IMPORT_LOOKUP_CHUNK_SIZE", "import.lookup_chunk_size"},
		{"POSTLENS_SECURITY_JWT_SECRET", "security.jwt_secret"},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
