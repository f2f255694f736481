// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from environment
// variables and an optional config file.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Scanner  ScannerConfig  `koanf:"scanner"`
	Hub      HubConfig      `koanf:"hub"`
	Security SecurityConfig `koanf:"security"`
	NATS     NATSConfig     `koanf:"nats"`
	Logging  LoggingConfig  `koanf:"logging"`
	Backup   BackupConfig   `koanf:"backup"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	Swagger      bool          `koanf:"swagger"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds DuckDB connection settings for the content index,
// playlist store, and timeline tables.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// ScannerConfig holds the Ingestion Scanner's upstream feed and polling
// tuning parameters (spec.md §4.2).
type ScannerConfig struct {
	FeedURL            string        `koanf:"feed_url"`
	BearerToken        string        `koanf:"bearer_token"`
	Cookies            string        `koanf:"cookies"`
	UserAgent          string        `koanf:"user_agent"`
	PageSize           int           `koanf:"page_size"`
	RequestTimeout     time.Duration `koanf:"request_timeout"`
	WatchdogTimeout    time.Duration `koanf:"watchdog_timeout"`
	MinInterval        time.Duration `koanf:"min_interval"`
	MaxInterval        time.Duration `koanf:"max_interval"`
	InitialInterval    time.Duration `koanf:"initial_interval"`
	CredentialInterval time.Duration `koanf:"credential_interval"`
	TargetOverlapLow   float64       `koanf:"target_overlap_low"`
	TargetOverlapHigh  float64       `koanf:"target_overlap_high"`
	// CredentialStorePath is the badger directory used to persist
	// refreshed Credentials across restarts when built with the `wal`
	// tag. Empty disables persistence even in a `wal` build.
	CredentialStorePath string `koanf:"credential_store_path"`
}

// HubConfig holds the Realtime Hub's liveness and buffering parameters.
type HubConfig struct {
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`
	StalenessWindow   time.Duration `koanf:"staleness_window"`
	BroadcastBuffer   int           `koanf:"broadcast_buffer"`
	CommandQueueSize  int           `koanf:"command_queue_size"`
}

// SecurityConfig holds the JWT signing secret used for display ownership
// tokens (spec.md §4.7, §6.3) and the casbin policy store backing
// internal/authz's ownership enforcement. No other authentication is in
// scope.
type SecurityConfig struct {
	JWTSecret       string        `koanf:"jwt_secret"`
	TokenTTL        time.Duration `koanf:"token_ttl"`
	AuthzPolicyPath string        `koanf:"authz_policy_path"`
}

// NATSConfig holds the optional JetStream-backed event bus settings; when
// Enabled is false the scanner publishes over an in-process pub/sub
// instead (see internal/eventbus).
type NATSConfig struct {
	Enabled  bool   `koanf:"enabled"`
	URL      string `koanf:"url"`
	Stream   string `koanf:"stream"`
	Embedded bool   `koanf:"embedded"`
}

// LoggingConfig holds zerolog output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// BackupConfig controls the `playlistd backup` snapshot operation
// (SPEC_FULL §9). A snapshot is a checkpointed, gzip-compressed copy of
// the DuckDB file; Retention bounds how many snapshots accumulate in
// Dir.
type BackupConfig struct {
	Dir             string `koanf:"dir"`
	CompressionGzip bool   `koanf:"compression_gzip"`
	RetentionMax    int    `koanf:"retention_max"`
	RetentionDays   int    `koanf:"retention_days"`
}

// Validate checks required fields and value ranges, returning every
// problem found (the caller decides whether to treat partial config
// as fatal).
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path must not be empty")
	}
	if c.Scanner.PageSize <= 0 {
		errs = append(errs, "scanner.page_size must be positive")
	}
	if c.Scanner.MinInterval <= 0 || c.Scanner.MaxInterval < c.Scanner.MinInterval {
		errs = append(errs, "scanner.min_interval/max_interval must satisfy 0 < min <= max")
	}
	if c.Scanner.TargetOverlapLow <= 0 || c.Scanner.TargetOverlapHigh >= 1 || c.Scanner.TargetOverlapLow >= c.Scanner.TargetOverlapHigh {
		errs = append(errs, "scanner.target_overlap_low/high must satisfy 0 < low < high < 1")
	}
	if len(c.Security.JWTSecret) < 32 {
		errs = append(errs, "security.jwt_secret must be at least 32 characters")
	}
	if c.Backup.RetentionMax < 0 {
		errs = append(errs, "backup.retention_max must not be negative")
	}
	if c.Backup.RetentionDays < 0 {
		errs = append(errs, "backup.retention_days must not be negative")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %v", errs)
}
