// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where a config file is searched for,
// in priority order. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/playlistd/config.yaml",
}

// ConfigPathEnvVar overrides the config file search with a single path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix is stripped from environment variable names, and the
// remainder is lower-cased and "_" is treated as the koanf delimiter,
// e.g. SCANNER_FEED_URL -> scanner.feed_url.
const envPrefix = ""

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			Swagger:      true,
		},
		Database: DatabaseConfig{
			Path:      "/data/playlistd.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Scanner: ScannerConfig{
			FeedURL:            "",
			UserAgent:          "playlistd-scanner/1.0",
			PageSize:           200,
			RequestTimeout:     30 * time.Second,
			WatchdogTimeout:    300 * time.Second,
			MinInterval:        6 * time.Second,
			MaxInterval:        30 * time.Second,
			InitialInterval:    10 * time.Second,
			CredentialInterval: 12 * time.Hour,
			TargetOverlapLow:    0.25,
			TargetOverlapHigh:   0.40,
			CredentialStorePath: "/data/scanner-credentials.badger",
		},
		Hub: HubConfig{
			HeartbeatInterval: 5 * time.Second,
			StalenessWindow:   10 * time.Second,
			BroadcastBuffer:   256,
			CommandQueueSize:  32,
		},
		Security: SecurityConfig{
			TokenTTL: 24 * time.Hour,
		},
		NATS: NATSConfig{
			Enabled:  false,
			URL:      "nats://127.0.0.1:4222",
			Stream:   "playlistd-ingest",
			Embedded: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Backup: BackupConfig{
			Dir:             "/data/backups",
			CompressionGzip: true,
			RetentionMax:    14,
			RetentionDays:   30,
		},
	}
}

// Load builds the final Config by layering, in priority order (lowest
// to highest):
//
//  1. defaultConfig()
//  2. an optional YAML file (DefaultConfigPaths, or CONFIG_PATH)
//  3. environment variables
//
// and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, err
	}

	if path := resolveConfigPath(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveConfigPath returns the first config file found, or "" if none.
func resolveConfigPath() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransform maps SERVER_PORT -> server.port, SCANNER_FEED_URL ->
// scanner.feed_url, etc. Only the first underscore becomes the section
// separator; the remainder of the key keeps its underscores to match
// the koanf tags in Config (e.g. "feed_url", "jwt_secret").
func envTransform(key string) string {
	lower := strings.ToLower(key)
	if idx := strings.IndexByte(lower, '_'); idx >= 0 {
		lower = lower[:idx] + "." + lower[idx+1:]
	}
	return lower
}
