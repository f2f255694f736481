// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

/*
Package config provides centralized configuration management for playlistd.

This package handles loading, validation, and layering of configuration for
every component: the content index and its backing store, the ingestion
scanner, the playlist store, the playback state machine, the realtime hub,
and the HTTP API.

# Configuration Sources

Configuration is loaded via Koanf v2 with layered sources (lowest to
highest priority):

 1. Built-in defaults (defaultConfig)
 2. An optional YAML config file (config.yaml, overridable via CONFIG_PATH)
 3. Environment variables (highest priority, see Load)

# Configuration Structure

  - ServerConfig: HTTP listen address and timeouts
  - DatabaseConfig: DuckDB file path and tuning
  - ScannerConfig: upstream feed credentials, page size, polling bounds
  - HubConfig: websocket heartbeat interval and buffer sizes
  - SecurityConfig: JWT signing secret for display ownership tokens
  - NATSConfig: optional JetStream-backed event bus
  - LoggingConfig: zerolog level/format

Config is immutable after Load() and safe for concurrent read access.
*/
package config
