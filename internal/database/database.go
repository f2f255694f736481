// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/playlistd/internal/config"
	"github.com/tomtom215/playlistd/internal/logging"
)

// DB wraps the DuckDB connection backing the Content Index, Playlist
// Store, and Timeline tables (spec §6.4).
type DB struct {
	conn       *sql.DB
	cfg        *config.DatabaseConfig
	ftsLoaded  bool
}

// New opens (and, on first run, creates) the DuckDB database at
// cfg.Path and ensures its schema and indexes exist.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s", cfg.Path, numThreads, cfg.MaxMemory)
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(numThreads)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	db := &DB{conn: conn, cfg: cfg}

	if err := db.loadExtensions(); err != nil {
		logging.Warn().Err(err).Msg("continuing without optional duckdb extensions")
	}
	if err := db.createSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

// Conn exposes the underlying *sql.DB for packages that build their own
// prepared statements (content index, playlist store, timeline manager).
func (db *DB) Conn() *sql.DB { return db.conn }

// Close releases the underlying connection pool.
func (db *DB) Close() error { return db.conn.Close() }

// Path returns the on-disk location of the DuckDB file, for components
// (internal/backup) that need to copy it outside a SQL connection.
func (db *DB) Path() string { return db.cfg.Path }

// Checkpoint forces DuckDB to flush its WAL into the main database
// file, so a file-level copy taken immediately afterward is consistent.
func (db *DB) Checkpoint(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, "CHECKPOINT")
	return err
}

// loadExtensions installs and loads the full-text search extension
// used by the Content Index's keyword search (spec §4.1). Failure to
// load FTS is non-fatal: searchVideos falls back to a LIKE scan.
func (db *DB) loadExtensions() error {
	if _, err := db.conn.Exec("INSTALL fts"); err != nil {
		return fmt.Errorf("install fts extension: %w", err)
	}
	if _, err := db.conn.Exec("LOAD fts"); err != nil {
		return fmt.Errorf("load fts extension: %w", err)
	}
	db.ftsLoaded = true
	return nil
}

// FTSLoaded reports whether the full-text search extension is active.
func (db *DB) FTSLoaded() bool { return db.ftsLoaded }
