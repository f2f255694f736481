// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package backup

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/playlistd/internal/logging"
)

// DatabaseInterface is the slice of *database.DB a Manager needs,
// mirroring the teacher's backup.DatabaseInterface: enough to get a
// consistent, checkpointed file without the backup package importing
// internal/database directly (keeps the dependency pointed one way).
type DatabaseInterface interface {
	Path() string
	Checkpoint(ctx context.Context) error
}

// Manager creates and prunes Snapshots of a DatabaseInterface's file
// into cfg.Dir, tracking them in a JSON manifest alongside the
// snapshot files (teacher pattern: backup.Manager + backup.MetadataStore,
// without the scheduler goroutine or notification callbacks).
type Manager struct {
	cfg *Config
	db  DatabaseInterface

	manifestPath string
	mu           sync.Mutex
}

// NewManager opens (or creates) cfg.Dir and its manifest file.
func NewManager(cfg *Config, db DatabaseInterface) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backup config: %w", err)
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create backup dir %s: %w", cfg.Dir, err)
	}
	return &Manager{cfg: cfg, db: db, manifestPath: filepath.Join(cfg.Dir, "backups.json")}, nil
}

// CreateSnapshot checkpoints the database, copies its file into cfg.Dir
// (gzip-compressed when cfg.CompressionGzip), and records the result in
// the manifest. It always returns a Snapshot, even on failure, so the
// caller can report what went wrong.
func (m *Manager) CreateSnapshot(ctx context.Context, trigger Trigger) (*Snapshot, error) {
	start := time.Now()
	snap := &Snapshot{ID: uuid.NewString(), CreatedAt: start.UTC(), Trigger: trigger}

	if err := m.db.Checkpoint(ctx); err != nil {
		return m.fail(snap, start, fmt.Errorf("checkpoint database: %w", err))
	}

	snap.FilePath = m.snapshotPath(start, snap.ID)
	checksum, size, err := m.copySnapshot(m.db.Path(), snap.FilePath)
	if err != nil {
		return m.fail(snap, start, err)
	}
	snap.Checksum = checksum
	snap.FileSize = size
	snap.Status = StatusCompleted
	snap.Duration = time.Since(start)

	if err := m.appendToManifest(snap); err != nil {
		return snap, fmt.Errorf("record snapshot in manifest: %w", err)
	}
	logging.Info().Str("snapshot_id", snap.ID).Str("path", snap.FilePath).Int64("bytes", size).Msg("created backup snapshot")
	return snap, nil
}

func (m *Manager) fail(snap *Snapshot, start time.Time, err error) (*Snapshot, error) {
	snap.Status = StatusFailed
	snap.Error = err.Error()
	snap.Duration = time.Since(start)
	_ = m.appendToManifest(snap)
	return snap, err
}

func (m *Manager) snapshotPath(start time.Time, id string) string {
	name := fmt.Sprintf("playlistd-%s-%s.duckdb", start.Format("20060102-150405"), id[:8])
	if m.cfg.CompressionGzip {
		name += ".gz"
	}
	return filepath.Join(m.cfg.Dir, name)
}

// copySnapshot streams src into dst (optionally through gzip), hashing
// the uncompressed bytes as they're read so the checksum verifies the
// database file's actual contents regardless of compression.
func (m *Manager) copySnapshot(src, dst string) (checksum string, size int64, err error) {
	in, err := os.Open(src)
	if err != nil {
		return "", 0, fmt.Errorf("open database file: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return "", 0, fmt.Errorf("create snapshot file: %w", err)
	}
	defer out.Close()

	hasher := sha256.New()
	tee := io.TeeReader(in, hasher)

	if m.cfg.CompressionGzip {
		gz := gzip.NewWriter(out)
		if _, err := io.Copy(gz, tee); err != nil {
			return "", 0, fmt.Errorf("write compressed snapshot: %w", err)
		}
		if err := gz.Close(); err != nil {
			return "", 0, fmt.Errorf("close gzip writer: %w", err)
		}
	} else {
		if _, err := io.Copy(out, tee); err != nil {
			return "", 0, fmt.Errorf("write snapshot: %w", err)
		}
	}

	info, err := os.Stat(dst)
	if err != nil {
		return "", 0, fmt.Errorf("stat snapshot file: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), info.Size(), nil
}

// ListSnapshots returns every recorded Snapshot, most recent first.
func (m *Manager) ListSnapshots() ([]*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	man, err := m.loadManifest()
	if err != nil {
		return nil, err
	}
	out := make([]*Snapshot, len(man.Snapshots))
	for i, s := range man.Snapshots {
		out[len(man.Snapshots)-1-i] = s
	}
	return out, nil
}

func (m *Manager) loadManifest() (*manifest, error) {
	data, err := os.ReadFile(m.manifestPath)
	if os.IsNotExist(err) {
		return &manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup manifest: %w", err)
	}
	var man manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return nil, fmt.Errorf("parse backup manifest: %w", err)
	}
	return &man, nil
}

func (m *Manager) saveManifest(man *manifest) error {
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("encode backup manifest: %w", err)
	}
	tmp := m.manifestPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("write backup manifest: %w", err)
	}
	return os.Rename(tmp, m.manifestPath)
}

func (m *Manager) appendToManifest(snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	man, err := m.loadManifest()
	if err != nil {
		return err
	}
	man.Snapshots = append(man.Snapshots, snap)
	return m.saveManifest(man)
}
