// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/playlistd/internal/backup"
	"github.com/tomtom215/playlistd/internal/config"
	"github.com/tomtom215/playlistd/internal/logging"
)

// runBackup checkpoints and snapshots the content database, then prunes
// snapshots older than the configured retention window (SPEC_FULL §9:
// "playlistd backup").
func runBackup(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	mgr, err := backup.NewManager(&backup.Config{
		Dir:             cfg.Backup.Dir,
		CompressionGzip: cfg.Backup.CompressionGzip,
		Retention: backup.RetentionPolicy{
			Max:        cfg.Backup.RetentionMax,
			MaxAgeDays: cfg.Backup.RetentionDays,
		},
	}, db)
	if err != nil {
		return fmt.Errorf("init backup manager: %w", err)
	}

	snap, err := mgr.CreateSnapshot(ctx, backup.TriggerManual)
	if err != nil {
		return fmt.Errorf("create backup snapshot: %w", err)
	}
	logging.Info().
		Str("snapshot_id", snap.ID).
		Str("path", snap.FilePath).
		Int64("bytes", snap.FileSize).
		Str("checksum", snap.Checksum).
		Msg("backup snapshot created")

	deleted, err := mgr.ApplyRetention(time.Now())
	if err != nil {
		return fmt.Errorf("apply backup retention: %w", err)
	}
	if len(deleted) > 0 {
		logging.Info().Int("count", len(deleted)).Msg("pruned expired backup snapshots")
	}
	return nil
}
