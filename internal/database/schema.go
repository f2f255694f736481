// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

/*
schema.go - Database Schema Management

Tables (spec §6.4):
  - creators, videos: Content Index
  - displays: Playback State Machine's owned state
  - playlists, blocks: Playlist Store
  - timeline_entries, video_history: Timeline Manager
  - ingestion_stats: Ingestion Scanner's rolling counters
  - audit_actions: admin audit log (SPEC_FULL §9)

Required secondary indexes are created alongside each table: videos by
posted_at desc, timeline_entries by (display,playlist,timeline_position),
video_history by (display,block).
*/
package database

import (
	"context"
	"fmt"
	"time"
)

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func (db *DB) createSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, stmt := range schemaStatements() {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec schema statement: %s: %w", stmt, err)
		}
	}
	return nil
}

func schemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS creators (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			profile_link TEXT,
			follower_count BIGINT DEFAULT 0,
			post_count BIGINT DEFAULT 0,
			verified BOOLEAN DEFAULT false,
			first_seen_at TIMESTAMP NOT NULL,
			last_seen_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS videos (
			id TEXT PRIMARY KEY,
			creator_id TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			posted_at BIGINT NOT NULL,
			permalink TEXT,
			media_url TEXT,
			encoding_source TEXT,
			encoding_md TEXT,
			encoding_thumbnail TEXT,
			encoding_gif TEXT,
			width INTEGER,
			height INTEGER,
			like_count BIGINT DEFAULT 0,
			view_count BIGINT DEFAULT 0,
			indexed_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_videos_posted_at ON videos (posted_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_videos_creator ON videos (creator_id)`,

		`CREATE TABLE IF NOT EXISTS displays (
			code TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			playback_state TEXT NOT NULL DEFAULT 'idle',
			current_playlist_id TEXT,
			current_video_id TEXT,
			current_block_id TEXT,
			timeline_position INTEGER NOT NULL DEFAULT 0,
			last_ping TIMESTAMP,
			muted BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS playlists (
			id TEXT PRIMARY KEY,
			display_code TEXT NOT NULL,
			name TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT false,
			loop_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_playlists_display ON playlists (display_code, is_active)`,

		`CREATE TABLE IF NOT EXISTS blocks (
			id TEXT PRIMARY KEY,
			playlist_id TEXT NOT NULL,
			block_order INTEGER NOT NULL,
			search_term TEXT NOT NULL DEFAULT '',
			video_count INTEGER NOT NULL,
			format TEXT NOT NULL DEFAULT 'mixed',
			fetch_mode TEXT NOT NULL DEFAULT 'newest',
			times_played INTEGER NOT NULL DEFAULT 0,
			last_played_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_blocks_playlist ON blocks (playlist_id, block_order)`,

		`CREATE TABLE IF NOT EXISTS timeline_entries (
			id TEXT PRIMARY KEY,
			display_code TEXT NOT NULL,
			playlist_id TEXT NOT NULL,
			block_id TEXT NOT NULL,
			video_id TEXT NOT NULL,
			timeline_position INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'queued',
			block_position INTEGER NOT NULL,
			loop_iteration INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_timeline_display_playlist_position ON timeline_entries (display_code, playlist_id, timeline_position)`,
		`CREATE INDEX IF NOT EXISTS idx_timeline_block ON timeline_entries (block_id, loop_iteration)`,

		`CREATE TABLE IF NOT EXISTS video_history (
			id TEXT PRIMARY KEY,
			display_code TEXT NOT NULL,
			block_id TEXT NOT NULL,
			video_id TEXT NOT NULL,
			played_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_video_history_display_block ON video_history (display_code, block_id)`,

		`CREATE TABLE IF NOT EXISTS ingestion_stats (
			id INTEGER PRIMARY KEY DEFAULT 1,
			total_scanned BIGINT NOT NULL DEFAULT 0,
			total_new BIGINT NOT NULL DEFAULT 0,
			total_duplicates BIGINT NOT NULL DEFAULT 0,
			total_errors BIGINT NOT NULL DEFAULT 0,
			current_interval_ms BIGINT NOT NULL DEFAULT 0,
			avg_throughput_6 DOUBLE NOT NULL DEFAULT 0,
			avg_overlap_ratio_6 DOUBLE NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`INSERT INTO ingestion_stats (id) VALUES (1) ON CONFLICT DO NOTHING`,

		`CREATE TABLE IF NOT EXISTS audit_actions (
			id TEXT PRIMARY KEY,
			occurred_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			admin_id TEXT NOT NULL,
			action TEXT NOT NULL,
			target TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_actions_occurred_at ON audit_actions (occurred_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_actions_admin ON audit_actions (admin_id)`,
	}
}
