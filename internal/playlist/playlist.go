// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

// Package playlist implements the Playlist Store (spec §4.3): CRUD on
// Playlists and Blocks, CSV import/export, and atomic reordering.
package playlist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/playlistd/internal/database"
	"github.com/tomtom215/playlistd/internal/errs"
	"github.com/tomtom215/playlistd/internal/models"
)

// Store owns the playlists and blocks tables.
type Store struct {
	db *database.DB
}

// New wraps an open database for use as the Playlist Store.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// CreatePlaylist inserts a new Playlist and its Blocks transactionally,
// setting it active and deactivating any other Playlist owned by the
// same Display (spec §4.3).
func (s *Store) CreatePlaylist(ctx context.Context, displayCode, name string, blocks []models.Block) (*models.Playlist, error) {
	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "begin create playlist tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE playlists SET is_active = false WHERE display_code = ?`, displayCode); err != nil {
		return nil, errs.Wrap(errs.KindTransient, "deactivate existing playlists", err)
	}

	p := &models.Playlist{
		ID:          uuid.NewString(),
		DisplayCode: displayCode,
		Name:        name,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO playlists (id, display_code, name, is_active, loop_count, created_at)
		VALUES (?, ?, ?, true, 0, ?)
	`, p.ID, p.DisplayCode, p.Name, p.CreatedAt); err != nil {
		return nil, errs.Wrap(errs.KindTransient, "insert playlist", err)
	}

	for i := range blocks {
		b := &blocks[i]
		b.ID = uuid.NewString()
		b.PlaylistID = p.ID
		b.BlockOrder = i
		if b.Format == "" {
			b.Format = models.FormatMixed
		}
		if b.Format != models.FormatMixed && b.Format != models.FormatWide && b.Format != models.FormatTall {
			return nil, errs.New(errs.KindBadInput, fmt.Sprintf("block %d: format must be one of mixed, wide, tall", i))
		}
		if b.FetchMode == "" {
			b.FetchMode = models.FetchModeNewest
		}
		if b.VideoCount <= 0 {
			return nil, errs.New(errs.KindBadInput, fmt.Sprintf("block %d: video_count must be positive", i))
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO blocks (id, playlist_id, block_order, search_term, video_count, format, fetch_mode, times_played)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0)
		`, b.ID, b.PlaylistID, b.BlockOrder, b.SearchTerm, b.VideoCount, b.Format, b.FetchMode); err != nil {
			return nil, errs.Wrap(errs.KindTransient, "insert block", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errs.Wrap(errs.KindTransient, "commit create playlist tx", err)
	}
	return p, nil
}

// BlockOrder pairs a Block id with its desired 0-based order.
type BlockOrder struct {
	BlockID string
	Order   int
}

// ReorderBlocks atomically rewrites block_order for a Playlist's
// Blocks. Rejects with errs.ErrNonDenseOrder if orders is not a dense
// 0..N-1 permutation of the playlist's blocks (spec §4.3).
func (s *Store) ReorderBlocks(ctx context.Context, playlistID string, orders []BlockOrder) error {
	rows, err := s.db.Conn().QueryContext(ctx, `SELECT id FROM blocks WHERE playlist_id = ?`, playlistID)
	if err != nil {
		return errs.Wrap(errs.KindTransient, "list blocks for reorder", err)
	}
	existing := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return errs.Wrap(errs.KindTransient, "scan block id", err)
		}
		existing[id] = true
	}
	rows.Close()

	if len(orders) != len(existing) {
		return errs.Wrap(errs.KindInvariantViolation, "reorder count mismatch", errs.ErrNonDenseOrder)
	}
	seen := make([]bool, len(orders))
	for _, o := range orders {
		if !existing[o.BlockID] {
			return errs.New(errs.KindNotFound, "block not in playlist: "+o.BlockID)
		}
		if o.Order < 0 || o.Order >= len(orders) || seen[o.Order] {
			return errs.Wrap(errs.KindInvariantViolation, "non-dense block order", errs.ErrNonDenseOrder)
		}
		seen[o.Order] = true
	}

	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindTransient, "begin reorder tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, o := range orders {
		if _, err := tx.ExecContext(ctx, `UPDATE blocks SET block_order = ? WHERE id = ?`, o.Order, o.BlockID); err != nil {
			return errs.Wrap(errs.KindTransient, "update block order", err)
		}
	}
	// Existing queued entries are invalidated; the Timeline Manager
	// re-materializes on the next refill check (spec §8 scenario S3).
	if _, err := tx.ExecContext(ctx, `DELETE FROM timeline_entries WHERE playlist_id = ? AND status = 'queued'`, playlistID); err != nil {
		return errs.Wrap(errs.KindTransient, "invalidate queued entries after reorder", err)
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindTransient, "commit reorder tx", err)
	}
	return nil
}

// displayIdleState looks up whether the Display owning a Block is idle.
func (s *Store) displayIdleForBlock(ctx context.Context, blockID string) (bool, error) {
	var state string
	err := s.db.Conn().QueryRowContext(ctx, `
		SELECT d.playback_state FROM displays d
		JOIN playlists p ON p.display_code = d.code
		JOIN blocks b ON b.playlist_id = p.id
		WHERE b.id = ?
	`, blockID).Scan(&state)
	if err == sql.ErrNoRows {
		return false, errs.New(errs.KindNotFound, "block not found")
	}
	if err != nil {
		return false, errs.Wrap(errs.KindTransient, "lookup display state for block", err)
	}
	return state == string(models.PlaybackIdle), nil
}

// UpdateBlockFields names the mutable, caller-supplied Block fields.
type UpdateBlockFields struct {
	SearchTerm *string
	VideoCount *int
	Format     *models.Format
}

// UpdateBlock applies fields to a Block. search_term, video_count, and
// format are forbidden unless the owning Display is idle (spec §4.3).
func (s *Store) UpdateBlock(ctx context.Context, blockID string, fields UpdateBlockFields) error {
	if fields.SearchTerm != nil || fields.VideoCount != nil || fields.Format != nil {
		idle, err := s.displayIdleForBlock(ctx, blockID)
		if err != nil {
			return err
		}
		if !idle {
			return errs.Wrap(errs.KindConflict, "block fields require idle display", errs.ErrNotIdle)
		}
	}

	if fields.SearchTerm != nil {
		if _, err := s.db.Conn().ExecContext(ctx, `UPDATE blocks SET search_term = ? WHERE id = ?`, *fields.SearchTerm, blockID); err != nil {
			return errs.Wrap(errs.KindTransient, "update block search_term", err)
		}
	}
	if fields.VideoCount != nil {
		if *fields.VideoCount <= 0 {
			return errs.New(errs.KindBadInput, "video_count must be positive")
		}
		if _, err := s.db.Conn().ExecContext(ctx, `UPDATE blocks SET video_count = ? WHERE id = ?`, *fields.VideoCount, blockID); err != nil {
			return errs.Wrap(errs.KindTransient, "update block video_count", err)
		}
	}
	if fields.Format != nil {
		f := *fields.Format
		if f != models.FormatMixed && f != models.FormatWide && f != models.FormatTall {
			return errs.New(errs.KindBadInput, "format must be one of mixed, wide, tall")
		}
		if _, err := s.db.Conn().ExecContext(ctx, `UPDATE blocks SET format = ? WHERE id = ?`, f, blockID); err != nil {
			return errs.Wrap(errs.KindTransient, "update block format", err)
		}
	}
	return nil
}

// DeleteBlock removes a Block and renumbers the remaining Blocks of
// its Playlist to stay dense (spec §4.3).
func (s *Store) DeleteBlock(ctx context.Context, blockID string) error {
	var playlistID string
	if err := s.db.Conn().QueryRowContext(ctx, `SELECT playlist_id FROM blocks WHERE id = ?`, blockID).Scan(&playlistID); err != nil {
		if err == sql.ErrNoRows {
			return errs.New(errs.KindNotFound, "block not found")
		}
		return errs.Wrap(errs.KindTransient, "lookup block playlist", err)
	}

	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindTransient, "begin delete block tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE id = ?`, blockID); err != nil {
		return errs.Wrap(errs.KindTransient, "delete block", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT id FROM blocks WHERE playlist_id = ? ORDER BY block_order`, playlistID)
	if err != nil {
		return errs.Wrap(errs.KindTransient, "list remaining blocks", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return errs.Wrap(errs.KindTransient, "scan remaining block", err)
		}
		ids = append(ids, id)
	}
	rows.Close()

	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE blocks SET block_order = ? WHERE id = ?`, i, id); err != nil {
			return errs.Wrap(errs.KindTransient, "renumber block", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindTransient, "commit delete block tx", err)
	}
	return nil
}
