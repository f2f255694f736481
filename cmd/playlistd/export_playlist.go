// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/tomtom215/playlistd/internal/config"
	"github.com/tomtom215/playlistd/internal/database"
	"github.com/tomtom215/playlistd/internal/errs"
	"github.com/tomtom215/playlistd/internal/playlist"
)

// activePlaylistID resolves the display's currently active Playlist,
// the same lookup the Playback State Machine performs internally on
// an idle-state Play transition (internal/playback/transitions.go).
func activePlaylistID(ctx context.Context, db *database.DB, displayCode string) (string, error) {
	var id string
	err := db.Conn().QueryRowContext(ctx,
		`SELECT id FROM playlists WHERE display_code = ? AND is_active = true`, displayCode).Scan(&id)
	if err == sql.ErrNoRows {
		return "", errs.New(errs.KindNotFound, "display has no active playlist")
	}
	if err != nil {
		return "", errs.Wrap(errs.KindTransient, "resolve active playlist", err)
	}
	return id, nil
}

// runExportPlaylist writes the active Playlist's Blocks as CSV to
// stdout (spec §6.5: "export-playlist <code>").
func runExportPlaylist(ctx context.Context, cfg *config.Config, code string) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	playlistID, err := activePlaylistID(ctx, db, code)
	if err != nil {
		return err
	}

	store := playlist.New(db)
	data, err := store.ExportCSV(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("export playlist for %s: %w", code, err)
	}
	_, err = os.Stdout.Write(data)
	return err
}
