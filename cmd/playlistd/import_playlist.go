// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tomtom215/playlistd/internal/config"
	"github.com/tomtom215/playlistd/internal/index"
	"github.com/tomtom215/playlistd/internal/logging"
	"github.com/tomtom215/playlistd/internal/playlist"
	"github.com/tomtom215/playlistd/internal/timeline"
)

// runImportPlaylist reads a CSV file and creates a new active Playlist
// for the display, materializing its Timeline the same way the HTTP
// import endpoint does (spec §6.5: "import-playlist <code> <file>").
func runImportPlaylist(ctx context.Context, cfg *config.Config, code, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", filePath, err)
	}

	blocks, err := playlist.ImportCSV(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", filePath, err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	name := fmt.Sprintf("%s-%s", filepath.Base(filePath), time.Now().UTC().Format("20060102150405"))

	store := playlist.New(db)
	p, err := store.CreatePlaylist(ctx, code, name, blocks)
	if err != nil {
		return fmt.Errorf("create playlist for %s: %w", code, err)
	}

	idx := index.New(db)
	tl := timeline.New(db, idx)
	if err := tl.Materialize(ctx, code, p.ID); err != nil {
		return fmt.Errorf("materialize timeline for %s: %w", code, err)
	}

	logging.Info().Str("code", code).Str("playlist_id", p.ID).Int("blocks", len(blocks)).Msg("playlist imported")
	return nil
}
