// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/playlistd/internal/config"
	"github.com/tomtom215/playlistd/internal/index"
	"github.com/tomtom215/playlistd/internal/logging"
	"github.com/tomtom215/playlistd/internal/playback"
	"github.com/tomtom215/playlistd/internal/timeline"
)

// runResetDisplay stops a Display and clears its Timeline, mirroring
// the DELETE-adjacent admin action available over the API but without
// deleting the Display itself (spec §6.5: "reset-display <code>").
func runResetDisplay(ctx context.Context, cfg *config.Config, code string) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	idx := index.New(db)
	tl := timeline.New(db, idx)
	machine := playback.New(db, tl, nil)

	if _, err := machine.Stop(ctx, code); err != nil {
		return fmt.Errorf("reset display %s: %w", code, err)
	}
	logging.Info().Str("code", code).Msg("display reset")
	return nil
}
