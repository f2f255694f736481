// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/playlistd/internal/config"
	"github.com/tomtom215/playlistd/internal/eventbus"
	"github.com/tomtom215/playlistd/internal/index"
	"github.com/tomtom215/playlistd/internal/logging"
	"github.com/tomtom215/playlistd/internal/scanner"
)

// runScanOnce runs a single watched scan cycle and reports the
// resulting ingestion stats (spec §6.5: "scan-once").
func runScanOnce(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	idx := index.New(db)
	bus, err := eventbus.New(cfg.NATS, nil)
	if err != nil {
		return fmt.Errorf("init event bus: %w", err)
	}
	defer func() { _ = bus.Close() }()

	credStore, closeCredStore, err := openCredentialPersistence(cfg.Scanner.CredentialStorePath, cfg.Security.JWTSecret)
	if err != nil {
		return fmt.Errorf("open credential persistence: %w", err)
	}
	defer func() { _ = closeCredStore() }()

	creds := scanner.NewCredentialStore(scanner.Credentials{
		BearerToken: cfg.Scanner.BearerToken,
		Cookies:     cfg.Scanner.Cookies,
		UserAgent:   cfg.Scanner.UserAgent,
	}, cfg.Scanner.CredentialInterval, nil, credStore)
	sc := scanner.New(cfg.Scanner.FeedURL, cfg.Scanner.PageSize, cfg.Scanner.InitialInterval, creds, idx, bus)

	sc.RunOnce(ctx)

	stats, err := idx.IngestionStats(ctx)
	if err != nil {
		return fmt.Errorf("read ingestion stats: %w", err)
	}
	logging.Info().
		Int64("total_scanned", stats.TotalScanned).
		Int64("total_new", stats.TotalNew).
		Int64("total_duplicates", stats.TotalDuplicates).
		Int64("total_errors", stats.TotalErrors).
		Msg("scan-once complete")
	return nil
}
