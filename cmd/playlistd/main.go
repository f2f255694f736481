// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

// Command playlistd runs the multi-display video playlist orchestrator:
// the Ingestion Scanner, Playback State Machine, Timeline Manager, and
// Realtime Hub behind a Chi-routed HTTP/command API, plus a handful of
// one-shot diagnostic subcommands.
//
// # Subcommands
//
//	playlistd serve
//	playlistd scan-once
//	playlistd reset-display <code>
//	playlistd export-playlist <code>
//	playlistd import-playlist <code> <file>
//	playlistd backup
//
// Exit codes: 0 ok, 1 bad arguments, 2 runtime error (spec §6.5).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/playlistd/internal/config"
	"github.com/tomtom215/playlistd/internal/database"
	"github.com/tomtom215/playlistd/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(2)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})
	if err := cfg.Validate(); err != nil {
		logging.Error().Err(err).Msg("invalid configuration")
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logging.Info().Msg("received shutdown signal")
		cancel()
	}()

	cmd, args := os.Args[1], os.Args[2:]
	var runErr error
	switch cmd {
	case "serve":
		runErr = runServe(ctx, cfg)
	case "scan-once":
		runErr = runScanOnce(ctx, cfg)
	case "reset-display":
		runErr = withArgs(args, 1, func() error { return runResetDisplay(ctx, cfg, args[0]) })
	case "export-playlist":
		runErr = withArgs(args, 1, func() error { return runExportPlaylist(ctx, cfg, args[0]) })
	case "import-playlist":
		runErr = withArgs(args, 2, func() error { return runImportPlaylist(ctx, cfg, args[0], args[1]) })
	case "backup":
		runErr = runBackup(ctx, cfg)
	default:
		usage()
		os.Exit(1)
	}

	if runErr != nil {
		if _, ok := runErr.(*badArgsError); ok {
			fmt.Fprintln(os.Stderr, runErr)
			usage()
			os.Exit(1)
		}
		logging.Error().Err(runErr).Str("command", cmd).Msg("command failed")
		os.Exit(2)
	}
}

type badArgsError struct{ msg string }

func (e *badArgsError) Error() string { return e.msg }

func withArgs(args []string, want int, fn func() error) error {
	if len(args) < want {
		return &badArgsError{msg: fmt.Sprintf("expected %d argument(s), got %d", want, len(args))}
	}
	return fn()
}

func usage() {
	fmt.Fprintln(os.Stderr, `playlistd: multi-display video playlist orchestrator

Usage:
  playlistd serve
  playlistd scan-once
  playlistd reset-display <code>
  playlistd export-playlist <code>
  playlistd import-playlist <code> <file>
  playlistd backup`)
}

func openDatabase(cfg *config.Config) (*database.DB, error) {
	return database.New(&cfg.Database)
}
