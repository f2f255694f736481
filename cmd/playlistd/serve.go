// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/playlistd/internal/api"
	"github.com/tomtom215/playlistd/internal/audit"
	"github.com/tomtom215/playlistd/internal/auth"
	"github.com/tomtom215/playlistd/internal/authz"
	"github.com/tomtom215/playlistd/internal/config"
	"github.com/tomtom215/playlistd/internal/eventbus"
	"github.com/tomtom215/playlistd/internal/index"
	"github.com/tomtom215/playlistd/internal/logging"
	"github.com/tomtom215/playlistd/internal/playback"
	"github.com/tomtom215/playlistd/internal/playlist"
	"github.com/tomtom215/playlistd/internal/refill"
	"github.com/tomtom215/playlistd/internal/scanner"
	"github.com/tomtom215/playlistd/internal/supervisor"
	"github.com/tomtom215/playlistd/internal/supervisor/services"
	"github.com/tomtom215/playlistd/internal/timeline"
	ws "github.com/tomtom215/playlistd/internal/websocket"
)

// runServe wires every component and runs until ctx is canceled,
// mirroring the teacher's cmd/server/main.go initialization order:
// config -> database -> domain components -> auth/authz -> hub ->
// router -> supervisor tree.
func runServe(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing database")
		}
	}()

	idx := index.New(db)
	tl := timeline.New(db, idx)
	playlists := playlist.New(db)
	machine := playback.New(db, tl, nil)

	hub := ws.NewHub(machine)
	machine.SetSink(hub)

	bus, err := eventbus.New(cfg.NATS, nil)
	if err != nil {
		return fmt.Errorf("init event bus: %w", err)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing event bus")
		}
	}()

	credStore, closeCredStore, err := openCredentialPersistence(cfg.Scanner.CredentialStorePath, cfg.Security.JWTSecret)
	if err != nil {
		return fmt.Errorf("open credential persistence: %w", err)
	}
	defer func() {
		if err := closeCredStore(); err != nil {
			logging.Error().Err(err).Msg("error closing credential store")
		}
	}()

	creds := scanner.NewCredentialStore(scanner.Credentials{
		BearerToken: cfg.Scanner.BearerToken,
		Cookies:     cfg.Scanner.Cookies,
		UserAgent:   cfg.Scanner.UserAgent,
	}, cfg.Scanner.CredentialInterval, nil, credStore)
	sc := scanner.New(cfg.Scanner.FeedURL, cfg.Scanner.PageSize, cfg.Scanner.InitialInterval, creds, idx, bus)
	refillConsumer := refill.New(bus, tl, machine)

	authMgr, err := auth.NewManager(cfg.Security)
	if err != nil {
		return fmt.Errorf("init auth manager: %w", err)
	}
	enforcer, err := authz.NewEnforcer(cfg.Security.AuthzPolicyPath)
	if err != nil {
		return fmt.Errorf("init authz enforcer: %w", err)
	}

	auditLogger := audit.NewLogger(audit.NewDuckDBStore(db), 0)
	defer func() {
		if err := auditLogger.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing audit logger")
		}
	}()

	router := api.NewRouter(api.Deps{
		Playback:   machine,
		Timeline:   tl,
		Playlists:  playlists,
		Index:      idx,
		Hub:        hub,
		AuthMgr:    authMgr,
		Enforcer:   enforcer,
		Audit:      auditLogger,
		Middleware: api.MiddlewareConfig{CORSAllowedOrigins: nil, RateLimitRequests: 100, RateLimitWindow: time.Minute},
		Swagger:    cfg.Server.Swagger,
	})
	defer func() {
		if err := router.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing router")
		}
	}()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddDataService(sc)
	tree.AddMessagingService(services.NewWebSocketHubService(hub, cfg.Hub.HeartbeatInterval))
	tree.AddMessagingService(refillConsumer)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	logging.Info().Str("addr", server.Addr).Msg("starting playlistd")
	errCh := tree.ServeBackground(ctx)
	for err := range errCh {
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("supervisor tree: %w", err)
		}
	}
	logging.Info().Msg("playlistd stopped gracefully")
	return nil
}
