// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/playlistd/internal/auth"
	"github.com/tomtom215/playlistd/internal/authz"
	"github.com/tomtom215/playlistd/internal/cache"
	"github.com/tomtom215/playlistd/internal/index"
	"github.com/tomtom215/playlistd/internal/playback"
	"github.com/tomtom215/playlistd/internal/playlist"
	"github.com/tomtom215/playlistd/internal/timeline"
	"github.com/tomtom215/playlistd/internal/websocket"
)

// AuditLogger records admin-mutating actions (spec §9 supplemented
// admin audit log). Implemented by internal/audit.Logger; declared here
// so this package does not depend on audit's storage concerns.
type AuditLogger interface {
	RecordAction(ctx context.Context, adminID, action, target, outcome string)
}

type noopAuditLogger struct{}

func (noopAuditLogger) RecordAction(context.Context, string, string, string, string) {}

// Router assembles the External HTTP/Command API (spec §4.7) over the
// orchestration core's components.
type Router struct {
	playback  *playback.Machine
	tl        *timeline.Manager
	playlists *playlist.Store
	idx       *index.Index
	hub       *websocket.Hub
	authMgr   *auth.Manager
	enforcer  *authz.Enforcer
	audit     AuditLogger

	// contentCache holds short-lived ListLatest/SearchVideos responses;
	// displays and dashboards tend to poll the same listing page
	// repeatedly, so a few seconds of staleness trades for fewer
	// DuckDB round trips (spec SPEC_FULL §4.1).
	contentCache *cache.Cache

	mw      MiddlewareConfig
	swagger bool
	started time.Time
}

// contentCacheTTL bounds how stale a cached content listing may be.
const contentCacheTTL = 5 * time.Second

// Deps bundles the components NewRouter wires into handlers.
type Deps struct {
	Playback  *playback.Machine
	Timeline  *timeline.Manager
	Playlists *playlist.Store
	Index     *index.Index
	Hub       *websocket.Hub
	AuthMgr   *auth.Manager
	Enforcer  *authz.Enforcer
	Audit     AuditLogger

	Middleware MiddlewareConfig
	Swagger    bool
}

// NewRouter constructs a Router over the given Deps.
func NewRouter(d Deps) *Router {
	audit := d.Audit
	if audit == nil {
		audit = noopAuditLogger{}
	}
	return &Router{
		playback:     d.Playback,
		tl:           d.Timeline,
		playlists:    d.Playlists,
		idx:          d.Index,
		hub:          d.Hub,
		authMgr:      d.AuthMgr,
		enforcer:     d.Enforcer,
		audit:        audit,
		contentCache: cache.New(contentCacheTTL),
		mw:           d.Middleware,
		swagger:      d.Swagger,
		started:      time.Now().UTC(),
	}
}

// Close stops the Router's background cache cleanup. Safe to call
// once during process shutdown.
func (router *Router) Close() error {
	router.contentCache.Stop()
	return nil
}

// Handler builds the full Chi router (spec §6.1; route grouping and
// middleware chaining follow the teacher's chi_router.go SetupChi()).
func (router *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.mw.CORS())
	r.Use(SecurityHeaders())
	r.Use(router.mw.RateLimit())

	r.Get("/healthz", router.Health)

	r.Route("/displays", func(r chi.Router) {
		r.With(auth.RequireAdmin(router.authMgr)).Post("/", router.CreateDisplay)
		r.Get("/{code}", router.GetDisplay)
		r.With(auth.RequireAdmin(router.authMgr), authz.RequireAction(router.enforcer, authz.ActionOwn)).
			Delete("/{code}", router.DeleteDisplay)
		r.With(auth.RequireAdmin(router.authMgr), authz.RequireAction(router.enforcer, authz.ActionControl)).
			Post("/{code}/commands", router.EnqueueCommand)
	})

	r.Get("/timeline/{code}", router.GetTimeline)

	r.Route("/playlists", func(r chi.Router) {
		r.With(auth.RequireAdmin(router.authMgr)).Post("/import", router.ImportPlaylist)
		r.Get("/{id}/export", router.ExportPlaylist)
		r.With(auth.RequireAdmin(router.authMgr)).Put("/blocks/reorder", router.ReorderBlocks)
		r.With(auth.RequireAdmin(router.authMgr)).Put("/blocks/{id}", router.UpdateBlock)
		r.With(auth.RequireAdmin(router.authMgr)).Delete("/blocks/{id}", router.DeleteBlock)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/latest", router.ListLatest)
		r.Get("/search", router.SearchVideos)
	})

	r.Get("/ws", router.ServeWebSocket)

	if router.swagger {
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	return r
}
