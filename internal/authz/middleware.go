// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package authz

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/playlistd/internal/auth"
	"github.com/tomtom215/playlistd/internal/logging"
)

// RequireAction builds middleware that enforces action against the
// {code} chi URL parameter for the admin id injected by auth.RequireAdmin.
// It must run after that middleware in the chain.
func RequireAction(enforcer *Enforcer, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			adminID, ok := auth.AdminIDFromContext(r.Context())
			if !ok {
				http.Error(w, "missing authenticated admin", http.StatusForbidden)
				return
			}

			code := chi.URLParam(r, "code")
			allowed, err := enforcer.Enforce(adminID, code, action)
			if err != nil {
				logging.Error().Err(err).Str("admin_id", adminID).Str("display_code", code).Msg("authz enforcement error")
				http.Error(w, "authorization check failed", http.StatusInternalServerError)
				return
			}
			if !allowed {
				http.Error(w, "forbidden: not an owner of this display", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
