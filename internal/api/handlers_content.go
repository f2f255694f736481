// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/tomtom215/playlistd/internal/errs"
	"github.com/tomtom215/playlistd/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ListLatest returns the most recently posted Videos in the content
// index, newest first (spec §6.1: "GET /api/latest?limit&offset").
//
// @Summary List the most recently indexed videos
// @Tags Content
// @Produce json
// @Param limit query int false "Max results (default 50, max 200)"
// @Param offset query int false "Result offset"
// @Success 200 {object} models.APIResponse{data=[]models.Video}
// @Router /api/latest [get]
func (router *Router) ListLatest(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, defaultListLimit)
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	key := fmt.Sprintf("latest:%d:%d", limit, offset)
	if cached, ok := router.contentCache.Get(key); ok {
		respondJSON(w, r, http.StatusOK, cached.([]models.Video))
		return
	}

	videos, err := router.idx.ListLatest(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}
	router.contentCache.Set(key, videos)
	respondJSON(w, r, http.StatusOK, videos)
}

// SearchVideos searches the content index by term, excluding any video
// already queued on the requesting Display's Timeline (spec §6.1: "GET
// /api/search?q&limit").
//
// @Summary Search the video content index
// @Tags Content
// @Produce json
// @Param q query string true "Search term"
// @Param limit query int false "Max results (default 50, max 200)"
// @Success 200 {object} models.APIResponse{data=[]models.Video}
// @Failure 400 {object} models.APIResponse
// @Router /api/search [get]
func (router *Router) SearchVideos(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		respondError(w, r, errs.New(errs.KindBadInput, "q is required"))
		return
	}
	limit := parseLimit(r, defaultListLimit)

	videos, err := router.idx.SearchVideos(r.Context(), term, limit, models.FetchModeNewest, models.FormatMixed, nil)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, videos)
}

func parseLimit(r *http.Request, def int) int {
	limit := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit
}
