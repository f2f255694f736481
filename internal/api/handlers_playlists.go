// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/playlistd/internal/auth"
	"github.com/tomtom215/playlistd/internal/models"
	"github.com/tomtom215/playlistd/internal/playlist"
)

type importPlaylistRequest struct {
	DisplayID    string         `json:"displayId" validate:"required"`
	PlaylistName string         `json:"playlistName" validate:"required,min=1,max=200"`
	Blocks       []models.Block `json:"blocks" validate:"required,min=1,dive"`
}

// ImportPlaylist creates a Playlist from either an explicit Block list
// or an uploaded CSV body (spec §6.1: "POST /playlists/import
// {displayId, blocks[], playlistName}").
//
// @Summary Import a playlist
// @Tags Playlists
// @Accept json
// @Produce json
// @Param request body importPlaylistRequest true "Display id, name, and blocks"
// @Success 201 {object} models.APIResponse{data=models.Playlist}
// @Failure 400 {object} models.APIResponse
// @Router /playlists/import [post]
func (router *Router) ImportPlaylist(w http.ResponseWriter, r *http.Request) {
	var req importPlaylistRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	p, err := router.playlists.CreatePlaylist(r.Context(), req.DisplayID, req.PlaylistName, req.Blocks)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := router.tl.Materialize(r.Context(), req.DisplayID, p.ID); err != nil {
		respondError(w, r, err)
		return
	}
	adminID, _ := auth.AdminIDFromContext(r.Context())
	router.audit.RecordAction(r.Context(), adminID, "playlist.import", req.DisplayID, "success")
	respondJSON(w, r, http.StatusCreated, p)
}

// ExportPlaylist renders a Playlist's Blocks as CSV (spec §6.1: "GET
// /playlists/{id}/export -> CSV contents").
//
// @Summary Export a playlist as CSV
// @Tags Playlists
// @Produce text/csv
// @Param id path string true "Playlist id"
// @Success 200 {string} string "CSV contents"
// @Failure 404 {object} models.APIResponse
// @Router /playlists/{id}/export [get]
func (router *Router) ExportPlaylist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := router.playlists.ExportCSV(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="playlist.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type reorderBlocksRequest struct {
	PlaylistID  string              `json:"playlistId" validate:"required"`
	BlockOrders []blockOrderRequest `json:"blockOrders" validate:"required,min=1,dive"`
}

type blockOrderRequest struct {
	BlockID string `json:"blockId" validate:"required"`
	Order   int    `json:"order" validate:"min=0"`
}

// ReorderBlocks rewrites a Playlist's Block ordering (spec §6.1: "PUT
// /playlists/blocks/reorder {playlistId, blockOrders[]}").
//
// @Summary Reorder a playlist's blocks
// @Tags Playlists
// @Accept json
// @Produce json
// @Param request body reorderBlocksRequest true "Playlist id and new block order"
// @Success 204
// @Failure 400 {object} models.APIResponse
// @Failure 422 {object} models.APIResponse
// @Router /playlists/blocks/reorder [put]
func (router *Router) ReorderBlocks(w http.ResponseWriter, r *http.Request) {
	var req reorderBlocksRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	orders := make([]playlist.BlockOrder, len(req.BlockOrders))
	for i, o := range req.BlockOrders {
		orders[i] = playlist.BlockOrder{BlockID: o.BlockID, Order: o.Order}
	}
	if err := router.playlists.ReorderBlocks(r.Context(), req.PlaylistID, orders); err != nil {
		respondError(w, r, err)
		return
	}
	adminID, _ := auth.AdminIDFromContext(r.Context())
	router.audit.RecordAction(r.Context(), adminID, "playlist.reorder_blocks", req.PlaylistID, "success")
	w.WriteHeader(http.StatusNoContent)
}

type updateBlockRequest struct {
	SearchTerm *string        `json:"searchTerm,omitempty" validate:"omitempty,min=1"`
	VideoCount *int           `json:"videoCount,omitempty" validate:"omitempty,min=1"`
	Format     *models.Format `json:"format,omitempty"`
}

// UpdateBlock applies mutable fields to a Block (spec §6.1: "PUT
// /playlists/blocks/{id}").
//
// @Summary Update a playlist block
// @Tags Playlists
// @Accept json
// @Produce json
// @Param id path string true "Block id"
// @Param request body updateBlockRequest true "Fields to update"
// @Success 204
// @Failure 409 {object} models.APIResponse
// @Router /playlists/blocks/{id} [put]
func (router *Router) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateBlockRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	fields := playlist.UpdateBlockFields{SearchTerm: req.SearchTerm, VideoCount: req.VideoCount, Format: req.Format}
	if err := router.playlists.UpdateBlock(r.Context(), id, fields); err != nil {
		respondError(w, r, err)
		return
	}
	adminID, _ := auth.AdminIDFromContext(r.Context())
	router.audit.RecordAction(r.Context(), adminID, "playlist.update_block", id, "success")
	w.WriteHeader(http.StatusNoContent)
}

// DeleteBlock removes a Block and renumbers its Playlist (spec §6.1:
// "DELETE /playlists/blocks/{id}").
//
// @Summary Delete a playlist block
// @Tags Playlists
// @Produce json
// @Param id path string true "Block id"
// @Success 204
// @Failure 404 {object} models.APIResponse
// @Router /playlists/blocks/{id} [delete]
func (router *Router) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := router.playlists.DeleteBlock(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	adminID, _ := auth.AdminIDFromContext(r.Context())
	router.audit.RecordAction(r.Context(), adminID, "playlist.delete_block", id, "success")
	w.WriteHeader(http.StatusNoContent)
}
