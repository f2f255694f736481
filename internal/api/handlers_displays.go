// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/playlistd/internal/auth"
	"github.com/tomtom215/playlistd/internal/errs"
	"github.com/tomtom215/playlistd/internal/models"
)

type createDisplayRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
	Code string `json:"code" validate:"required,alphanum,len=6,uppercase"`
}

// CreateDisplay registers a new Display and grants its creating admin
// ownership (spec §6.1: "POST /displays {name, code} -> create; 409 on
// duplicate code").
//
// @Summary Create a display
// @Tags Displays
// @Accept json
// @Produce json
// @Param request body createDisplayRequest true "Display name and code"
// @Success 201 {object} models.APIResponse{data=models.Display}
// @Failure 400 {object} models.APIResponse
// @Failure 409 {object} models.APIResponse
// @Router /displays [post]
func (router *Router) CreateDisplay(w http.ResponseWriter, r *http.Request) {
	var req createDisplayRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	d, err := router.playback.CreateDisplay(r.Context(), req.Code, req.Name)
	if err != nil {
		respondError(w, r, err)
		return
	}

	adminID, _ := auth.AdminIDFromContext(r.Context())
	if adminID != "" {
		if err := router.enforcer.GrantOwnership(adminID, d.Code); err != nil {
			respondError(w, r, errs.Wrap(errs.KindFatal, "grant display ownership", err))
			return
		}
	}
	router.audit.RecordAction(r.Context(), adminID, "display.create", d.Code, "success")

	respondJSON(w, r, http.StatusCreated, d)
}

// GetDisplay returns a Display with its derived online status (spec
// §6.1: "GET /displays/{code} -> display with derived isOnline").
//
// @Summary Get a display
// @Tags Displays
// @Produce json
// @Param code path string true "Display code"
// @Success 200 {object} models.APIResponse{data=models.Display}
// @Failure 404 {object} models.APIResponse
// @Router /displays/{code} [get]
func (router *Router) GetDisplay(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	d, err := router.playback.GetDisplay(r.Context(), code)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, displayView{
		Display:  *d,
		IsOnline: router.playback.IsOnline(*d),
	})
}

type displayView struct {
	models.Display
	IsOnline bool `json:"isOnline"`
}

// DeleteDisplay hard-deletes a Display and cascades its Playlists,
// Blocks, and Timeline (spec §6.1).
//
// @Summary Delete a display
// @Tags Displays
// @Produce json
// @Param code path string true "Display code"
// @Success 204
// @Failure 404 {object} models.APIResponse
// @Router /displays/{code} [delete]
func (router *Router) DeleteDisplay(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := router.playback.DeleteDisplay(r.Context(), code); err != nil {
		respondError(w, r, err)
		return
	}
	if err := router.enforcer.RevokeDisplay(code); err != nil {
		respondError(w, r, errs.Wrap(errs.KindFatal, "revoke display ownership", err))
		return
	}
	adminID, _ := auth.AdminIDFromContext(r.Context())
	router.audit.RecordAction(r.Context(), adminID, "display.delete", code, "success")
	w.WriteHeader(http.StatusNoContent)
}

type enqueueCommandRequest struct {
	Type    models.CommandType `json:"type" validate:"required,oneof=play pause stop next setMuted"`
	Payload map[string]any     `json:"payload,omitempty"`
}

// EnqueueCommand applies an imperative command to a Display (spec
// §6.1: "POST /displays/{code}/commands {type, payload}").
//
// @Summary Send a command to a display
// @Tags Displays
// @Accept json
// @Produce json
// @Param code path string true "Display code"
// @Param request body enqueueCommandRequest true "Command type and payload"
// @Success 200 {object} models.APIResponse{data=models.Command}
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /displays/{code}/commands [post]
func (router *Router) EnqueueCommand(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req enqueueCommandRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	cmd, err := router.playback.EnqueueCommand(r.Context(), code, req.Type, req.Payload)
	adminID, _ := auth.AdminIDFromContext(r.Context())
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	router.audit.RecordAction(r.Context(), adminID, "display.command."+string(req.Type), code, outcome)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, cmd)
}
