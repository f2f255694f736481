// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/playlistd/internal/errs"
	"github.com/tomtom215/playlistd/internal/timeline"
)

type timelineResponse struct {
	Progress      timeline.Progress `json:"progress"`
	QueuedVideos  []queuedVideoView `json:"queuedVideos"`
}

type queuedVideoView struct {
	EntryID          string `json:"entryId"`
	VideoID          string `json:"videoId"`
	TimelinePosition int    `json:"timelinePosition"`
}

// GetTimeline reports a Display's current progress and queued videos
// (spec §6.1: "GET /timeline/{code} -> {progress, queuedVideos[]}").
//
// @Summary Get a display's timeline progress
// @Tags Timeline
// @Produce json
// @Param code path string true "Display code"
// @Success 200 {object} models.APIResponse{data=timelineResponse}
// @Failure 404 {object} models.APIResponse
// @Router /timeline/{code} [get]
func (router *Router) GetTimeline(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	d, err := router.playback.GetDisplay(r.Context(), code)
	if err != nil {
		respondError(w, r, err)
		return
	}
	playlistID := ""
	if d.CurrentPlaylistID != nil {
		playlistID = *d.CurrentPlaylistID
	} else {
		// Idle Displays clear CurrentPlaylistID, but an idle Display with
		// a materialized active Playlist still has a timeline to report.
		playlistID, err = router.playback.ActivePlaylistID(r.Context(), code)
		if err != nil {
			respondError(w, r, errs.ErrNoActivePlaylist)
			return
		}
	}

	progress, err := router.tl.Progress(r.Context(), playlistID, *d, 0)
	if err != nil {
		respondError(w, r, err)
		return
	}
	entries, err := router.tl.QueuedVideos(r.Context(), code, playlistID, d.TimelinePosition)
	if err != nil {
		respondError(w, r, err)
		return
	}

	queued := make([]queuedVideoView, len(entries))
	for i, e := range entries {
		queued[i] = queuedVideoView{EntryID: e.ID, VideoID: e.VideoID, TimelinePosition: e.TimelinePosition}
	}

	respondJSON(w, r, http.StatusOK, timelineResponse{Progress: progress, QueuedVideos: queued})
}
