// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package api

import (
	"net/http"
	"time"
)

// staleScanThreshold is how long since the last recorded ingestion
// cycle before the scanner is reported degraded (spec §9 supplemented
// health check, grounded on the teacher's eventprocessor health gate).
const staleScanThreshold = 10 * time.Minute

type healthResponse struct {
	Status          string `json:"status"`
	DatabaseOK      bool   `json:"databaseOk"`
	ScannerOK       bool   `json:"scannerOk"`
	LastScanAge     string `json:"lastScanAge,omitempty"`
	ConnectedClients int   `json:"connectedClients"`
	UptimeSeconds   int64  `json:"uptimeSeconds"`
}

// Health reports liveness of the database, the scanner's ingestion
// freshness, and the realtime channel's connected client count (spec
// §9 supplemented health check).
//
// @Summary Report service health
// @Tags Health
// @Produce json
// @Success 200 {object} models.APIResponse{data=healthResponse}
// @Failure 503 {object} models.APIResponse
// @Router /healthz [get]
func (router *Router) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:           "ok",
		DatabaseOK:       true,
		ScannerOK:        true,
		ConnectedClients: router.hub.ClientCount(),
		UptimeSeconds:    int64(time.Since(router.started).Seconds()),
	}

	stats, err := router.idx.IngestionStats(r.Context())
	if err != nil {
		resp.DatabaseOK = false
		resp.ScannerOK = false
		resp.Status = "degraded"
	} else if !stats.UpdatedAt.IsZero() {
		age := time.Since(stats.UpdatedAt)
		resp.LastScanAge = age.Round(time.Second).String()
		if age > staleScanThreshold {
			resp.ScannerOK = false
			resp.Status = "degraded"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, r, status, resp)
}
