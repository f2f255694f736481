// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package services

import (
	"context"
	"time"
)

// LivenessHub matches *websocket.Hub's liveness-sweep method, avoiding
// a dependency from this package on internal/websocket.
type LivenessHub interface {
	RunLiveness(ctx context.Context, interval time.Duration) error
}

// WebSocketHubService wraps the Realtime Hub's liveness sweep as a
// supervised service (teacher pattern: supervisor/services/websocket_service.go).
type WebSocketHubService struct {
	hub      LivenessHub
	interval time.Duration
}

// NewWebSocketHubService binds the liveness sweep interval at
// construction since Hub.RunLiveness takes it per call rather than
// storing it.
func NewWebSocketHubService(hub LivenessHub, interval time.Duration) *WebSocketHubService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &WebSocketHubService{hub: hub, interval: interval}
}

// Serve implements suture.Service.
func (w *WebSocketHubService) Serve(ctx context.Context) error {
	return w.hub.RunLiveness(ctx, w.interval)
}

func (w *WebSocketHubService) String() string { return "websocket-hub" }
