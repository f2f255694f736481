// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/playlistd/internal/logging"
	wsock "github.com/tomtom215/playlistd/internal/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection to the realtime channel and
// hands it to a new Client, which self-registers as either an admin
// watcher or a Display session on its first message (spec §4.6, §6.2).
//
// @Summary Open the realtime channel
// @Tags Realtime
// @Router /ws [get]
func (router *Router) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("upgrade websocket connection")
		return
	}
	client := wsock.NewClient(router.hub, conn)
	client.Start()
}
