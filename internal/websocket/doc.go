// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

/*
Package websocket implements the Realtime Hub: the single bidirectional
channel admins and Displays use to exchange state and commands.

Key Components:

  - Hub: owns admin/display subscription membership and fan-out
  - Client: one connection, either an admin watcher or a Display session
  - Message: the envelope for every client↔server payload

Two roles share one channel:

	┌────────────┐  registerAdmin{adminId,displays[]}   ┌─────┐
	│ Admin(s)   │ ───────────────────────────────────► │ Hub │
	│            │ ◄─────────── stateDelta, displayStatus└──┬──┘
	└────────────┘                                          │
	┌────────────┐  registerDisplay{code}, heartbeat,        │
	│ Display    │  videoEnded{code}                         │
	│ session    │ ───────────────────────────────────────► ◄┘
	│            │ ◄─────────────── command, displaced
	└────────────┘

Only one Display session per code is permitted; a later registration
displaces the earlier one (spec §4.6).

Liveness is derived from heartbeats: a Display missing two consecutive
heartbeats (>10s) is marked offline, and RunLiveness broadcasts the
transition to watching admins.

See Also:

  - github.com/gorilla/websocket: underlying WebSocket library
  - internal/playback: the state machine Hub events originate from
  - internal/api: HTTP upgrade endpoint for the realtime channel
*/
package websocket
