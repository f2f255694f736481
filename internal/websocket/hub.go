// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

// Package websocket implements the Realtime Hub (spec §4.6, §6.2): admin
// subscription membership, state-delta fan-out, and single-session
// command delivery to Displays over gorilla/websocket connections.
package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/playlistd/internal/logging"
	"github.com/tomtom215/playlistd/internal/models"
	"github.com/tomtom215/playlistd/internal/playback"
)

// Message types exchanged over the realtime channel (spec §6.2).
const (
	MessageTypeRegisterAdmin   = "registerAdmin"
	MessageTypeRegisterDisplay = "registerDisplay"
	MessageTypeHeartbeat       = "heartbeat"
	MessageTypeVideoEnded      = "videoEnded"
	MessageTypeStateDelta      = "stateDelta"
	MessageTypeCommand         = "command"
	MessageTypeDisplaced       = "displaced"
	MessageTypeDisplayStatus   = "displayStatus"
	MessageTypePing            = "ping"
	MessageTypePong            = "pong"
)

// Message is the envelope for every realtime channel payload.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// StateDeltaData is the payload of a stateDelta message: a Display's
// observable state plus the view-only video progress fraction merged
// in at broadcast time (spec §4.5, §4.6).
type StateDeltaData struct {
	Code             string  `json:"code"`
	PlaybackState    string  `json:"playbackState"`
	CurrentVideoID   *string `json:"currentVideoId,omitempty"`
	CurrentBlockID   *string `json:"currentBlockId,omitempty"`
	TimelinePosition int     `json:"timelinePosition"`
	Muted            bool     `json:"muted"`
	VideoProgress    *float64 `json:"videoProgress,omitempty"`
	BlockProgress    *float64 `json:"blockProgress,omitempty"`
	PlaylistEmpty    bool     `json:"playlistEmpty,omitempty"`
}

// DisplayStatusData is the payload of a displayStatus message (spec §4.6).
type DisplayStatusData struct {
	Code     string `json:"code"`
	IsOnline bool   `json:"isOnline"`
}

// Hub owns admin/display subscription membership and routes state
// deltas and commands between them. Membership is guarded by a single
// reader-writer lock per spec §5 ("many subscribers, occasional
// membership edits").
type Hub struct {
	machine *playback.Machine

	mu              sync.RWMutex
	adminClients    map[*Client]bool
	subscriptions   map[string]map[*Client]bool // displayCode -> watching admin clients
	displaySessions map[string]*Client          // displayCode -> the single active display session
	lastOnline      map[string]bool
}

// NewHub creates a Hub bound to the Playback State Machine it drives.
func NewHub(machine *playback.Machine) *Hub {
	return &Hub{
		machine:         machine,
		adminClients:    make(map[*Client]bool),
		subscriptions:   make(map[string]map[*Client]bool),
		displaySessions: make(map[string]*Client),
		lastOnline:      make(map[string]bool),
	}
}

// Publish implements playback.Sink: state Events become stateDelta
// broadcasts to subscribed admins; Events carrying a Command are
// delivered once to the target Display's session (spec §4.6).
func (h *Hub) Publish(ev playback.Event) {
	if ev.Command != nil {
		h.deliverCommand(ev.DisplayCode, ev.Command)
		return
	}
	h.broadcastStateDelta(ev)
}

func (h *Hub) deliverCommand(code string, cmd *models.Command) {
	h.mu.RLock()
	client := h.displaySessions[code]
	h.mu.RUnlock()
	if client == nil {
		return
	}
	h.send(client, Message{Type: MessageTypeCommand, Data: cmd})
}

func (h *Hub) broadcastStateDelta(ev playback.Event) {
	data := StateDeltaData{
		Code:             ev.DisplayCode,
		PlaybackState:    string(ev.Display.PlaybackState),
		CurrentVideoID:   ev.Display.CurrentVideoID,
		CurrentBlockID:   ev.Display.CurrentBlockID,
		TimelinePosition: ev.Display.TimelinePosition,
		Muted:            ev.Display.Muted,
		VideoProgress:    ev.VideoProgress,
		BlockProgress:    ev.BlockProgress,
		PlaylistEmpty:    ev.PlaylistEmpty,
	}
	msg := Message{Type: MessageTypeStateDelta, Data: data}

	h.mu.RLock()
	watchers := make([]*Client, 0, len(h.subscriptions[ev.DisplayCode]))
	for c := range h.subscriptions[ev.DisplayCode] {
		watchers = append(watchers, c)
	}
	h.mu.RUnlock()

	// DETERMINISM: sort by client ID so fan-out order is reproducible,
	// matching the deterministic broadcast pattern used elsewhere.
	sort.Slice(watchers, func(i, j int) bool { return watchers[i].id < watchers[j].id })
	for _, c := range watchers {
		h.send(c, msg)
	}
}

func (h *Hub) send(c *Client, msg Message) {
	select {
	case c.send <- msg:
	default:
		logging.Warn().Uint64("client_id", c.id).Str("type", msg.Type).Msg("client send buffer full, dropping message")
	}
}

// RegisterAdmin subscribes an admin client to the given Display codes.
func (h *Hub) RegisterAdmin(c *Client, adminID string, codes []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.adminID = adminID
	c.watching = make(map[string]bool, len(codes))
	h.adminClients[c] = true
	for _, code := range codes {
		c.watching[code] = true
		if h.subscriptions[code] == nil {
			h.subscriptions[code] = make(map[*Client]bool)
		}
		h.subscriptions[code][c] = true
	}
}

// RegisterDisplay claims the single active session for a Display code.
// Any previously registered session for the same code is displaced
// (spec §4.6: "later sessions displace earlier ones").
func (h *Hub) RegisterDisplay(c *Client, code string) {
	h.mu.Lock()
	prev := h.displaySessions[code]
	h.displaySessions[code] = c
	c.displayCode = code
	h.mu.Unlock()

	if prev != nil && prev != c {
		h.send(prev, Message{Type: MessageTypeDisplaced})
	}
}

// Heartbeat records liveness for a Display. The Machine folds
// videoProgress into the current Block's progress and publishes the
// merged stateDelta through this Hub's sink (spec §4.5, §4.6); no
// separate broadcast is needed here.
func (h *Hub) Heartbeat(ctx context.Context, code string, videoProgress *float64) {
	if err := h.machine.Heartbeat(ctx, code, videoProgress); err != nil {
		logging.Warn().Err(err).Str("display_code", code).Msg("heartbeat failed")
	}
}

// VideoEnded applies the videoEnded transition for a Display.
func (h *Hub) VideoEnded(ctx context.Context, code string) {
	if _, err := h.machine.VideoEnded(ctx, code); err != nil {
		logging.Warn().Err(err).Str("display_code", code).Msg("videoEnded failed")
	}
}

// Unregister removes a disconnected client from all membership state.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.adminClients, c)
	for code := range c.watching {
		if set := h.subscriptions[code]; set != nil {
			delete(set, c)
			if len(set) == 0 {
				delete(h.subscriptions, code)
			}
		}
	}
	if c.displayCode != "" && h.displaySessions[c.displayCode] == c {
		delete(h.displaySessions, c.displayCode)
	}
	close(c.send)
}

// CheckLiveness scans registered Display sessions and broadcasts
// displayStatus to watching admins whenever online/offline state
// changes (spec §4.6: "admins see the transition").
func (h *Hub) CheckLiveness(ctx context.Context) {
	h.mu.RLock()
	codes := make([]string, 0, len(h.subscriptions))
	for code := range h.subscriptions {
		codes = append(codes, code)
	}
	h.mu.RUnlock()
	sort.Strings(codes)

	for _, code := range codes {
		d, err := h.machine.GetDisplay(ctx, code)
		if err != nil {
			continue
		}
		online := h.machine.IsOnline(*d)

		h.mu.Lock()
		changed := h.lastOnline[code] != online
		h.lastOnline[code] = online
		watchers := make([]*Client, 0, len(h.subscriptions[code]))
		for c := range h.subscriptions[code] {
			watchers = append(watchers, c)
		}
		h.mu.Unlock()
		if !changed {
			continue
		}

		sort.Slice(watchers, func(i, j int) bool { return watchers[i].id < watchers[j].id })
		msg := Message{Type: MessageTypeDisplayStatus, Data: DisplayStatusData{Code: code, IsOnline: online}}
		for _, c := range watchers {
			h.send(c, msg)
		}
	}
}

// RunLiveness polls CheckLiveness at the given interval until ctx is
// canceled. Intended to be run as a suture service (spec §4.6: "a
// Display missing 2 consecutive heartbeats is marked offline").
func (h *Hub) RunLiveness(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return ctx.Err()
		case <-ticker.C:
			h.CheckLiveness(ctx)
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.adminClients)+len(h.displaySessions))
	seen := map[*Client]bool{}
	for c := range h.adminClients {
		if !seen[c] {
			clients = append(clients, c)
			seen[c] = true
		}
	}
	for _, c := range h.displaySessions {
		if !seen[c] {
			clients = append(clients, c)
			seen[c] = true
		}
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	for _, c := range clients {
		close(c.send)
	}
	h.adminClients = make(map[*Client]bool)
	h.subscriptions = make(map[string]map[*Client]bool)
	h.displaySessions = make(map[string]*Client)
	logging.Info().Int("clients_closed", len(clients)).Msg("closed all websocket clients during shutdown")
}

// ClientCount reports the number of distinct connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := map[*Client]bool{}
	for c := range h.adminClients {
		seen[c] = true
	}
	for _, c := range h.displaySessions {
		seen[c] = true
	}
	return len(seen)
}

// MarshalMessage converts a message to JSON.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
