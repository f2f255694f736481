// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package websocket

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/playlistd/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// clientIDCounter generates unique, monotonically increasing IDs for
// clients, used for deterministic broadcast ordering.
var clientIDCounter atomic.Uint64

// Client is one realtime channel connection: either an admin watching
// a set of Display codes, or the single active session for one
// Display (spec §4.6, §6.2).
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan Message

	adminID     string
	watching    map[string]bool
	displayCode string
}

// NewClient creates a new Client with a unique deterministic ID.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		conn: conn,
		send: make(chan Message, 256),
	}
}

// ID returns the client's unique identifier for deterministic ordering.
func (c *Client) ID() uint64 { return c.id }

// clientMessage is the envelope for client→server payloads whose Data
// shape depends on Type (spec §6.2).
type clientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type registerAdminData struct {
	AdminID  string   `json:"adminId"`
	Displays []string `json:"displays"`
}

type registerDisplayData struct {
	Code string `json:"code"`
}

type heartbeatData struct {
	Code          string   `json:"code"`
	VideoProgress *float64 `json:"videoProgress,omitempty"`
}

type videoEndedData struct {
	Code string `json:"code"`
}

// readPump pumps client→server messages from the connection to the Hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			break
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg clientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch msg.Type {
	case MessageTypeRegisterAdmin:
		var d registerAdminData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			logging.Warn().Err(err).Msg("malformed registerAdmin message")
			return
		}
		c.hub.RegisterAdmin(c, d.AdminID, d.Displays)

	case MessageTypeRegisterDisplay:
		var d registerDisplayData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			logging.Warn().Err(err).Msg("malformed registerDisplay message")
			return
		}
		c.hub.RegisterDisplay(c, d.Code)

	case MessageTypeHeartbeat:
		var d heartbeatData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			logging.Warn().Err(err).Msg("malformed heartbeat message")
			return
		}
		c.hub.Heartbeat(ctx, d.Code, d.VideoProgress)

	case MessageTypeVideoEnded:
		var d videoEndedData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			logging.Warn().Err(err).Msg("malformed videoEnded message")
			return
		}
		c.hub.VideoEnded(ctx, d.Code)

	case MessageTypePing:
		select {
		case c.send <- Message{Type: MessageTypePong}:
		default:
		}

	default:
		logging.Warn().Str("type", msg.Type).Msg("unknown realtime channel message type")
	}
}

// writePump pumps server→client messages from the Hub to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Error().Err(err).Msg("failed to write close message")
				}
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				logging.Error().Err(err).Msg("failed to write JSON message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
