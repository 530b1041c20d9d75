// Package ws is the live presence channel: a WebSocket hub that owns the
// editing-claim tracker and broadcasts every claim transition to all
// connected clients.
package ws

import (
	"encoding/json/v2"
	"log/slog"
	"sync"

	"github.com/rolodexapp/rolodex-server/internal/presence"
)

// Frame types on the wire.
const (
	frameEditingStatusChanged = "editingStatusChanged"
	framePresenceSnapshot     = "presenceSnapshot"
	frameStartEditing         = "startEditing"
	frameStopEditing          = "stopEditing"
)

// inboundFrame is a client request. Only the frame type and contact ID
// are read; the editor's identity always comes from the authenticated
// connection, so a client cannot claim contacts under someone else's name.
type inboundFrame struct {
	Type      string `json:"type"`
	ContactID string `json:"contactId"`
}

// statusFrame announces one editing-claim transition.
type statusFrame struct {
	Type      string `json:"type"`
	ContactID string `json:"contactId"`
	IsEditing bool   `json:"isEditing"`
	Username  string `json:"username,omitempty"`
}

// snapshotFrame carries the full claim table to a newly connected client.
type snapshotFrame struct {
	Type    string                    `json:"type"`
	Editing map[string]presence.Claim `json:"editing"`
}

// Hub tracks connected clients and fans presence events out to them.
// It owns the claim tracker; both live exactly as long as the server.
type Hub struct {
	tracker *presence.Tracker
	logger  *slog.Logger

	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub creates a hub with an empty claim tracker.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		tracker: presence.NewTracker(),
		logger:  logger,
		clients: make(map[string]*client),
	}
}

// Tracker exposes the hub's claim registry, mainly for the presence
// snapshot and tests.
func (h *Hub) Tracker() *presence.Tracker {
	return h.tracker
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// register adds a client and sends it the current claim snapshot so late
// joiners converge with clients that watched the transitions live.
func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	h.send(c, snapshotFrame{
		Type:    framePresenceSnapshot,
		Editing: h.tracker.Snapshot(),
	})

	h.logger.Info("presence client connected",
		"client_id", c.id,
		"username", c.username,
		"total_clients", total,
	)
}

// unregister removes a client and reaps every claim it held, announcing
// each released contact.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	total := len(h.clients)
	h.mu.Unlock()

	close(c.send)

	for _, ev := range h.tracker.Disconnect(c.id) {
		h.broadcastEvent(ev)
	}

	h.logger.Info("presence client disconnected",
		"client_id", c.id,
		"username", c.username,
		"total_clients", total,
	)
}

// handleMessage processes one inbound frame. Malformed frames and unknown
// types are dropped; the presence protocol has no error response path.
func (h *Hub) handleMessage(c *client, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.logger.Debug("dropping malformed presence frame",
			"client_id", c.id,
			"error", err,
		)
		return
	}
	if frame.ContactID == "" {
		return
	}

	switch frame.Type {
	case frameStartEditing:
		h.broadcastEvent(h.tracker.StartEditing(frame.ContactID, c.id, c.username))
	case frameStopEditing:
		h.broadcastEvent(h.tracker.StopEditing(frame.ContactID))
	default:
		h.logger.Debug("dropping unknown presence frame type",
			"client_id", c.id,
			"type", frame.Type,
		)
	}
}

// broadcastEvent announces a single claim transition to every client,
// including the one that caused it. Transitions are never batched.
func (h *Hub) broadcastEvent(ev presence.Event) {
	h.broadcast(statusFrame{
		Type:      frameEditingStatusChanged,
		ContactID: ev.ContactID,
		IsEditing: ev.IsEditing,
		Username:  ev.Username,
	})
}

// broadcast marshals the frame once and delivers it to every client with
// a non-blocking send, dropping frames for clients that can't keep up.
func (h *Hub) broadcast(frame any) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("failed to marshal presence frame", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropped presence frame for slow client",
				"client_id", c.id,
			)
		}
	}
}

// send delivers a frame to a single client, non-blocking.
func (h *Hub) send(c *client, frame any) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("failed to marshal presence frame", "error", err)
		return
	}

	select {
	case c.send <- data:
	default:
		h.logger.Warn("dropped presence frame for slow client", "client_id", c.id)
	}
}

// Shutdown disconnects every client. New connections are the handler's
// concern; the server stops accepting them before calling this.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
}
