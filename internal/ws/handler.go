package ws

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/rolodexapp/rolodex-server/internal/id"
	"github.com/rolodexapp/rolodex-server/internal/service"
)

// Handler upgrades authenticated HTTP requests onto the presence channel.
type Handler struct {
	hub      *Hub
	auth     *service.AuthService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates the WebSocket upgrade handler.
func NewHandler(hub *Hub, auth *service.AuthService, logger *slog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		auth:   auth,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API enforces origin policy via CORS; browser WebSocket
			// clients authenticate with a token, so cross-origin upgrades
			// are allowed here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP authenticates the request, upgrades it, and starts the pumps.
// Browsers cannot set headers on WebSocket requests, so the token is also
// accepted as a query parameter.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	user, err := h.auth.VerifyToken(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Warn("presence upgrade failed", "error", err)
		return
	}

	connID, err := id.Generate("conn")
	if err != nil {
		h.logger.Error("failed to generate connection ID", "error", err)
		_ = conn.Close()
		return
	}

	c := &client{
		id:       connID,
		username: user.Username,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		hub:      h.hub,
	}

	h.hub.register(c)

	go c.writePump()
	go c.readPump()
}

// bearerToken extracts the access token from the Authorization header or
// the token query parameter.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if t, ok := strings.CutPrefix(header, "Bearer "); ok {
			return t
		}
	}
	return r.URL.Query().Get("token")
}
