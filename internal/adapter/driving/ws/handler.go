// Package ws is the WebSocket driving adapter that feeds live snapshots to
// connected viewers.
package ws

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mkalstad/teamsrelay/internal/application"
)

// Handler upgrades subscription requests and hands each connection to the
// broadcaster as a subscriber.
type Handler struct {
	hub      *application.Broadcaster
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a WebSocket handler publishing from hub. Origins are
// not restricted; the viewer frontend is served from a different host.
func NewHandler(hub *application.Broadcaster, logger *slog.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// RegisterRoutes registers the subscription endpoint on mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /ws/messages", h.Subscribe)
}

// Subscribe upgrades the connection, registers it with the broadcaster
// (which immediately delivers the current snapshot), and then reads and
// discards inbound keep-alives until the peer goes away.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error to the client.
		h.logger.Error("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := newClient(conn)
	h.hub.Register(client)
	h.logger.Info("subscriber connected", "remote", r.RemoteAddr, "subscribers", h.hub.Len())

	go h.readLoop(client, r.RemoteAddr)
}

// readLoop drains inbound messages. Their content is irrelevant; a read
// error is the only disconnect signal the registry relies on.
func (h *Handler) readLoop(c *client, remote string) {
	defer func() {
		h.hub.Unregister(c)
		_ = c.Close()
		h.logger.Info("subscriber disconnected", "remote", remote, "subscribers", h.hub.Len())
	}()

	c.conn.SetReadLimit(maxKeepAliveSize)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
