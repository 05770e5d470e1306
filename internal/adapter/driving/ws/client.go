package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mkalstad/teamsrelay/internal/application"
	"github.com/mkalstad/teamsrelay/internal/domain/model"
)

const (
	// writeTimeout bounds a single snapshot delivery; a peer that cannot
	// accept a frame within it is treated as gone.
	writeTimeout = 10 * time.Second

	// maxKeepAliveSize caps inbound frames. Subscribers only ever send
	// keep-alives, so anything large is misbehaving.
	maxKeepAliveSize = 512
)

// Compile-time interface satisfaction check.
var _ application.Subscriber = (*client)(nil)

// client adapts one gorilla connection to the broadcaster's Subscriber
// interface. Writes are serialized by a mutex; the broadcaster and the
// catch-up send may run from different goroutines over the connection's
// lifetime.
type client struct {
	conn *websocket.Conn

	mu sync.Mutex
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn}
}

// Send delivers a snapshot as a JSON array of messages. An empty snapshot
// encodes as [] rather than null.
func (c *client) Send(snapshot model.Snapshot) error {
	payload := make([]messagePayload, 0, len(snapshot))
	for _, msg := range snapshot {
		payload = append(payload, toMessagePayload(msg))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(payload)
}

// Close closes the underlying connection. Safe to call more than once;
// subsequent closes return the connection's close error.
func (c *client) Close() error {
	return c.conn.Close()
}

// messagePayload is the wire shape of one message in a snapshot frame.
type messagePayload struct {
	ID              string `json:"id"`
	Sender          string `json:"sender"`
	Body            string `json:"body"`
	BodyContentType string `json:"body_content_type"`
	CreatedAt       string `json:"created_at"`
}

func toMessagePayload(msg model.Message) messagePayload {
	return messagePayload{
		ID:              msg.ID,
		Sender:          msg.Sender,
		Body:            msg.Body,
		BodyContentType: msg.BodyContentType,
		CreatedAt:       msg.CreatedAt.UTC().Format(time.RFC3339),
	}
}
