package ws

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
)

// sendTimeout bounds a single outbound write so one stalled peer cannot
// wedge a broadcast or a session's cleanup.
const sendTimeout = 10 * time.Second

// transport is the send side of a client's websocket connection.
type transport interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Client is one joined connection: a username plus its send capability.
// Identity is the Client pointer, not the username — two clients in the
// same room may share a name.
type Client struct {
	Username string
	conn     transport
}

func NewClient(username string, conn transport) *Client {
	return &Client{Username: username, conn: conn}
}

// Send writes one JSON payload, bounded by sendTimeout.
func (c *Client) Send(ctx context.Context, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

// Close closes the connection normally.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

// Accept upgrades HTTP to websocket (allow all origins)
func Accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
}

// readFrame blocks until the next text/binary message.
// Returns false once the connection is closed or errors.
func readFrame(ctx context.Context, conn *websocket.Conn) ([]byte, bool) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return nil, false
		}
		if typ == websocket.MessageText || typ == websocket.MessageBinary {
			return data, true
		}
	}
}
