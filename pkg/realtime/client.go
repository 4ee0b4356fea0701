package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

const sendQueueSize = 32

// Client is one live websocket session. Reads happen on the connection's
// read loop; writes go through a buffered queue drained by a single writer
// goroutine so that broadcasts from any room never interleave frames.
type Client struct {
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{conn: conn, send: make(chan []byte, sendQueueSize)}
}

// enqueue hands a message to the writer goroutine without blocking. Returns
// false if the queue is full or already closed.
func (c *Client) enqueue(msg []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			slog.Error("failed to write message", "err", err)
			return
		}
	}
}

// readPump consumes frames until the connection errors, dispatching each
// envelope to the handler. On exit the client is dropped from every room and
// its writer is shut down.
func (c *Client) readPump(h *Handler) {
	defer func() {
		h.registry.Drop(c)
		c.closeOnce.Do(func() { close(c.send) })
		_ = c.conn.Close()
	}()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Error("failed to read message", "err", err)
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			slog.Warn("discarding malformed message", "err", err)
			continue
		}
		h.dispatch(c, env)
	}
}
