package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Handler upgrades /ws requests and dispatches inbound envelopes. Edits fan
// out on two causally parallel branches: an immediate broadcast to room
// peers and a deferred, debounced persistence. Neither waits on the other.
type Handler struct {
	registry  *Registry
	scheduler *Scheduler
	upgrader  websocket.Upgrader
}

func NewHandler(registry *Registry, scheduler *Scheduler) *Handler {
	return &Handler{
		registry:  registry,
		scheduler: scheduler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser client is served from a different origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade", "err", err)
		return
	}
	c := newClient(conn)
	go c.writePump()
	c.readPump(h)
}

func (h *Handler) dispatch(c *Client, env Envelope) {
	if env.RoomID == "" {
		slog.Warn("discarding message without room id", "type", env.Type)
		return
	}
	switch env.Type {
	case TypeJoinRoom:
		h.registry.Join(c, env.RoomID)
	case TypeLeaveRoom:
		h.registry.Leave(c, env.RoomID)
	case TypeUpdateRequest:
		out, err := json.Marshal(Envelope{Type: TypeRequestUpdated, Field: env.Field, Value: env.Value})
		if err != nil {
			slog.Error("failed to encode update", "err", err)
			return
		}
		h.registry.Broadcast(env.RoomID, out, c)
		h.scheduler.Schedule(env.RoomID, env.Field, env.Value)
	default:
		slog.Warn("discarding message with unknown type", "type", env.Type)
	}
}
