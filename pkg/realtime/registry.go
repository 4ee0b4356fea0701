package realtime

import (
	"log/slog"
	"sync"
)

// Registry tracks which connections are members of which rooms. A room is
// identified by the id of the request document being edited; its member set
// is created lazily on first join and removed when the last member leaves.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{rooms: map[string]map[*Client]struct{}{}}
}

// Join adds the connection to the room's member set. Joining a room twice is
// equivalent to joining it once.
func (r *Registry) Join(c *Client, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[roomID]
	if !ok {
		members = map[*Client]struct{}{}
		r.rooms[roomID] = members
	}
	members[c] = struct{}{}
}

// Leave removes the connection from the room. Leaving a room the connection
// is not a member of, or that does not exist, is a no-op.
func (r *Registry) Leave(c *Client, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(c, roomID)
}

// Drop removes the connection from every room it is a member of. Called on
// disconnect so no dangling membership survives the socket.
func (r *Registry) Drop(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for roomID := range r.rooms {
		r.removeLocked(c, roomID)
	}
}

func (r *Registry) removeLocked(c *Client, roomID string) {
	members, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
}

// Broadcast delivers msg to every current member of the room except the
// sender (nil to include everyone). Delivery is best-effort: a client whose
// send queue is full just misses the message, and nothing here blocks on
// socket I/O.
func (r *Registry) Broadcast(roomID string, msg []byte, except *Client) {
	r.mu.RLock()
	members := make([]*Client, 0, len(r.rooms[roomID]))
	for c := range r.rooms[roomID] {
		if c != except {
			members = append(members, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range members {
		if !c.enqueue(msg) {
			slog.Warn("dropping message for slow client", "room", roomID)
		}
	}
}
