// Package realtime implements the collaborative editing channel: room
// membership, fan-out of field edits to peers, and the debounced persistence
// path that turns bursts of edits into single durable writes.
package realtime

import "encoding/json"

// Message types exchanged over the websocket. JOIN_ROOM, LEAVE_ROOM and
// UPDATE_REQUEST travel client to server; REQUEST_UPDATED and SAVE_STATUS
// travel server to room.
const (
	TypeJoinRoom       = "JOIN_ROOM"
	TypeLeaveRoom      = "LEAVE_ROOM"
	TypeUpdateRequest  = "UPDATE_REQUEST"
	TypeRequestUpdated = "REQUEST_UPDATED"
	TypeSaveStatus     = "SAVE_STATUS"
)

// Save statuses emitted to a room after a debounced write resolves.
// "saving" never appears here: it is client-local optimistic state shown the
// moment the user types.
const (
	StatusSaved = "saved"
	StatusError = "error"
)

// Envelope is the single frame shape used in both directions. Value is kept
// raw: the broadcast path relays it untouched and only the persistence layer
// interprets it per field.
type Envelope struct {
	Type   string          `json:"type"`
	RoomID string          `json:"roomId,omitempty"`
	Field  string          `json:"field,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
	Status string          `json:"status,omitempty"`
}
