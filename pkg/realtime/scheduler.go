package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

const saveTimeout = 5 * time.Second

// SaveFunc applies one field update to the durable request record.
type SaveFunc func(ctx context.Context, roomID, field string, value json.RawMessage) error

// NotifyFunc informs a room about the outcome of a durable write.
type NotifyFunc func(roomID, status string)

// Scheduler coalesces bursts of edits into single durable writes. Each room
// holds at most one pending payload and one live timer: a new edit within
// the quiet window replaces both, so only the most recent edit ever reaches
// the store. Last-write-wins applies across fields as well: the live
// broadcast path has per-edit fidelity, persistence does not.
type Scheduler struct {
	window time.Duration
	save   SaveFunc
	notify NotifyFunc

	mu      sync.Mutex
	pending map[string]*pendingWrite
}

type pendingWrite struct {
	field string
	value json.RawMessage
	timer *time.Timer
}

func NewScheduler(window time.Duration, save SaveFunc, notify NotifyFunc) *Scheduler {
	return &Scheduler{
		window:  window,
		save:    save,
		notify:  notify,
		pending: map[string]*pendingWrite{},
	}
}

// Schedule stages (field, value) as the room's pending payload and restarts
// its quiet-window timer. Any previously staged payload is discarded, never
// flushed early.
func (s *Scheduler) Schedule(roomID, field string, value json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.pending[roomID]; ok {
		prev.timer.Stop()
	}
	p := &pendingWrite{field: field, value: value}
	p.timer = time.AfterFunc(s.window, func() { s.flush(roomID, p) })
	s.pending[roomID] = p
}

// Stop cancels every pending timer without flushing. Staged payloads are
// lost, which matches shutdown semantics: nothing was promised durable yet.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for roomID, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, roomID)
	}
}

func (s *Scheduler) flush(roomID string, p *pendingWrite) {
	s.mu.Lock()
	// Stop races the firing timer: if the entry was replaced between this
	// callback starting and the lock being acquired, the newer edit owns the
	// room and this payload is stale.
	if s.pending[roomID] != p {
		s.mu.Unlock()
		return
	}
	delete(s.pending, roomID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.save(ctx, roomID, p.field, p.value); err != nil {
		slog.Error("failed to persist edit", "room", roomID, "field", p.field, "err", err)
		s.notify(roomID, StatusError)
		return
	}
	s.notify(roomID, StatusSaved)
}

// SaveStatusNotifier returns a NotifyFunc that broadcasts a SAVE_STATUS
// envelope to the whole room, originator included.
func SaveStatusNotifier(registry *Registry) NotifyFunc {
	return func(roomID, status string) {
		msg, err := json.Marshal(Envelope{Type: TypeSaveStatus, Status: status})
		if err != nil {
			slog.Error("failed to encode save status", "err", err)
			return
		}
		registry.Broadcast(roomID, msg, nil)
	}
}
