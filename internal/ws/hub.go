package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/beachhouses/CuppaChat-KDJK/pkg/metrics"
)

// Hub is the room registry and broadcast engine. All membership is held in
// memory; a restart forgets everything.
type Hub struct {
	log *slog.Logger
	now func() time.Time

	mu    sync.RWMutex
	rooms map[string]*Room // active rooms by name, never empty while present
}

// NewHub sets up an empty registry
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{log: logger, now: time.Now, rooms: map[string]*Room{}}
}

// room returns the Room for name, creating it if needed
func (h *Hub) room(name string) *Room {
	h.mu.RLock()
	rm := h.rooms[name]
	h.mu.RUnlock()
	if rm != nil {
		return rm
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if rm = h.rooms[name]; rm == nil {
		rm = newRoom(name)
		h.rooms[name] = rm
		metrics.ActiveRooms.Inc()
	}
	return rm
}

// drop deletes a closed room, unless the map already holds a replacement.
func (h *Hub) drop(name string, rm *Room) {
	h.mu.Lock()
	if h.rooms[name] == rm {
		delete(h.rooms, name)
		metrics.ActiveRooms.Dec()
	}
	h.mu.Unlock()
}

// Join registers c into the named room, creating the room on first join.
func (h *Hub) Join(name string, c *Client) {
	for {
		rm := h.room(name)
		if rm.add(c) {
			metrics.ActiveConnections.Inc()
			return
		}
		// Lost a race with the last leave: the room closed between lookup
		// and add. Drop the corpse and retry with a fresh one.
		h.drop(name, rm)
	}
}

// Leave removes c from the named room; the last leave drops the room from
// the registry. Reports whether c was actually removed, so a leave for an
// already-gone client is a no-op.
func (h *Hub) Leave(name string, c *Client) bool {
	h.mu.RLock()
	rm := h.rooms[name]
	h.mu.RUnlock()
	if rm == nil {
		return false
	}

	removed, emptied := rm.remove(c)
	if removed {
		metrics.ActiveConnections.Dec()
	}
	if emptied {
		h.drop(name, rm)
	}
	return removed
}

// Usernames returns the roster of the named room in join order, or an empty
// list for a room that does not exist.
func (h *Hub) Usernames(name string) []string {
	h.mu.RLock()
	rm := h.rooms[name]
	h.mu.RUnlock()
	if rm == nil {
		return []string{}
	}
	return rm.usernames()
}

// Broadcast delivers event to every current member of the named room. Each
// send is attempted in isolation: a failure evicts that member and closes
// its connection, and delivery to the rest continues. Nothing propagates to
// the caller.
func (h *Hub) Broadcast(ctx context.Context, name string, event any) {
	h.mu.RLock()
	rm := h.rooms[name]
	h.mu.RUnlock()
	if rm == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("broadcast.marshal", "room", name, "err", err)
		return
	}

	for _, c := range rm.snapshot() {
		if err := c.Send(ctx, payload); err != nil {
			// The only signal a peer died without a clean close is a
			// failed send; one failure is terminal for that member.
			h.log.Warn("broadcast.evict", "room", name, "username", c.Username, "err", err)
			metrics.BroadcastFailures.Inc()
			h.Leave(name, c)
			_ = c.Close()
		}
	}
}

// ServeWS runs one client session: handshake, join, read loop, cleanup.
// Route shape: /ws/{room}/{username}.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("room")
	username := r.PathValue("username")
	if room == "" || username == "" {
		http.Error(w, "room and username required", http.StatusBadRequest)
		return
	}

	conn, err := Accept(w, r)
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}

	ctx := r.Context()
	c := NewClient(username, conn)

	h.Join(room, c)
	h.log.Info("ws.join", "room", room, "username", username)
	h.Broadcast(ctx, room, newUserlistEvent(h.Usernames(room)))
	h.Broadcast(ctx, room, newSystemEvent(fmt.Sprintf("%s bergabung ke grup", username), h.now()))

	// Cleanup runs exactly once per session, whether the read loop ends by
	// clean close or by error, and on a fresh context so it still finishes
	// after the request context is cancelled.
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()
			h.Leave(room, c)
			h.log.Info("ws.leave", "room", room, "username", username)
			h.Broadcast(ctx, room, newSystemEvent(fmt.Sprintf("%s keluar dari grup", username), h.now()))
			h.Broadcast(ctx, room, newUserlistEvent(h.Usernames(room)))
		})
	}
	defer func() { _ = c.Close() }()
	defer cleanup()

	for {
		data, ok := readFrame(ctx, conn)
		if !ok {
			return
		}

		var in inboundEvent
		if err := json.Unmarshal(data, &in); err != nil {
			// Undecodable frames are dropped; the session stays up.
			h.log.Debug("ws.decode", "room", room, "username", username, "err", err)
			continue
		}

		switch in.Type {
		case "chat":
			text := strings.TrimSpace(in.Message)
			if text == "" {
				continue
			}
			metrics.EventsTotal.WithLabelValues("chat").Inc()
			h.Broadcast(ctx, room, newChatEvent(username, text, h.now()))
		case "file":
			metrics.EventsTotal.WithLabelValues("file").Inc()
			h.Broadcast(ctx, room, newFileEvent(username, in.URL, in.Filename, in.Mimetype, h.now()))
		default:
			// Unknown kinds are ignored, so newer clients can speak to
			// older servers.
		}
	}
}
