// Package dispatch fans room notifications out to websocket observers.
//
// Clients connect, then send {"action":"join","room":"..."} or
// {"action":"leave","room":"..."}. Every Publish to a room is pushed to the
// sockets currently joined as {"room":"...","message":"..."}. Delivery is
// at-most-once with no acknowledgment; a socket that fails a write is dropped.
package dispatch

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/transfer-booking/internal/observability"
)

const writeWait = 5 * time.Second

type Message struct {
	Room    string `json:"room"`
	Message string `json:"message"`
}

type controlMessage struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

// session is one connected socket. Writes are serialized per connection.
type session struct {
	conn  *websocket.Conn
	mu    sync.Mutex
	rooms map[string]struct{}
}

func (s *session) send(m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(m)
}

type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*session]struct{}
	sessions map[*session]struct{}
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:    make(map[string]map[*session]struct{}),
		sessions: make(map[*session]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the request and reads join/leave messages until the
// socket closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	s := &session{conn: conn, rooms: make(map[string]struct{})}
	h.add(s)
	defer h.remove(s)

	for {
		var msg controlMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", "err", err)
			}
			return
		}
		switch msg.Action {
		case "join":
			h.join(s, msg.Room)
		case "leave":
			h.leave(s, msg.Room)
		}
	}
}

func (h *Hub) add(s *session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
	observability.WSClients.Inc()
}

func (h *Hub) remove(s *session) {
	h.mu.Lock()
	if _, ok := h.sessions[s]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s)
	for room := range s.rooms {
		h.detach(s, room)
	}
	h.mu.Unlock()
	observability.WSClients.Dec()
	s.conn.Close()
}

func (h *Hub) join(s *session, room string) {
	if room == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*session]struct{})
		h.rooms[room] = members
	}
	members[s] = struct{}{}
	s.rooms[room] = struct{}{}
}

func (h *Hub) leave(s *session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detach(s, room)
}

// detach requires h.mu held.
func (h *Hub) detach(s *session, room string) {
	delete(s.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Publish pushes message to every socket joined to room. It never fails;
// the error return satisfies the notifier interfaces of the publishers.
func (h *Hub) Publish(ctx context.Context, room, message string) error {
	h.Deliver(room, message)
	return nil
}

// Deliver is Publish without a context, used by the Redis relay.
func (h *Hub) Deliver(room, message string) int {
	h.mu.RLock()
	targets := make([]*session, 0, len(h.rooms[room]))
	for s := range h.rooms[room] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	observability.NotificationsTotal.WithLabelValues(room).Inc()
	sent := 0
	for _, s := range targets {
		if err := s.send(Message{Room: room, Message: message}); err != nil {
			h.logger.Debug("dropping websocket after failed write", "room", room, "err", err)
			h.remove(s)
			continue
		}
		sent++
	}
	return sent
}

// RoomSize reports how many sockets are joined to room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
