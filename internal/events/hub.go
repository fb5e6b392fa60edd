package events

import (
	"log/slog"
	"sync"

	"github.com/teledrop/teledrop/internal/metrics"
)

// Conn is the subset of *websocket.Conn the hub needs. Writes to a single
// connection must not interleave, so the hub serialises them per member.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

type member struct {
	conn Conn
	mu   sync.Mutex
}

func (m *member) send(e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn.WriteJSON(e)
}

// Hub fans events out to every connected dashboard session. A failed send
// removes only the failing member; there is no history or replay.
type Hub struct {
	logger  *slog.Logger
	mu      sync.Mutex
	members map[Conn]*member
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		logger:  log.With(slog.String("component", "hub")),
		members: make(map[Conn]*member),
	}
}

// Register adds a connection and sends it the welcome event.
func (h *Hub) Register(conn Conn) {
	m := &member{conn: conn}
	h.mu.Lock()
	h.members[conn] = m
	total := len(h.members)
	h.mu.Unlock()

	metrics.WebsocketConnections.Set(float64(total))
	h.logger.Info("websocket connected", slog.Int("total", total))

	if err := m.send(Welcome()); err != nil {
		h.Unregister(conn)
	}
}

func (h *Hub) Unregister(conn Conn) {
	h.mu.Lock()
	_, ok := h.members[conn]
	delete(h.members, conn)
	total := len(h.members)
	h.mu.Unlock()
	if !ok {
		return
	}

	metrics.WebsocketConnections.Set(float64(total))
	h.logger.Info("websocket disconnected", slog.Int("total", total))
}

// Len reports the number of live connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.members)
}

// Send delivers an event to one connection, dropping it on failure.
func (h *Hub) Send(conn Conn, e Event) {
	h.mu.Lock()
	m, ok := h.members[conn]
	h.mu.Unlock()
	if !ok {
		return
	}
	if err := m.send(e); err != nil {
		h.logger.Warn("send failed", slog.Any("error", err))
		h.Unregister(conn)
	}
}

// Broadcast delivers an event to every member. The member set is snapshotted
// first so connects and disconnects during delivery are safe, and a failure
// on one connection only evicts that connection.
func (h *Hub) Broadcast(e Event) {
	h.mu.Lock()
	snapshot := make([]*member, 0, len(h.members))
	for _, m := range h.members {
		snapshot = append(snapshot, m)
	}
	h.mu.Unlock()

	for _, m := range snapshot {
		if err := m.send(e); err != nil {
			h.logger.Warn("broadcast failed", slog.Any("error", err))
			h.Unregister(m.conn)
		}
	}
}
