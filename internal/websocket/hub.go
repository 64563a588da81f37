package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Entities announced over the sync channel.
const (
	EntityMember       = "member"
	EntityCheckIn      = "checkin"
	EntityActivity     = "activity"
	EntityRelationship = "relationship"
	EntityJournal      = "journal"
	EntityChat         = "chat"
	EntityReaction     = "reaction"
	EntityNudge        = "nudge"
	EntityChallenge    = "challenge"
	EntityHelpRequest  = "help_request"
	EntityCrisis       = "crisis"
)

// Event tells clients that an entity changed so they can refetch or patch
// local state. Data carries the changed record when it is small.
type Event struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
	Action string `json:"action"`
	ID     int64  `json:"id,omitempty"`
	Data   any    `json:"data,omitempty"`
}

func NewEvent(entity, action string, id int64, data any) Event {
	return Event{
		Type:   entity + "." + action,
		Entity: entity,
		Action: action,
		ID:     id,
		Data:   data,
	}
}

// Hub tracks connected clients and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	dropped atomic.Int64
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.With("component", "websocket"),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client connected", "user_id", c.userID, "clients", n)
}

// Unregister removes c and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		h.logger.Debug("client disconnected", "user_id", c.userID)
	}
}

// Broadcast sends ev to every client.
func (h *Hub) Broadcast(ev Event) {
	h.send(ev, func(*Client) bool { return true })
}

// SendToMembers sends ev only to clients signed in as one of memberIDs.
func (h *Hub) SendToMembers(ev Event, memberIDs ...int64) {
	want := make(map[int64]bool, len(memberIDs))
	for _, id := range memberIDs {
		want[id] = true
	}
	h.send(ev, func(c *Client) bool { return want[c.memberID] })
}

// BroadcastExcept sends ev to every client not signed in as memberID.
func (h *Hub) BroadcastExcept(ev Event, memberID int64) {
	h.send(ev, func(c *Client) bool { return c.memberID != memberID })
}

// SendWhere sends ev to clients whose member passes allow.
func (h *Hub) SendWhere(ev Event, allow func(memberID int64) bool) {
	h.send(ev, func(c *Client) bool { return allow(c.memberID) })
}

func (h *Hub) send(ev Event, match func(*Client) bool) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "type", ev.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !match(c) {
			continue
		}
		select {
		case c.send <- data:
		default:
			// slow client; it refetches on reconnect
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many events were discarded for full client buffers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
