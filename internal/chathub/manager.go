package chathub

import (
	"sync"

	"resolveflow/backend/internal/config"
	"resolveflow/backend/internal/metrics"
	"resolveflow/backend/internal/models"

	"github.com/rs/zerolog"
)

// UserRoom is the personal room every connection of a user joins.
func UserRoom(userID string) string { return "user:" + userID }

// ComplaintRoom is the chat room of a complaint.
func ComplaintRoom(complaintID string) string { return "complaint:" + complaintID }

// ManagerService is the registry of live connections and their rooms.
//
// Membership changes take the write lock. Fan-out holds the read lock for a
// whole room delivery, so a client that left a room never receives a later
// event for it and a client joining is either fully in or fully out.
type ManagerService struct {
	mu      sync.RWMutex
	clients map[Client]map[string]struct{}
	rooms   map[string]map[Client]struct{}

	log zerolog.Logger
}

func NewManagerService(logger zerolog.Logger) *ManagerService {
	return &ManagerService{
		clients: make(map[Client]map[string]struct{}),
		rooms:   make(map[string]map[Client]struct{}),
		log:     logger.With().Str("component", "hub").Logger(),
	}
}

// Register adds a connection and puts it in its personal room, plus the
// admin room when the identity is an admin.
func (m *ManagerService) Register(c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c]; ok {
		return
	}
	m.clients[c] = make(map[string]struct{})
	m.joinLocked(c, UserRoom(c.GetUserID()))
	if c.GetActor().IsAdmin() {
		m.joinLocked(c, config.AdminRoom)
	}
	metrics.ActiveConnections.Inc()
	m.log.Debug().Str("user", c.GetUserID()).Msg("client registered")
}

// Unregister removes a connection from every room and closes its send
// channel. Calling it again is a no-op.
func (m *ManagerService) Unregister(c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms, ok := m.clients[c]
	if !ok {
		return
	}
	for room := range rooms {
		m.leaveLocked(c, room)
	}
	delete(m.clients, c)
	c.Close()
	metrics.ActiveConnections.Dec()
	m.log.Debug().Str("user", c.GetUserID()).Msg("client unregistered")
}

// Join adds a registered connection to room. It reports false for a
// connection that is not (or no longer) registered.
func (m *ManagerService) Join(c Client, room string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c]; !ok {
		return false
	}
	m.joinLocked(c, room)
	return true
}

// Leave removes the connection from room.
func (m *ManagerService) Leave(c Client, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c]; !ok {
		return
	}
	m.leaveLocked(c, room)
}

func (m *ManagerService) joinLocked(c Client, room string) {
	members := m.rooms[room]
	if members == nil {
		members = make(map[Client]struct{})
		m.rooms[room] = members
	}
	members[c] = struct{}{}
	m.clients[c][room] = struct{}{}
}

func (m *ManagerService) leaveLocked(c Client, room string) {
	if members := m.rooms[room]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(m.rooms, room)
		}
	}
	delete(m.clients[c], room)
}

// Retain removes from room every member keep rejects and returns how many
// were removed.
func (m *ManagerService) Retain(room string, keep func(Client) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for c := range m.rooms[room] {
		if !keep(c) {
			m.leaveLocked(c, room)
			removed++
		}
	}
	return removed
}

// DisconnectUser unregisters every connection of userID and returns how many
// there were.
func (m *ManagerService) DisconnectUser(userID string) int {
	conns := m.Members(UserRoom(userID))
	for _, c := range conns {
		m.Unregister(c)
	}
	if len(conns) > 0 {
		m.log.Info().Str("user", userID).Int("connections", len(conns)).Msg("user disconnected")
	}
	return len(conns)
}

// Emit delivers ev to every member of room and returns how many accepted it.
// Members whose buffer is full are dropped from the registry afterwards.
func (m *ManagerService) Emit(room string, ev models.Event) int {
	m.mu.RLock()
	delivered := 0
	var slow []Client
	for c := range m.rooms[room] {
		if trySend(c, ev) {
			delivered++
		} else {
			slow = append(slow, c)
		}
	}
	m.mu.RUnlock()

	m.dropSlow(slow, ev)
	return delivered
}

// SendTo delivers ev to a single registered connection.
func (m *ManagerService) SendTo(c Client, ev models.Event) bool {
	m.mu.RLock()
	_, ok := m.clients[c]
	sent := ok && trySend(c, ev)
	m.mu.RUnlock()

	if ok && !sent {
		m.dropSlow([]Client{c}, ev)
	}
	return sent
}

func trySend(c Client, ev models.Event) bool {
	select {
	case c.GetSendChannel() <- ev:
		metrics.EventsDelivered.WithLabelValues(string(ev.Type)).Inc()
		return true
	default:
		return false
	}
}

func (m *ManagerService) dropSlow(slow []Client, ev models.Event) {
	for _, c := range slow {
		metrics.EventsDropped.WithLabelValues(string(ev.Type)).Inc()
		m.log.Warn().Str("user", c.GetUserID()).Str("event", string(ev.Type)).Msg("send buffer full, dropping client")
		m.Unregister(c)
	}
}

// Members returns a snapshot of the connections in room.
func (m *ManagerService) Members(room string) []Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Client, 0, len(m.rooms[room]))
	for c := range m.rooms[room] {
		out = append(out, c)
	}
	return out
}

// InRoom reports whether c is currently a member of room.
func (m *ManagerService) InRoom(c Client, room string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rooms[room][c]
	return ok
}

// ClientCount returns the number of registered connections.
func (m *ManagerService) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}
