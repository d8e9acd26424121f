package websocket

import (
	"context"
	"sync"
	"time"

	"civicconnect/pkg/logger"
)

// Hub is the connection registry. Every client joins its user room and its role
// room on registration and leaves all rooms on unregistration.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Clients organized by user ID; one user may hold several connections
	userClients map[string]map[*Client]bool

	// Clients organized by room name
	roomClients map[string]map[*Client]bool

	// Statistics
	stats HubStats

	mu sync.RWMutex
}

// HubStats contains hub statistics
type HubStats struct {
	Connections int       `json:"connections"`
	OnlineUsers int       `json:"online_users"`
	Rooms       int       `json:"rooms"`
	Delivered   int64     `json:"delivered"`
	Dropped     int64     `json:"dropped"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[string]map[*Client]bool),
		roomClients: make(map[string]map[*Client]bool),
		stats:       HubStats{LastUpdated: time.Now()},
	}
}

// Run logs periodic statistics and disconnects every client when ctx ends.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			stats := h.Stats()
			logger.WithFields(map[string]interface{}{
				"connections":  stats.Connections,
				"online_users": stats.OnlineUsers,
				"rooms":        stats.Rooms,
				"delivered":    stats.Delivered,
				"dropped":      stats.Dropped,
			}).Debug("Hub statistics")
		}
	}
}

// Register adds a client and joins it to its user and role rooms.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	if h.userClients[client.UserID] == nil {
		h.userClients[client.UserID] = make(map[*Client]bool)
	}
	h.userClients[client.UserID][client] = true

	h.joinLocked(client, UserRoom(client.UserID))
	if client.Role != "" {
		h.joinLocked(client, RoleRoom(client.Role))
	}

	h.updateStatsLocked()

	logger.WithFields(map[string]interface{}{
		"user_id":       client.UserID,
		"role":          client.Role,
		"total_clients": len(h.clients),
	}).Info("Client registered")

	client.SendEvent(NewEvent(EventConnected, map[string]interface{}{
		"user_id":     client.UserID,
		"rooms":       client.Rooms(),
		"server_time": time.Now(),
	}))
}

// Unregister removes a client from every room. Unknown clients are ignored.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.removeLocked(client) {
		logger.WithFields(map[string]interface{}{
			"user_id":       client.UserID,
			"total_clients": len(h.clients),
		}).Info("Client unregistered")
	}
}

func (h *Hub) joinLocked(client *Client, room string) {
	if h.roomClients[room] == nil {
		h.roomClients[room] = make(map[*Client]bool)
	}
	h.roomClients[room][client] = true
	client.addRoom(room)
}

// removeLocked drops client from every index and closes its send channel.
func (h *Hub) removeLocked(client *Client) bool {
	if !h.clients[client] {
		return false
	}
	delete(h.clients, client)

	if conns, ok := h.userClients[client.UserID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.userClients, client.UserID)
		}
	}

	for _, room := range client.Rooms() {
		if members, ok := h.roomClients[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.roomClients, room)
			}
		}
	}
	client.clearRooms()

	client.close()
	h.updateStatsLocked()
	return true
}

// EmitToRoom pushes event to every client in room and returns how many received it.
// A client whose buffer is full is disconnected instead of blocking the caller.
func (h *Hub) EmitToRoom(room, event string, payload interface{}) int {
	data, err := NewEvent(event, payload).ToJSON()
	if err != nil {
		logger.WithError(err).WithField("event", event).Error("Failed to marshal event")
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.roomClients[room]
	targets := make([]*Client, 0, len(members))
	for client := range members {
		targets = append(targets, client)
	}
	return h.deliverLocked(targets, data)
}

// EmitToUser pushes event to every connection of userID.
func (h *Hub) EmitToUser(userID, event string, payload interface{}) int {
	return h.EmitToRoom(UserRoom(userID), event, payload)
}

// EmitToRole pushes event to every connection whose role is role.
func (h *Hub) EmitToRole(role, event string, payload interface{}) int {
	return h.EmitToRoom(RoleRoom(role), event, payload)
}

// Broadcast pushes event to every connected client.
func (h *Hub) Broadcast(event string, payload interface{}) int {
	data, err := NewEvent(event, payload).ToJSON()
	if err != nil {
		logger.WithError(err).WithField("event", event).Error("Failed to marshal broadcast event")
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	return h.deliverLocked(targets, data)
}

func (h *Hub) deliverLocked(targets []*Client, data []byte) int {
	delivered := 0
	for _, client := range targets {
		if client.trySend(data) {
			delivered++
			continue
		}
		// Client send buffer is full, remove client
		logger.WithField("user_id", client.UserID).Warn("Dropping slow websocket client")
		h.stats.Dropped++
		h.removeLocked(client)
	}
	h.stats.Delivered += int64(delivered)
	return delivered
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		h.removeLocked(client)
	}
}

// Statistics and monitoring

func (h *Hub) updateStatsLocked() {
	h.stats.Connections = len(h.clients)
	h.stats.OnlineUsers = len(h.userClients)
	h.stats.Rooms = len(h.roomClients)
	h.stats.LastUpdated = time.Now()
}

// Stats returns a snapshot of hub statistics
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

// IsUserOnline checks if a user holds at least one connection
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[userID]) > 0
}

// RoomSize returns the number of clients in room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.roomClients[room])
}
