package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event names pushed to clients
const (
	EventConnected             = "connected"
	EventNotification          = "notification"
	EventAuthorityNotification = "authority_notification"
	EventNewEmergencyComplaint = "new_emergency_complaint"
	EventNewAlert              = "new_alert"
	EventPing                  = "ping"
	EventPong                  = "pong"
	EventError                 = "error"
)

// Room name prefixes
const (
	userRoomPrefix = "user:"
	roleRoomPrefix = "role:"
)

// UserRoom is the room every connection of a user joins.
func UserRoom(userID string) string { return userRoomPrefix + userID }

// RoleRoom is the room every connection of a role joins.
func RoleRoom(role string) string { return roleRoomPrefix + role }

// Event is the frame envelope sent over the socket.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new event with a fresh id
func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// inbound is what clients may send. Only the type matters.
type inbound struct {
	Type string `json:"type"`
}

func parseInbound(data []byte) (*inbound, error) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
