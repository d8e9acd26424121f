package websocket

import (
	"sync"
	"time"

	"civicconnect/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Buffer size for client send channel
	sendBufferSize = 256
)

// Client is one authenticated websocket connection.
type Client struct {
	// WebSocket connection; nil for clients created in tests
	Conn *websocket.Conn

	// Hub that manages this client
	Hub *Hub

	// Buffered channel of outbound frames, closed by the hub on removal
	Send chan []byte

	// Verified identity
	UserID     string
	Role       string
	Department string

	IP          string
	UserAgent   string
	ConnectedAt time.Time

	// ReadLimit caps inbound frame size; zero means maxMessageSize
	ReadLimit int64

	rooms  []string
	closed bool
	mu     sync.Mutex
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, hub *Hub, userID, role string) *Client {
	return &Client{
		Conn:        conn,
		Hub:         hub,
		Send:        make(chan []byte, sendBufferSize),
		UserID:      userID,
		Role:        role,
		ConnectedAt: time.Now(),
	}
}

// Rooms returns the rooms the client is in.
func (c *Client) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.rooms...)
}

func (c *Client) addRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.rooms {
		if r == room {
			return
		}
	}
	c.rooms = append(c.rooms, room)
}

func (c *Client) clearRooms() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms = nil
}

// trySend queues data without blocking. It reports false when the buffer is full or
// the client is already closed.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// SendEvent queues a single event for this client only.
func (c *Client) SendEvent(e *Event) bool {
	data, err := e.ToJSON()
	if err != nil {
		return false
	}
	return c.trySend(data)
}

// ReadPump reads inbound frames until the connection fails. Only ping is understood.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
		c.logDisconnection()
	}()

	limit := c.ReadLimit
	if limit <= 0 {
		limit = maxMessageSize
	}
	c.Conn.SetReadLimit(limit)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c.logConnection()

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WithFields(map[string]interface{}{
					"user_id": c.UserID,
					"error":   err.Error(),
				}).Warn("WebSocket read error")
			}
			break
		}
		c.handleMessage(message)
	}
}

func (c *Client) handleMessage(message []byte) {
	msg, err := parseInbound(message)
	if err != nil {
		c.sendError("Invalid message format")
		return
	}

	switch msg.Type {
	case EventPing:
		c.SendEvent(NewEvent(EventPong, nil))
	default:
		c.sendError("Unsupported message type: " + msg.Type)
	}
}

// WritePump writes queued frames and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per event so clients can parse each as JSON
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendError(message string) {
	c.SendEvent(NewEvent(EventError, map[string]string{"message": message}))
}

func (c *Client) logConnection() {
	logger.LogUserAction(c.UserID, "websocket_connected", map[string]interface{}{
		"ip":         c.IP,
		"user_agent": c.UserAgent,
		"role":       c.Role,
	})
}

func (c *Client) logDisconnection() {
	logger.LogUserAction(c.UserID, "websocket_disconnected", map[string]interface{}{
		"duration": time.Since(c.ConnectedAt).String(),
	})
}
