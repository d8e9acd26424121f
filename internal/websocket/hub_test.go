package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, userID, role string) *Client {
	return NewClient(nil, hub, userID, role)
}

// drain reads every queued frame without blocking.
func drain(t *testing.T, c *Client) []Event {
	t.Helper()
	var events []Event
	for {
		select {
		case data, ok := <-c.Send:
			if !ok {
				return events
			}
			var e Event
			require.NoError(t, json.Unmarshal(data, &e))
			events = append(events, e)
		default:
			return events
		}
	}
}

func eventTypes(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestHub_RegisterJoinsUserAndRoleRooms(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub, "u1", "Authority")
	hub.Register(c)

	assert.ElementsMatch(t, []string{"user:u1", "role:Authority"}, c.Rooms())
	assert.Equal(t, 1, hub.RoomSize(UserRoom("u1")))
	assert.Equal(t, 1, hub.RoomSize(RoleRoom("Authority")))
	assert.True(t, hub.IsUserOnline("u1"))

	events := drain(t, c)
	require.Len(t, events, 1)
	assert.Equal(t, EventConnected, events[0].Type)
	assert.NotEmpty(t, events[0].ID)
}

func TestHub_EmitTargetsRooms(t *testing.T) {
	hub := NewHub()
	citizenA := newTestClient(hub, "a", "Citizen")
	citizenA2 := newTestClient(hub, "a", "Citizen")
	citizenB := newTestClient(hub, "b", "Citizen")
	authority := newTestClient(hub, "x", "Authority")
	for _, c := range []*Client{citizenA, citizenA2, citizenB, authority} {
		hub.Register(c)
		drain(t, c)
	}

	assert.Equal(t, 2, hub.EmitToUser("a", EventNotification, map[string]string{"message": "hi"}))
	assert.Equal(t, 1, hub.EmitToRole("Authority", EventAuthorityNotification, nil))
	assert.Equal(t, 3, hub.EmitToRole("Citizen", EventNewAlert, nil))
	assert.Equal(t, 0, hub.EmitToUser("nobody", EventNotification, nil))
	assert.Equal(t, 4, hub.Broadcast("maintenance", nil))

	assert.Equal(t, []string{EventNotification, EventNewAlert, "maintenance"}, eventTypes(drain(t, citizenA)))
	assert.Equal(t, []string{EventNotification, EventNewAlert, "maintenance"}, eventTypes(drain(t, citizenA2)))
	assert.Equal(t, []string{EventNewAlert, "maintenance"}, eventTypes(drain(t, citizenB)))
	assert.Equal(t, []string{EventAuthorityNotification, "maintenance"}, eventTypes(drain(t, authority)))

	stats := hub.Stats()
	assert.Equal(t, 4, stats.Connections)
	assert.Equal(t, 3, stats.OnlineUsers)
	assert.Equal(t, int64(10), stats.Delivered)
}

func TestHub_UnregisterLeavesRoomsAndDropsEmptyOnes(t *testing.T) {
	hub := NewHub()
	first := newTestClient(hub, "u1", "Citizen")
	second := newTestClient(hub, "u1", "Citizen")
	hub.Register(first)
	hub.Register(second)

	hub.Unregister(first)
	assert.Empty(t, first.Rooms())
	assert.True(t, hub.IsUserOnline("u1"))
	assert.Equal(t, 1, hub.RoomSize(UserRoom("u1")))

	hub.Unregister(second)
	hub.Unregister(second)
	assert.False(t, hub.IsUserOnline("u1"))
	assert.Zero(t, hub.Stats().Rooms)

	assert.True(t, isClosed(second))

	// Reconnect simply rejoins
	again := newTestClient(hub, "u1", "Citizen")
	hub.Register(again)
	assert.Equal(t, 1, hub.EmitToUser("u1", EventNotification, nil))
}

// isClosed discards queued frames and reports whether Send has been closed.
func isClosed(c *Client) bool {
	for {
		select {
		case _, ok := <-c.Send:
			if !ok {
				return true
			}
		default:
			return false
		}
	}
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	slow := newTestClient(hub, "slow", "Citizen")
	fast := newTestClient(hub, "fast", "Citizen")
	hub.Register(slow)
	hub.Register(fast)

	// Registration already queued one frame
	for i := 0; i < sendBufferSize-1; i++ {
		hub.EmitToUser("slow", EventNotification, nil)
	}
	drain(t, fast)

	delivered := hub.EmitToRole("Citizen", EventNewAlert, nil)
	assert.Equal(t, 1, delivered)
	assert.False(t, hub.IsUserOnline("slow"))
	assert.True(t, hub.IsUserOnline("fast"))
	assert.Equal(t, int64(1), hub.Stats().Dropped)

	assert.False(t, slow.SendEvent(NewEvent(EventPong, nil)), "sending to a dropped client is a no-op")
}

func TestClient_HandleMessage(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub, "u1", "Citizen")

	c.handleMessage([]byte(`{"type":"ping"}`))
	c.handleMessage([]byte(`{"type":"chat","content":"hello"}`))
	c.handleMessage([]byte(`not json`))

	events := drain(t, c)
	assert.Equal(t, []string{EventPong, EventError, EventError}, eventTypes(events))
}

func TestHub_RunClosesClientsOnShutdown(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub, "u1", "Citizen")
	hub.Register(c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	assert.Zero(t, hub.Stats().Connections)
}
