package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"civicconnect/internal/models"
	"civicconnect/internal/websocket"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
}

func readEvent(t *testing.T, conn *gorilla.Conn) websocket.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var e websocket.Event
	require.NoError(t, conn.ReadJSON(&e))
	return e
}

func TestWebSocket_RejectsMissingOrInvalidToken(t *testing.T) {
	s := newTestServer(t, 1<<20)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	for _, query := range []string{"", "?token=not-a-jwt"} {
		conn, resp, err := gorilla.DefaultDialer.Dial(wsURL(srv, query), nil)
		if conn != nil {
			conn.Close()
		}
		require.ErrorIs(t, err, gorilla.ErrBadHandshake)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	assert.Zero(t, s.hub.Stats().Connections)
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	s := newTestServer(t, 1<<20)
	srv := httptest.NewServer(s.router)
	defer srv.Close()
	token, _ := s.login(t, "citizen", models.RoleCitizen, "")

	header := http.Header{"Origin": []string{"http://evil.example"}}
	conn, resp, err := gorilla.DefaultDialer.Dial(wsURL(srv, "?token="+token), header)
	if conn != nil {
		conn.Close()
	}
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocket_ConnectPingAndPush(t *testing.T) {
	s := newTestServer(t, 1<<20)
	srv := httptest.NewServer(s.router)
	defer srv.Close()
	token, user := s.login(t, "water", models.RoleAuthority, models.CategoryWater)

	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, _, err := gorilla.DefaultDialer.Dial(wsURL(srv, ""), header)
	require.NoError(t, err)
	defer conn.Close()

	connected := readEvent(t, conn)
	assert.Equal(t, websocket.EventConnected, connected.Type)
	assert.True(t, s.hub.IsUserOnline(user.ID.Hex()))
	assert.Equal(t, 1, s.hub.RoomSize(websocket.RoleRoom(models.RoleAuthority)))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": websocket.EventPing}))
	assert.Equal(t, websocket.EventPong, readEvent(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "join_room"}))
	assert.Equal(t, websocket.EventError, readEvent(t, conn).Type)

	delivered := s.hub.EmitToRole(models.RoleAuthority, websocket.EventNewEmergencyComplaint, map[string]string{"complaintId": "CMP-TEST0001"})
	assert.Equal(t, 1, delivered)

	pushed := readEvent(t, conn)
	assert.Equal(t, websocket.EventNewEmergencyComplaint, pushed.Type)
	assert.Equal(t, map[string]interface{}{"complaintId": "CMP-TEST0001"}, pushed.Data)
}
