package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/F0laf0lu/Chat-API/internal/domain"
)

func (e *testEnv) wsURL(roomID, token string) string {
	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/ws/chat/" + roomID
	if token != "" {
		url += "?token=" + token
	}
	return url
}

func (e *testEnv) dialChat(t *testing.T, roomID, token string) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(e.wsURL(roomID, token), nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForMemberCount(t *testing.T, env *testEnv, key string, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return env.registry.MemberCount(key) == want
	}, 2*time.Second, 10*time.Millisecond, "member count for %q never reached %d", key, want)
}

func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	return frame
}

func TestChatSocket_InvalidRoomID(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "alice")

	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL("not-a-uuid", token), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestChatSocket_AnonymousRejected(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "alice")
	room := createRoom(t, env, token, "Team Chat")

	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL(room.RoomID.String(), ""), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// A rejected connect leaves no trace in the registry
	assert.Equal(t, 0, env.registry.MemberCount(domain.BroadcastKey("Team Chat")))
}

func TestChatSocket_UnknownRoomRejected(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "alice")

	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL(uuid.NewString(), token), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestChatSocket_MessageFlow(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.createUser(t, "alice")
	_, bobToken := env.createUser(t, "bob")
	room := createRoom(t, env, aliceToken, "Team Chat")
	key := domain.BroadcastKey("Team Chat")

	aliceConn := env.dialChat(t, room.RoomID.String(), aliceToken)
	bobConn := env.dialChat(t, room.RoomID.String(), bobToken)
	waitForMemberCount(t, env, key, 2)

	resp := env.request(t, http.MethodPost, "/api/rooms/"+room.RoomID.String()+"/chat", aliceToken,
		map[string]string{"content": "hello everyone"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		frame := readFrame(t, conn)

		var envelope struct {
			Message struct {
				Type      string `json:"type"`
				Message   string `json:"message"`
				MessageID int64  `json:"message_id"`
				User      string `json:"user"`
				RoomName  string `json:"room_name"`
			} `json:"message"`
		}
		require.NoError(t, json.Unmarshal(frame, &envelope))
		assert.Equal(t, "chat_message", envelope.Message.Type)
		assert.Equal(t, "Message with id 1 was created!", envelope.Message.Message)
		assert.Equal(t, int64(1), envelope.Message.MessageID)
		assert.Equal(t, "alice", envelope.Message.User)
		assert.Equal(t, "Team Chat", envelope.Message.RoomName)
	}
}

func TestChatSocket_PresenceFlow(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "alice")
	room := createRoom(t, env, token, "Team Chat")
	key := domain.BroadcastKey("Team Chat")

	conn := env.dialChat(t, room.RoomID.String(), token)
	waitForMemberCount(t, env, key, 1)

	resp := env.request(t, http.MethodGet, "/api/rooms/"+room.RoomID.String()+"/chat", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	frame := readFrame(t, conn)
	assert.JSONEq(t, `{"message": "alice joined chat"}`, string(frame))
}

func TestChatSocket_UnknownInboundTypeIgnored(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "alice")
	room := createRoom(t, env, token, "Team Chat")
	key := domain.BroadcastKey("Team Chat")

	conn := env.dialChat(t, room.RoomID.String(), token)
	waitForMemberCount(t, env, key, 1)

	// Neither an unknown type nor malformed JSON may kill the connection
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{not json`)))

	resp := env.request(t, http.MethodGet, "/api/rooms/"+room.RoomID.String()+"/chat", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	frame := readFrame(t, conn)
	assert.JSONEq(t, `{"message": "alice joined chat"}`, string(frame))
}

func TestChatSocket_HeartbeatAccepted(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "alice")
	room := createRoom(t, env, token, "Team Chat")
	key := domain.BroadcastKey("Team Chat")

	conn := env.dialChat(t, room.RoomID.String(), token)
	waitForMemberCount(t, env, key, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`)))

	// Connection stays subscribed after the heartbeat
	resp := env.request(t, http.MethodGet, "/api/rooms/"+room.RoomID.String()+"/chat", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	readFrame(t, conn)
}

func TestChatSocket_DisconnectUnsubscribes(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "alice")
	room := createRoom(t, env, token, "Team Chat")
	key := domain.BroadcastKey("Team Chat")

	conn := env.dialChat(t, room.RoomID.String(), token)
	waitForMemberCount(t, env, key, 1)

	require.NoError(t, conn.Close())
	waitForMemberCount(t, env, key, 0)
}

func TestChatSocket_PerIPConnectionLimit(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "alice")
	room := createRoom(t, env, token, "Team Chat")
	key := domain.BroadcastKey("Team Chat")

	// Fill the per-IP budget for the test client's address
	for i := 0; i < 50; i++ {
		env.dialChat(t, room.RoomID.String(), token)
	}
	waitForMemberCount(t, env, key, 50)

	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL(room.RoomID.String(), token), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()
}
