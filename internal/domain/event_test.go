package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageEvent_FrameShape(t *testing.T) {
	event := NewMessageEvent(7, "alice", "Team Chat")
	assert.Equal(t, EventKindMessage, event.Kind())

	var frame map[string]map[string]any
	require.NoError(t, json.Unmarshal(event.Frame(), &frame))

	msg := frame["message"]
	require.NotNil(t, msg)
	assert.Equal(t, "chat_message", msg["type"])
	assert.Equal(t, "Message with id 7 was created!", msg["message"])
	assert.Equal(t, float64(7), msg["message_id"])
	assert.Equal(t, "alice", msg["user"])
	assert.Equal(t, "Team Chat", msg["room_name"])
}

func TestNewPresenceEvent_FrameShape(t *testing.T) {
	event := NewPresenceEvent("alice joined chat")
	assert.Equal(t, EventKindPresence, event.Kind())
	assert.JSONEq(t, `{"message":"alice joined chat"}`, string(event.Frame()))
}

func TestEvent_FrameIsStable(t *testing.T) {
	event := NewPresenceEvent("bob joined chat")
	assert.Equal(t, event.Frame(), event.Frame())
}
