package domain

import (
	"encoding/json"
	"fmt"
)

// EventKind tags the two payload shapes pushed into a room.
type EventKind string

const (
	EventKindMessage  EventKind = "message"
	EventKindPresence EventKind = "presence"
)

// Event is an immutable notification delivered to every live connection
// subscribed to a broadcast key. The wire frame is built once at
// construction; Frame returns the same bytes for every recipient.
type Event struct {
	kind  EventKind
	frame []byte
}

// messageNotification mirrors the frame layout established by the original
// API. Clients depend on these field names, so they must not change.
type messageNotification struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	MessageID int64  `json:"message_id"`
	User      string `json:"user"`
	RoomName  string `json:"room_name"`
}

type messageFrame struct {
	Message messageNotification `json:"message"`
}

type presenceFrame struct {
	Message string `json:"message"`
}

// NewMessageEvent builds a notification summary for a stored message. The
// frame references the message by id and deliberately omits the body:
// connected clients re-fetch the durable message through the REST API.
func NewMessageEvent(messageID int64, sender, roomName string) Event {
	frame, _ := json.Marshal(messageFrame{
		Message: messageNotification{
			Type:      "chat_message",
			Message:   fmt.Sprintf("Message with id %d was created!", messageID),
			MessageID: messageID,
			User:      sender,
			RoomName:  roomName,
		},
	})
	return Event{kind: EventKindMessage, frame: frame}
}

// NewPresenceEvent builds a presence notice, e.g. "alice joined chat".
func NewPresenceEvent(text string) Event {
	frame, _ := json.Marshal(presenceFrame{Message: text})
	return Event{kind: EventKindPresence, frame: frame}
}

func (e Event) Kind() EventKind { return e.kind }

// Frame returns the serialized text frame sent to each subscriber.
func (e Event) Frame() []byte { return e.frame }
