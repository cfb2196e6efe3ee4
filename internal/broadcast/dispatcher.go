package broadcast

import (
	"log/slog"

	"github.com/F0laf0lu/Chat-API/internal/domain"
	"github.com/F0laf0lu/Chat-API/internal/metrics"
)

// Dispatcher turns committed state changes from the request layer into room
// broadcasts. Both methods are fire and forget: the triggering request
// succeeds whether 0, 1, or N live connections receive the event, because
// persisted state is the source of truth and the push is only a courtesy.
type Dispatcher struct {
	registry *Registry
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// NotifyMessage pushes a notification summary for a durably stored message.
// The frame carries the message id, sender, and room name, not the body;
// clients re-fetch the message through the REST API.
func (d *Dispatcher) NotifyMessage(room *domain.Room, message *domain.Message) {
	key := domain.BroadcastKey(room.RoomName)
	event := domain.NewMessageEvent(message.ID, message.SenderName, room.RoomName)

	metrics.NotificationsTotal.WithLabelValues(string(domain.EventKindMessage)).Inc()
	slog.Debug("Dispatching message notification", "room_key", key, "message_id", message.ID)

	d.registry.Broadcast(key, event)
}

// NotifyPresence pushes a presence notice to a room's live view, e.g.
// "alice joined chat".
func (d *Dispatcher) NotifyPresence(room *domain.Room, text string) {
	key := domain.BroadcastKey(room.RoomName)
	event := domain.NewPresenceEvent(text)

	metrics.NotificationsTotal.WithLabelValues(string(domain.EventKindPresence)).Inc()
	slog.Debug("Dispatching presence notification", "room_key", key, "text", text)

	d.registry.Broadcast(key, event)
}
