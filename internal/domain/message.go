package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID       int64
	RoomID   uuid.UUID
	SenderID uuid.UUID
	// SenderName is resolved from the users table on insert so that
	// notifications can carry the username without a second lookup.
	SenderName string
	Content    string
	CreatedAt  time.Time
}

type MessageRepository interface {
	Create(ctx context.Context, roomID, senderID uuid.UUID, content string) (*Message, error)
	ListByRoom(ctx context.Context, roomID uuid.UUID, limit int) ([]Message, error)
}
