package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxBroadcastKeyLength caps the derived broadcast key. Long room names are
// truncated, so two rooms whose names only differ past this length share a key.
const maxBroadcastKeyLength = 99

type Room struct {
	RoomID      uuid.UUID
	RoomName    string
	Description string
	CreatorID   uuid.UUID
	CreatedAt   time.Time
}

// RoomSummary is a Room plus aggregate data for list endpoints.
type RoomSummary struct {
	Room
	TotalMembers int
}

// BroadcastKey derives the fan-out index for a room from its display name:
// spaces become dashes, the result is lowercased and truncated to
// maxBroadcastKeyLength bytes. Distinct rooms with names that normalize to
// the same string share a key and therefore share broadcasts. This is a
// known product limitation, kept as-is rather than silently deduplicated.
func BroadcastKey(roomName string) string {
	key := strings.ToLower(strings.ReplaceAll(roomName, " ", "-"))
	if len(key) > maxBroadcastKeyLength {
		key = key[:maxBroadcastKeyLength]
	}
	return key
}

type RoomRepository interface {
	Create(ctx context.Context, roomName, description string, creatorID uuid.UUID) (*Room, error)
	GetByID(ctx context.Context, roomID uuid.UUID) (*Room, error)
	List(ctx context.Context) ([]RoomSummary, error)
	AddMember(ctx context.Context, roomID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, roomID, userID uuid.UUID) error
	Members(ctx context.Context, roomID uuid.UUID) ([]User, error)
	IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
}

// RoomAccessPolicy decides whether an authenticated user may open a live
// connection to a room. The gateway rejects anonymous callers before the
// policy is ever consulted.
type RoomAccessPolicy interface {
	Authorize(ctx context.Context, room *Room, userID uuid.UUID) error
}
