package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/F0laf0lu/Chat-API/internal/domain"
)

// In-memory repository stubs. They honor the same sentinel errors as the
// PostgreSQL implementations so handlers can be tested without a database.

var (
	_ domain.UserRepository    = (*stubUsers)(nil)
	_ domain.RoomRepository    = (*stubRooms)(nil)
	_ domain.MessageRepository = (*stubMessages)(nil)
)

type stubUsers struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*domain.User
	byName map[string]*domain.User
}

func newStubUsers() *stubUsers {
	return &stubUsers{
		byID:   make(map[uuid.UUID]*domain.User),
		byName: make(map[string]*domain.User),
	}
}

func (s *stubUsers) Create(_ context.Context, username, firstName, lastName, passwordHash string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[username]; exists {
		return nil, domain.ErrUsernameTaken
	}
	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: passwordHash,
		DateJoined:   time.Now(),
	}
	s.byID[user.ID] = user
	s.byName[username] = user
	return user, nil
}

func (s *stubUsers) GetByID(_ context.Context, userID uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *stubUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byName[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

type stubRooms struct {
	mu      sync.Mutex
	rooms   map[uuid.UUID]*domain.Room
	members map[uuid.UUID]map[uuid.UUID]bool
	users   *stubUsers
}

func newStubRooms(users *stubUsers) *stubRooms {
	return &stubRooms{
		rooms:   make(map[uuid.UUID]*domain.Room),
		members: make(map[uuid.UUID]map[uuid.UUID]bool),
		users:   users,
	}
}

func (s *stubRooms) Create(_ context.Context, roomName, description string, creatorID uuid.UUID) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := &domain.Room{
		RoomID:      uuid.New(),
		RoomName:    roomName,
		Description: description,
		CreatorID:   creatorID,
		CreatedAt:   time.Now(),
	}
	s.rooms[room.RoomID] = room
	s.members[room.RoomID] = map[uuid.UUID]bool{creatorID: true}
	return room, nil
}

func (s *stubRooms) GetByID(_ context.Context, roomID uuid.UUID) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

func (s *stubRooms) List(_ context.Context) ([]domain.RoomSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]domain.RoomSummary, 0, len(s.rooms))
	for id, room := range s.rooms {
		summaries = append(summaries, domain.RoomSummary{
			Room:         *room,
			TotalMembers: len(s.members[id]),
		})
	}
	return summaries, nil
}

func (s *stubRooms) AddMember(_ context.Context, roomID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.members[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	members[userID] = true
	return nil
}

func (s *stubRooms) RemoveMember(_ context.Context, roomID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.members[roomID]
	if !ok || !members[userID] {
		return domain.ErrNotRoomMember
	}
	delete(members, userID)
	return nil
}

func (s *stubRooms) Members(_ context.Context, roomID uuid.UUID) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []domain.User
	for userID := range s.members[roomID] {
		if user, ok := s.users.byID[userID]; ok {
			users = append(users, *user)
		}
	}
	return users, nil
}

func (s *stubRooms) IsMember(_ context.Context, roomID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[roomID][userID], nil
}

type stubMessages struct {
	mu       sync.Mutex
	messages []domain.Message
	nextID   int64
	users    *stubUsers
}

func newStubMessages(users *stubUsers) *stubMessages {
	return &stubMessages{nextID: 1, users: users}
}

func (s *stubMessages) Create(_ context.Context, roomID, senderID uuid.UUID, content string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	senderName := ""
	if user, ok := s.users.byID[senderID]; ok {
		senderName = user.Username
	}
	message := domain.Message{
		ID:         s.nextID,
		RoomID:     roomID,
		SenderID:   senderID,
		SenderName: senderName,
		Content:    content,
		CreatedAt:  time.Now(),
	}
	s.nextID++
	s.messages = append(s.messages, message)
	return &message, nil
}

func (s *stubMessages) ListByRoom(_ context.Context, roomID uuid.UUID, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Message
	for i := len(s.messages) - 1; i >= 0 && len(result) < limit; i-- {
		if s.messages[i].RoomID == roomID {
			result = append(result, s.messages[i])
		}
	}
	return result, nil
}

// stubRateLimiter returns canned answers for message rate limit checks.
type stubRateLimiter struct {
	mu      sync.Mutex
	allowed bool
	err     error
	calls   int
}

func (s *stubRateLimiter) Allow(_ context.Context, _ uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.allowed, s.err
}
