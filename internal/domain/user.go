package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID
	Username  string
	FirstName string
	LastName  string
	// PasswordHash is bcrypt output. Hashing happens in the auth package,
	// the repository only stores and returns the opaque hash.
	PasswordHash string
	IsAdmin      bool
	DateJoined   time.Time
}

type UserRepository interface {
	Create(ctx context.Context, username, firstName, lastName, passwordHash string) (*User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}
