package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/F0laf0lu/Chat-API/internal/domain"
)

// roomColumns must match the Scan order in scanRoom.
const roomColumns = `room_id, room_name, description, creator_id, created_at`

// RoomRepo implements domain.RoomRepository backed by PostgreSQL.
type RoomRepo struct {
	pool *pgxpool.Pool
}

func NewRoomRepo(pool *pgxpool.Pool) *RoomRepo {
	return &RoomRepo{pool: pool}
}

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var room domain.Room
	err := row.Scan(&room.RoomID, &room.RoomName, &room.Description, &room.CreatorID, &room.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// Create inserts a room and adds the creator as its first member in one
// transaction, matching the original API's behavior.
func (r *RoomRepo) Create(ctx context.Context, roomName, description string, creatorID uuid.UUID) (*domain.Room, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	room, err := scanRoom(tx.QueryRow(ctx, `
		INSERT INTO chat_rooms (room_name, description, creator_id)
		VALUES ($1, $2, $3)
		RETURNING `+roomColumns,
		roomName, description, creatorID))
	if err != nil {
		return nil, fmt.Errorf("failed to insert room: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO room_members (room_id, user_id) VALUES ($1, $2)`,
		room.RoomID, creatorID); err != nil {
		return nil, fmt.Errorf("failed to add creator as member: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return room, nil
}

func (r *RoomRepo) GetByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	room, err := scanRoom(r.pool.QueryRow(ctx, `
		SELECT `+roomColumns+` FROM chat_rooms WHERE room_id = $1`, roomID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

func (r *RoomRepo) List(ctx context.Context) ([]domain.RoomSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.room_id, r.room_name, r.description, r.creator_id, r.created_at,
		       COUNT(m.user_id) AS total_members
		FROM chat_rooms r
		LEFT JOIN room_members m ON m.room_id = r.room_id
		GROUP BY r.room_id
		ORDER BY r.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var summaries []domain.RoomSummary
	for rows.Next() {
		var s domain.RoomSummary
		if err := rows.Scan(&s.RoomID, &s.RoomName, &s.Description, &s.CreatorID, &s.CreatedAt, &s.TotalMembers); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *RoomRepo) AddMember(ctx context.Context, roomID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO room_members (room_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (room_id, user_id) DO NOTHING`,
		roomID, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23503: foreign key violation, the room or user does not exist.
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			if pgErr.ConstraintName == "room_members_user_id_fkey" {
				return domain.ErrUserNotFound
			}
			return domain.ErrRoomNotFound
		}
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

func (r *RoomRepo) RemoveMember(ctx context.Context, roomID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM room_members WHERE room_id = $1 AND user_id = $2`,
		roomID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotRoomMember
	}
	return nil
}

func (r *RoomRepo) Members(ctx context.Context, roomID uuid.UUID) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.username, u.first_name, u.last_name, u.is_admin, u.date_joined
		FROM users u
		JOIN room_members m ON m.user_id = u.id
		WHERE m.room_id = $1
		ORDER BY m.added_at`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.IsAdmin, &u.DateJoined); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, u)
	}
	return members, rows.Err()
}

func (r *RoomRepo) IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	var isMember bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM room_members WHERE room_id = $1 AND user_id = $2
		)`, roomID, userID).Scan(&isMember)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return isMember, nil
}
