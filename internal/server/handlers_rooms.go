package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/F0laf0lu/Chat-API/internal/domain"
	apperrors "github.com/F0laf0lu/Chat-API/internal/errors"
)

const maxRoomNameLength = 255

type createRoomRequest struct {
	RoomName    string `json:"room_name"`
	Description string `json:"description"`
}

type roomResponse struct {
	RoomID      uuid.UUID `json:"room_id"`
	RoomName    string    `json:"room_name"`
	Description string    `json:"description"`
	CreatorID   uuid.UUID `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type roomSummaryResponse struct {
	roomResponse
	TotalMembers int `json:"total_members"`
}

func toRoomResponse(r *domain.Room) roomResponse {
	return roomResponse{
		RoomID:      r.RoomID,
		RoomName:    r.RoomName,
		Description: r.Description,
		CreatorID:   r.CreatorID,
		CreatedAt:   r.CreatedAt,
	}
}

func (s *Server) handleCreateRoom(c echo.Context) error {
	var req createRoomRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.RoomName == "" {
		return apperrors.ValidationError("room_name is required")
	}
	if len(req.RoomName) > maxRoomNameLength {
		return apperrors.ValidationError("room_name too long")
	}

	creatorID := c.Get("userID").(uuid.UUID)
	room, err := s.rooms.Create(c.Request().Context(), req.RoomName, req.Description, creatorID)
	if err != nil {
		return apperrors.InternalError("failed to create room", err)
	}

	return c.JSON(http.StatusCreated, toRoomResponse(room))
}

func (s *Server) handleListRooms(c echo.Context) error {
	summaries, err := s.rooms.List(c.Request().Context())
	if err != nil {
		return apperrors.InternalError("failed to list rooms", err)
	}

	response := make([]roomSummaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		response = append(response, roomSummaryResponse{
			roomResponse: toRoomResponse(&summary.Room),
			TotalMembers: summary.TotalMembers,
		})
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) handleGetRoom(c echo.Context) error {
	room, err := s.loadRoom(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRoomResponse(room))
}

type addMemberRequest struct {
	Username string `json:"username"`
}

// handleAddMember lets the room creator add a user by username.
func (s *Server) handleAddMember(c echo.Context) error {
	room, err := s.loadRoom(c)
	if err != nil {
		return err
	}
	if err := s.requireCreator(c, room); err != nil {
		return err
	}

	var req addMemberRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	ctx := c.Request().Context()
	user, err := s.users.GetByUsername(ctx, req.Username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return apperrors.ValidationError("this user does not exist").WithField("username", req.Username)
	}
	if err != nil {
		return apperrors.InternalError("failed to load user", err)
	}

	if err := s.rooms.AddMember(ctx, room.RoomID, user.ID); err != nil {
		return apperrors.InternalError("failed to add member", err)
	}

	return c.JSON(http.StatusCreated, map[string]string{"status": "member added"})
}

type membersResponse struct {
	Members []string `json:"members"`
}

// handleGetMembers is restricted to the room creator and admins.
func (s *Server) handleGetMembers(c echo.Context) error {
	room, err := s.loadRoom(c)
	if err != nil {
		return err
	}

	userID := c.Get("userID").(uuid.UUID)
	isAdmin, _ := c.Get("isAdmin").(bool)
	if userID != room.CreatorID && !isAdmin {
		return apperrors.ForbiddenError("only the room creator may list members")
	}

	members, err := s.rooms.Members(c.Request().Context(), room.RoomID)
	if err != nil {
		return apperrors.InternalError("failed to list members", err)
	}

	usernames := make([]string, 0, len(members))
	for _, member := range members {
		usernames = append(usernames, member.Username)
	}
	return c.JSON(http.StatusOK, membersResponse{Members: usernames})
}

func (s *Server) handleGetMember(c echo.Context) error {
	room, err := s.loadRoom(c)
	if err != nil {
		return err
	}

	memberID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return apperrors.ValidationError("invalid user id")
	}

	ctx := c.Request().Context()
	isMember, err := s.rooms.IsMember(ctx, room.RoomID, memberID)
	if err != nil {
		return apperrors.InternalError("failed to check membership", err)
	}
	if !isMember {
		return apperrors.NotFoundError("user is not a member of this room")
	}

	member, err := s.users.GetByID(ctx, memberID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return apperrors.NotFoundError("user not found")
	}
	if err != nil {
		return apperrors.InternalError("failed to load user", err)
	}

	return c.JSON(http.StatusOK, toUserResponse(member))
}

// handleRemoveMember lets the room creator remove a member. The creator
// cannot be removed from their own room.
func (s *Server) handleRemoveMember(c echo.Context) error {
	room, err := s.loadRoom(c)
	if err != nil {
		return err
	}
	if err := s.requireCreator(c, room); err != nil {
		return err
	}

	memberID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return apperrors.ValidationError("invalid user id")
	}
	if memberID == room.CreatorID {
		return apperrors.ValidationError("the room creator cannot be removed")
	}

	err = s.rooms.RemoveMember(c.Request().Context(), room.RoomID, memberID)
	if errors.Is(err, domain.ErrNotRoomMember) {
		return apperrors.NotFoundError("user is not a member of this room")
	}
	if err != nil {
		return apperrors.InternalError("failed to remove member", err)
	}

	return c.NoContent(http.StatusNoContent)
}

// loadRoom parses the room_id path param and fetches the room.
func (s *Server) loadRoom(c echo.Context) (*domain.Room, error) {
	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		return nil, apperrors.ValidationError("invalid room id")
	}

	room, err := s.rooms.GetByID(c.Request().Context(), roomID)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return nil, apperrors.NotFoundError("room not found")
	}
	if err != nil {
		return nil, apperrors.InternalError("failed to load room", err)
	}
	return room, nil
}

func (s *Server) requireCreator(c echo.Context, room *domain.Room) error {
	userID := c.Get("userID").(uuid.UUID)
	if userID != room.CreatorID {
		return apperrors.ForbiddenError("only the room creator may do this")
	}
	return nil
}
