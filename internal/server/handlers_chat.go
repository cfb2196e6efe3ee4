package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/F0laf0lu/Chat-API/internal/domain"
	apperrors "github.com/F0laf0lu/Chat-API/internal/errors"
	"github.com/F0laf0lu/Chat-API/internal/metrics"
)

const (
	maxMessageLength   = 4096
	messageHistorySize = 50
)

// handleJoinChat announces the caller to everyone connected to the room.
func (s *Server) handleJoinChat(c echo.Context) error {
	room, err := s.requireRoomMember(c)
	if err != nil {
		return err
	}

	username := c.Get("username").(string)
	s.dispatcher.NotifyPresence(room, fmt.Sprintf("%s joined chat", username))

	return c.JSON(http.StatusOK, map[string]string{"success": "User joined chat"})
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type messageResponse struct {
	ID         int64     `json:"id"`
	RoomID     uuid.UUID `json:"room_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// handleSendMessage persists a message and fans it out to the room's live
// connections. Delivery is fire-and-forget: the HTTP response does not wait
// for any WebSocket write.
func (s *Server) handleSendMessage(c echo.Context) error {
	room, err := s.requireRoomMember(c)
	if err != nil {
		return err
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Content == "" {
		return apperrors.ValidationError("content is required")
	}
	if len(req.Content) > maxMessageLength {
		return apperrors.ValidationError("content too long")
	}

	ctx := c.Request().Context()
	senderID := c.Get("userID").(uuid.UUID)

	if s.rateLimiter != nil {
		allowed, err := s.rateLimiter.Allow(ctx, senderID)
		if err != nil {
			// Fail open: a Redis outage should not take chat down with it.
			metrics.MessageRateLimiterErrors.Inc()
			allowed = true
		}
		if !allowed {
			metrics.MessageRateLimited.Inc()
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "message rate limit exceeded",
			})
		}
	}

	message, err := s.messages.Create(ctx, room.RoomID, senderID, req.Content)
	if err != nil {
		return apperrors.InternalError("failed to store message", err)
	}

	s.dispatcher.NotifyMessage(room, message)

	return c.JSON(http.StatusCreated, map[string]bool{"status": true})
}

func (s *Server) handleListMessages(c echo.Context) error {
	room, err := s.requireRoomMember(c)
	if err != nil {
		return err
	}

	messages, err := s.messages.ListByRoom(c.Request().Context(), room.RoomID, messageHistorySize)
	if err != nil {
		return apperrors.InternalError("failed to list messages", err)
	}

	response := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		response = append(response, messageResponse{
			ID:         m.ID,
			RoomID:     m.RoomID,
			SenderID:   m.SenderID,
			SenderName: m.SenderName,
			Content:    m.Content,
			CreatedAt:  m.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, response)
}

// requireRoomMember loads the room and verifies the caller belongs to it.
func (s *Server) requireRoomMember(c echo.Context) (*domain.Room, error) {
	room, err := s.loadRoom(c)
	if err != nil {
		return nil, err
	}

	userID := c.Get("userID").(uuid.UUID)
	isMember, err := s.rooms.IsMember(c.Request().Context(), room.RoomID, userID)
	if err != nil {
		return nil, apperrors.InternalError("failed to check membership", err)
	}
	if !isMember {
		return nil, apperrors.ForbiddenError("you are not a member of this room")
	}
	return room, nil
}
